package bridge

import (
	"fmt"

	"viaduct/internal/config"
	"viaduct/internal/spec"
	"viaduct/internal/telemetry"
	"viaduct/sink"
	"viaduct/source/kafka"
)

// Bootstrap wires config → engine → runner → telemetry.
func Bootstrap(cfgPath string) (*Runner, error) {
	// 1. bridge config
	cfg, err := config.LoadBridge(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// 2. offset-track snapshot
	track := map[kafka.PartitionMeta]int64{}
	if cfg.OffsetTrackFile != "" {
		track, err = config.LoadOffsetTrack(cfg.OffsetTrackFile)
		if err != nil {
			return nil, fmt.Errorf("offset track: %w", err)
		}
	}

	// 3. runner + sinks
	r, err := NewRunner(cfg, track)
	if err != nil {
		return nil, err
	}
	for _, name := range cfg.Sinks {
		s, err := sink.NewAdapter(name)
		if err != nil {
			return nil, err
		}
		if err := s.Configure(sinkConfig(cfg, name)); err != nil {
			return nil, fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(s)
	}

	// 4. metrics
	telemetry.Expose(cfg.MetricsPort)

	return r, nil
}

func sinkConfig(cfg spec.File, name string) any {
	switch name {
	case "stdout":
		return cfg.SinkConfigs.Stdout
	case "kafka":
		return cfg.SinkConfigs.Kafka
	}
	return nil
}
