package bridge

import (
	"context"
	"time"

	"viaduct/internal/logging"
	"viaduct/internal/spec"
	"viaduct/internal/telemetry"
	"viaduct/sink"
	"viaduct/source/kafka"
)

// Runner is the windowed operator that owns the consumer engine: once per
// window it drains the holding buffer, forwards records to the sinks and
// declares the offsets processed in that window back to the engine.
type Runner struct {
	cfg    spec.File
	policy kafka.OffsetPolicy

	props      map[string]map[string]string
	assignment []kafka.PartitionMeta
	track      map[kafka.PartitionMeta]int64

	engine *kafka.Engine
	sinks  []sink.Adapter

	// offsets processed in the current window, next-offset-to-read semantics
	window map[kafka.PartitionMeta]int64
}

func NewRunner(cfg spec.File, track map[kafka.PartitionMeta]int64) (*Runner, error) {
	policy, err := kafka.ParseOffsetPolicy(cfg.InitialOffset)
	if err != nil {
		return nil, err
	}
	props := make(map[string]map[string]string, len(cfg.Clusters))
	for _, c := range cfg.Clusters {
		props[c.Name] = c.Properties
	}
	assignment := make([]kafka.PartitionMeta, 0, len(cfg.Assignment))
	for _, p := range cfg.Assignment {
		assignment = append(assignment, kafka.PartitionMeta{
			Cluster: p.Cluster, Topic: p.Topic, Partition: p.Partition,
		})
	}
	if track == nil {
		track = map[kafka.PartitionMeta]int64{}
	}

	r := &Runner{
		cfg:        cfg,
		policy:     policy,
		props:      props,
		assignment: assignment,
		track:      track,
		window:     map[kafka.PartitionMeta]int64{},
	}
	r.engine = kafka.New(kafka.Config{Capacity: cfg.BufferCapacity, Driver: cfg.Driver}, r)
	return r, nil
}

func (r *Runner) AddSink(s sink.Adapter) { r.sinks = append(r.sinks, s) }
func (r *Runner) Engine() *kafka.Engine  { return r.engine }

/* ────────── kafka.Operator ────────── */

func (r *Runner) PollTimeout() time.Duration        { return r.cfg.PollTimeout }
func (r *Runner) InitialOffset() kafka.OffsetPolicy { return r.policy }
func (r *Runner) ApplicationName() string           { return r.cfg.ApplicationName }
func (r *Runner) Assignment() []kafka.PartitionMeta { return r.assignment }

func (r *Runner) ConsumerProps(cluster string) map[string]string {
	return r.props[cluster]
}

func (r *Runner) OffsetTrack() map[kafka.PartitionMeta]int64 {
	return r.track
}

/* ────────── work cycle ────────── */

// Run drives the engine until ctx is done: start, one work cycle per window
// tick, then stop, tear down and close the sinks.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.engine.Start(); err != nil {
		return err
	}
	logging.L().Info("bridge running",
		"application", r.cfg.ApplicationName,
		"window", r.cfg.WindowInterval,
		"partitions", len(r.assignment))

	tick := time.NewTicker(r.cfg.WindowInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			r.engine.Stop()
			r.engine.Teardown()
			r.closeSinks()
			return nil
		case <-tick.C:
			r.cycle()
			r.endWindow()
		}
	}
}

// cycle drains up to the per-window cap from the holding buffer.
func (r *Runner) cycle() {
	limit := r.cfg.EmitMaxPerWindow
	for n := 0; limit <= 0 || n < limit; n++ {
		rec, ok := r.engine.PollMessage()
		if !ok {
			break
		}
		r.emit(rec)
	}
	telemetry.BufferOccupancy.Set(float64(r.engine.MessageSize()))
}

func (r *Runner) emit(rec kafka.Record) {
	for _, s := range r.sinks {
		if err := s.Push(rec); err != nil {
			logging.L().Error("sink push failed",
				"topic", rec.Topic, "partition", rec.Partition, "offset", rec.Offset, "error", err)
		}
	}
	r.window[rec.Meta()] = rec.Offset + 1
	telemetry.RecordsEmitted.Inc()
}

// endWindow posts the offsets processed during the window and folds them
// into the running snapshot.
func (r *Runner) endWindow() {
	if len(r.window) == 0 {
		return
	}
	r.engine.CommitOffsets(r.window)
	for meta, off := range r.window {
		r.track[meta] = off
	}
	r.window = make(map[kafka.PartitionMeta]int64, len(r.window))
}

func (r *Runner) closeSinks() {
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			logging.L().Warn("closing sink", "error", err)
		}
	}
}
