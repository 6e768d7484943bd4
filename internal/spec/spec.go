package spec

import "time"

// ClusterSpec names one cluster (the bootstrap server list doubles as the
// cluster id) and carries its opaque driver property bag.
type ClusterSpec struct {
	Name       string            `koanf:"name"`
	Properties map[string]string `koanf:"properties"`
}

// PartitionSpec is one entry of the static partition assignment.
type PartitionSpec struct {
	Cluster   string `koanf:"cluster"`
	Topic     string `koanf:"topic"`
	Partition int32  `koanf:"partition"`
}

type StdoutSinkSpec struct {
	DelayMS       int  `koanf:"delay_ms"`
	PrintCounter  bool `koanf:"print_counter"`
	PrintValue    bool `koanf:"print_value"`
	ValueMaxBytes int  `koanf:"value_max_bytes"`
}

type KafkaSinkSpec struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"` // empty mirrors the source topic
	Acks    int16    `koanf:"required_acks"`
}

type sinkSpecs struct {
	Stdout StdoutSinkSpec `koanf:"stdout"`
	Kafka  KafkaSinkSpec  `koanf:"kafka"`
}

// File is the bridge YAML schema.
type File struct {
	SchemaVersion string `koanf:"schema_version"`

	ApplicationName string `koanf:"application_name"`
	Driver          string `koanf:"driver"`

	BufferCapacity   int           `koanf:"buffer_capacity"`
	PollTimeout      time.Duration `koanf:"poll_timeout"`
	InitialOffset    string        `koanf:"initial_offset"`
	WindowInterval   time.Duration `koanf:"window_interval"`
	EmitMaxPerWindow int           `koanf:"emit_max_per_window"`
	MetricsPort      int           `koanf:"metrics_port"`
	OffsetTrackFile  string        `koanf:"offset_track_file"`

	Clusters   []ClusterSpec   `koanf:"clusters"`
	Assignment []PartitionSpec `koanf:"assignment"`

	Sinks       []string  `koanf:"sinks"`
	SinkConfigs sinkSpecs `koanf:"sink_configs"`
}
