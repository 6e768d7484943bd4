package kafka

import (
	"fmt"
	"strings"
	"time"
)

// PartitionMeta identifies one partition uniquely across every cluster the
// engine consumes from. Comparable value type, usable as a map key.
type PartitionMeta struct {
	Cluster   string
	Topic     string
	Partition int32
}

func (m PartitionMeta) TopicPartition() TopicPartition {
	return TopicPartition{Topic: m.Topic, Partition: m.Partition}
}

func (m PartitionMeta) String() string {
	return fmt.Sprintf("%s/%s[%d]", m.Cluster, m.Topic, m.Partition)
}

// TopicPartition is the within-cluster partition key a Client understands.
type TopicPartition struct {
	Topic     string
	Partition int32
}

func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s[%d]", tp.Topic, tp.Partition)
}

// Record is one consumed message. The driver fills everything except Cluster,
// which the owning worker stamps before the record enters the holding buffer.
// Ownership moves with the record: driver → buffer → operator.
type Record struct {
	Cluster   string
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

func (r Record) Meta() PartitionMeta {
	return PartitionMeta{Cluster: r.Cluster, Topic: r.Topic, Partition: r.Partition}
}

// Commit is an offset plus the trailing metadata committed alongside it.
type Commit struct {
	Offset   int64
	Metadata string
}

// OffsetPolicy governs where consumption starts for a partition that has no
// previously committed offset, and whether the engine derives a consumer
// group id from the application name.
type OffsetPolicy int

const (
	OffsetEarliest OffsetPolicy = iota
	OffsetLatest
	OffsetApplicationOrEarliest
	OffsetApplicationOrLatest
)

func ParseOffsetPolicy(s string) (OffsetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return OffsetLatest, nil
	case "earliest":
		return OffsetEarliest, nil
	case "application_or_earliest":
		return OffsetApplicationOrEarliest, nil
	case "application_or_latest":
		return OffsetApplicationOrLatest, nil
	}
	return 0, fmt.Errorf("kafka: unknown initial offset policy %q", s)
}

// UsesApplicationOffset reports whether previously committed application
// offsets are resumed, which requires a stable consumer group id.
func (p OffsetPolicy) UsesApplicationOffset() bool {
	return p == OffsetApplicationOrEarliest || p == OffsetApplicationOrLatest
}

// SeeksToBeginning reports whether a missing offset resolves to the earliest
// available position (otherwise the latest).
func (p OffsetPolicy) SeeksToBeginning() bool {
	return p == OffsetEarliest || p == OffsetApplicationOrEarliest
}

func (p OffsetPolicy) String() string {
	switch p {
	case OffsetEarliest:
		return "earliest"
	case OffsetLatest:
		return "latest"
	case OffsetApplicationOrEarliest:
		return "application_or_earliest"
	case OffsetApplicationOrLatest:
		return "application_or_latest"
	}
	return fmt.Sprintf("offset_policy(%d)", int(p))
}

// GroupID derives the consumer group id shared by every engine instance
// resuming the same named application.
func GroupID(applicationName string) string {
	return applicationName + "_Consumer"
}
