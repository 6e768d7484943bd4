package kafka

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnblocked is returned by Poll after Unblock interrupted the call. It
// marks an orderly stop, not a failure.
var ErrUnblocked = errors.New("kafka: poll unblocked")

// MissingOffsetError reports assigned partitions that have no position yet:
// no seek was issued and no committed offset exists. Expected on the first
// run of an application; the worker resolves it per the initial offset policy.
type MissingOffsetError struct {
	Partitions []TopicPartition
}

func (e *MissingOffsetError) Error() string {
	return fmt.Sprintf("kafka: no committed offset for partitions %v", e.Partitions)
}

// CommitCallback receives the outcome of an async offset commit.
type CommitCallback func(offsets map[TopicPartition]Commit, err error)

// ClientConfig carries everything a driver needs to reach one cluster.
type ClientConfig struct {
	Cluster string            // bootstrap servers, doubles as the cluster id
	GroupID string            // empty unless the policy resumes application offsets
	Props   map[string]string // opaque per-cluster pass-through
}

// Client is the capability the engine needs from a queue client. Payloads are
// raw bytes, auto-commit is always disabled, and partitions are assigned
// explicitly, never through a group rebalance.
type Client interface {
	Assign(partitions []TopicPartition) error
	Seek(tp TopicPartition, offset int64) error
	SeekToBeginning(partitions []TopicPartition) error
	SeekToEnd(partitions []TopicPartition) error

	// Poll blocks up to timeout. It returns ErrUnblocked after Unblock and
	// *MissingOffsetError while assigned partitions have no position.
	Poll(timeout time.Duration) ([]Record, error)

	// CommitAsync is fire and forget; the outcome arrives on cb.
	CommitAsync(offsets map[TopicPartition]Commit, cb CommitCallback)

	// Unblock makes an in-flight Poll return promptly with ErrUnblocked.
	Unblock()

	Close() error
	Metrics() map[string]map[string]any
}

// Operator is the narrow view of the windowed operator that owns the engine:
// exactly the queries the engine needs, nothing of the operator's own
// lifecycle.
type Operator interface {
	PollTimeout() time.Duration
	InitialOffset() OffsetPolicy
	ApplicationName() string
	ConsumerProps(cluster string) map[string]string
	Assignment() []PartitionMeta
	OffsetTrack() map[PartitionMeta]int64
}
