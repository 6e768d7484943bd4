package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"viaduct/internal/logging"
	"viaduct/internal/telemetry"
)

// Config fixes the engine-owned knobs at construction time.
type Config struct {
	Capacity int    // holding buffer size, never resized
	Driver   string // registered client driver name, "sarama" by default
}

// Engine consumes a static multi-cluster partition assignment into a bounded
// holding buffer and commits window offsets on behalf of its operator. One
// worker goroutine per cluster; the operator is the buffer's sole consumer
// and the only writer into the pending offset tables.
type Engine struct {
	cfg Config
	op  Operator

	alive  atomic.Bool
	buffer *HoldingBuffer

	mu      sync.Mutex
	clients map[string]Client
	pending map[string]*PendingOffsets
	cancel  context.CancelFunc
}

// New corresponds to the operator's setup phase: allocate the holding buffer
// and capture the operator capability. No network activity happens here.
func New(cfg Config, op Operator) *Engine {
	if cfg.Driver == "" {
		cfg.Driver = "sarama"
	}
	logging.L().Info("creating consumer engine",
		"capacity", cfg.Capacity, "driver", cfg.Driver, "assignment", len(op.Assignment()))
	return &Engine{
		cfg:     cfg,
		op:      op,
		buffer:  NewHoldingBuffer(cfg.Capacity),
		clients: make(map[string]Client),
		pending: make(map[string]*PendingOffsets),
	}
}

// Start builds one client and spawns one worker per assigned cluster. Each
// client gets its cluster's partitions assigned explicitly and is seeked to
// any offset present in the operator's offset-track snapshot before polling
// begins. A client that cannot be built or positioned fails Start
// synchronously; everything built so far is torn down again.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.alive.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	track := e.op.OffsetTrack()
	policy := e.op.InitialOffset()

	groupID := ""
	if policy.UsesApplicationOffset() {
		groupID = GroupID(e.op.ApplicationName())
	}

	for cluster, parts := range groupByCluster(e.op.Assignment()) {
		cl, err := NewClient(e.cfg.Driver, ClientConfig{
			Cluster: cluster,
			GroupID: groupID,
			Props:   e.op.ConsumerProps(cluster),
		})
		if err != nil {
			e.abortStartLocked()
			return fmt.Errorf("cluster %s: %w", cluster, err)
		}
		e.clients[cluster] = cl

		if err := cl.Assign(parts); err != nil {
			e.abortStartLocked()
			return fmt.Errorf("cluster %s: assign: %w", cluster, err)
		}
		for _, tp := range parts {
			meta := PartitionMeta{Cluster: cluster, Topic: tp.Topic, Partition: tp.Partition}
			if off, ok := track[meta]; ok {
				if err := cl.Seek(tp, off); err != nil {
					e.abortStartLocked()
					return fmt.Errorf("cluster %s: seek %s to %d: %w", cluster, tp, off, err)
				}
			}
		}

		pend := NewPendingOffsets()
		e.pending[cluster] = pend

		w := &worker{
			cluster: cluster,
			client:  cl,
			pending: pend,
			buffer:  e.buffer,
			alive:   &e.alive,
			timeout: e.op.PollTimeout(),
			policy:  policy,
		}
		go w.run(ctx)
		logging.L().Info("cluster worker started",
			"cluster", cluster, "partitions", len(parts), "group", groupID)
	}
	return nil
}

// abortStartLocked unwinds a partial Start. Workers already spawned observe
// the cancelled context and the dropped liveness flag.
func (e *Engine) abortStartLocked() {
	for _, cl := range e.clients {
		cl.Unblock()
	}
	e.cancel()
	e.alive.Store(false)
	e.clients = make(map[string]Client)
	e.pending = make(map[string]*PendingOffsets)
}

// Stop unblocks every in-flight poll, abandons the workers without waiting
// for their current iteration, drops the liveness flag and clears the
// buffer. Offsets committed after this point are best effort only.
func (e *Engine) Stop() {
	e.mu.Lock()
	for _, cl := range e.clients {
		cl.Unblock()
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	e.alive.Store(false)
	e.buffer.Clear()
}

// Teardown clears the buffer only; Stop is assumed to have run already.
func (e *Engine) Teardown() {
	e.buffer.Clear()
}

// CommitOffsets records the offsets the operator finished processing in the
// current window. Entries are grouped per cluster into the table the matching
// worker flushes on its next cycle; a later call overwrites the offset for
// the same partition. An entry for a cluster whose worker was never started
// is a caller-ordering bug: it is dropped with a warning, other entries are
// unaffected. No network I/O happens here.
func (e *Engine) CommitOffsets(windowOffsets map[PartitionMeta]int64) {
	if len(windowOffsets) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for meta, off := range windowOffsets {
		pend, ok := e.pending[meta.Cluster]
		if !ok {
			logging.L().Warn("pending offset table missing; offsets declared before worker start",
				"partition", meta.String(), "offset", off)
			telemetry.DroppedCommits.Inc()
			continue
		}
		pend.Put(meta.TopicPartition(), Commit{Offset: off})
	}
}

// PollMessage removes the oldest buffered record without blocking.
func (e *Engine) PollMessage() (Record, bool) {
	return e.buffer.Poll()
}

// MessageSize is the current buffer occupancy, for the operator's
// flow-control decisions.
func (e *Engine) MessageSize() int {
	return e.buffer.Len()
}

func (e *Engine) IsAlive() bool {
	return e.alive.Load()
}

func (e *Engine) SetAlive(v bool) {
	e.alive.Store(v)
}

// Metrics passes through each client's exposed counters, keyed by cluster.
func (e *Engine) Metrics() map[string]map[string]map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]map[string]map[string]any, len(e.clients))
	for cluster, cl := range e.clients {
		out[cluster] = cl.Metrics()
	}
	return out
}

func groupByCluster(assignment []PartitionMeta) map[string][]TopicPartition {
	out := make(map[string][]TopicPartition)
	for _, m := range assignment {
		out[m.Cluster] = append(out[m.Cluster], m.TopicPartition())
	}
	return out
}
