package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"viaduct/internal/logging"
	"viaduct/internal/telemetry"
)

type workerState int32

const (
	workerRunning workerState = iota
	workerStopping
	workerClosed
)

// worker owns one cluster's client for the lifetime of a run: flush the
// cluster's pending offsets, poll, hand records to the holding buffer,
// repeat while the engine is alive. It suspends in exactly two places, the
// network poll and a full buffer, and both are unblocked by Stop.
type worker struct {
	cluster string
	client  Client
	pending *PendingOffsets
	buffer  *HoldingBuffer
	alive   *atomic.Bool
	timeout time.Duration
	policy  OffsetPolicy

	state atomic.Int32
}

func (w *worker) run(ctx context.Context) {
	defer func() {
		w.state.Store(int32(workerClosed))
		if err := w.client.Close(); err != nil {
			logging.L().Warn("closing consumer client", "cluster", w.cluster, "error", err)
		}
	}()

	log := logging.L().With("cluster", w.cluster)
	for w.alive.Load() {
		if batch := w.pending.Drain(); len(batch) > 0 {
			log.Debug("committing offsets", "count", len(batch))
			telemetry.CommitRequests.Inc()
			w.client.CommitAsync(batch, w.onCommit)
		}

		recs, err := w.client.Poll(w.timeout)
		switch {
		case err == nil:
			for _, rec := range recs {
				rec.Cluster = w.cluster
				if perr := w.buffer.Put(ctx, rec); perr != nil {
					// Only shutdown cancels this context, so a failed
					// hand-off is an ordinary stop.
					w.state.Store(int32(workerStopping))
					log.Info("stopped while waiting for buffer space")
					return
				}
				telemetry.RecordsConsumed.WithLabelValues(w.cluster).Inc()
			}
		case errors.Is(err, ErrUnblocked) || ctx.Err() != nil:
			w.state.Store(int32(workerStopping))
			log.Info("consumer worker is being stopped")
			return
		default:
			var missing *MissingOffsetError
			if errors.As(err, &missing) {
				w.seekInitial(missing.Partitions, log)
				continue
			}
			log.Error("poll failed", "error", err)
		}
	}
}

// seekInitial positions partitions that have no committed offset yet, per
// the initial offset policy. Only reachable on the first run of an
// application.
func (w *worker) seekInitial(parts []TopicPartition, log *slog.Logger) {
	var err error
	if w.policy.SeeksToBeginning() {
		err = w.client.SeekToBeginning(parts)
	} else {
		err = w.client.SeekToEnd(parts)
	}
	if err != nil {
		log.Error("seeking partitions without committed offsets",
			"policy", w.policy.String(), "partitions", parts, "error", err)
	}
}

// onCommit is the fire-and-forget commit outcome. Failures are not retried:
// the next window's commit supersedes this one.
func (w *worker) onCommit(offsets map[TopicPartition]Commit, err error) {
	if err != nil {
		telemetry.CommitFailures.Inc()
		logging.L().Warn("offset commit failed; next window supersedes it",
			"cluster", w.cluster, "offsets", len(offsets), "error", err)
	}
}
