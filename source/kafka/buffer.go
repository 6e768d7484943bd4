package kafka

import "context"

// HoldingBuffer is the bounded hand-off queue between the cluster workers and
// the operator. Capacity is fixed at construction and never grows; a full
// buffer blocks the producing worker, which is the engine's only
// backpressure mechanism.
type HoldingBuffer struct {
	ch chan Record
}

func NewHoldingBuffer(capacity int) *HoldingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &HoldingBuffer{ch: make(chan Record, capacity)}
}

// Put blocks while the buffer is full and returns the context error if the
// wait is cancelled.
func (b *HoldingBuffer) Put(ctx context.Context, rec Record) error {
	select {
	case b.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll removes the oldest record without blocking.
func (b *HoldingBuffer) Poll() (Record, bool) {
	select {
	case rec := <-b.ch:
		return rec, true
	default:
		return Record{}, false
	}
}

func (b *HoldingBuffer) Len() int { return len(b.ch) }
func (b *HoldingBuffer) Cap() int { return cap(b.ch) }

// Clear drops every buffered record.
func (b *HoldingBuffer) Clear() {
	for {
		select {
		case <-b.ch:
		default:
			return
		}
	}
}
