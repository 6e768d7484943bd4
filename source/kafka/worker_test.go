package kafka

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func startWorker(t *testing.T, f *fakeClient, buf *HoldingBuffer, policy OffsetPolicy) (*worker, *atomic.Bool, context.CancelFunc, chan struct{}) {
	t.Helper()
	alive := &atomic.Bool{}
	alive.Store(true)
	w := &worker{
		cluster: "c1",
		client:  f,
		pending: NewPendingOffsets(),
		buffer:  buf,
		alive:   alive,
		timeout: 20 * time.Millisecond,
		policy:  policy,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.run(ctx)
		close(done)
	}()
	return w, alive, cancel, done
}

func TestWorker_MissingOffsetSeeksToBeginning(t *testing.T) {
	f := newFakeClient(ClientConfig{Cluster: "c1"})
	parts := []TopicPartition{{Topic: "t", Partition: 0}, {Topic: "t", Partition: 2}}
	f.script <- pollResult{err: &MissingOffsetError{Partitions: parts}}

	w, _, cancel, done := startWorker(t, f, NewHoldingBuffer(4), OffsetEarliest)
	defer cancel()

	waitFor(t, 2*time.Second, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.begin) == 2
	})
	f.mu.Lock()
	if len(f.end) != 0 {
		t.Fatalf("seeked to end under EARLIEST policy: %v", f.end)
	}
	if f.begin[0] != parts[0] || f.begin[1] != parts[1] {
		t.Fatalf("seeked %v, want exactly %v", f.begin, parts)
	}
	f.mu.Unlock()

	f.Unblock()
	<-done
	if workerState(w.state.Load()) != workerClosed {
		t.Fatal("worker not closed after unblock")
	}
}

func TestWorker_MissingOffsetSeeksToEnd(t *testing.T) {
	f := newFakeClient(ClientConfig{Cluster: "c1"})
	parts := []TopicPartition{{Topic: "t", Partition: 1}}
	f.script <- pollResult{err: &MissingOffsetError{Partitions: parts}}

	_, _, cancel, done := startWorker(t, f, NewHoldingBuffer(4), OffsetApplicationOrLatest)
	defer cancel()

	waitFor(t, 2*time.Second, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.end) == 1
	})
	f.mu.Lock()
	if len(f.begin) != 0 {
		t.Fatalf("seeked to beginning under LATEST policy: %v", f.begin)
	}
	f.mu.Unlock()

	f.Unblock()
	<-done
}

func TestWorker_UnblockStopsLoop(t *testing.T) {
	f := newFakeClient(ClientConfig{Cluster: "c1"})
	w, _, cancel, done := startWorker(t, f, NewHoldingBuffer(1), OffsetLatest)
	defer cancel()

	f.Unblock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after unblock")
	}
	if !f.closed.Load() {
		t.Fatal("client not closed on worker exit")
	}
	if workerState(w.state.Load()) != workerClosed {
		t.Fatal("worker state not closed")
	}
}

func TestWorker_LivenessFlagStopsLoop(t *testing.T) {
	f := newFakeClient(ClientConfig{Cluster: "c1"})
	_, alive, cancel, done := startWorker(t, f, NewHoldingBuffer(1), OffsetLatest)
	defer cancel()

	alive.Store(false)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker kept looping with liveness false")
	}
}

func TestWorker_CancelledWhileBlockedOnPush(t *testing.T) {
	f := newFakeClient(ClientConfig{Cluster: "c1"})
	f.script <- pollResult{recs: []Record{
		{Topic: "t", Partition: 0, Offset: 1},
		{Topic: "t", Partition: 0, Offset: 2},
	}}
	buf := NewHoldingBuffer(1)

	w, _, cancel, done := startWorker(t, f, buf, OffsetLatest)

	// first record fills the buffer, second push blocks
	waitFor(t, 2*time.Second, func() bool { return buf.Len() == 1 })
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker stuck on a cancelled push")
	}
	if !f.closed.Load() {
		t.Fatal("client not closed after cancellation")
	}
	if workerState(w.state.Load()) != workerClosed {
		t.Fatal("worker state not closed")
	}
}

func TestWorker_FlushesPendingOnceAndNoRetryOnFailure(t *testing.T) {
	f := newFakeClient(ClientConfig{Cluster: "c1"})
	f.commitErr = &MissingOffsetError{} // any error; commit failures are not retried

	w, _, cancel, done := startWorker(t, f, NewHoldingBuffer(1), OffsetLatest)
	defer cancel()

	tp := TopicPartition{Topic: "t", Partition: 0}
	w.pending.Put(tp, Commit{Offset: 11})

	select {
	case got := <-f.commits:
		if got[tp].Offset != 11 {
			t.Fatalf("committed %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending offsets never flushed")
	}

	// failed commit must not be re-issued
	select {
	case got := <-f.commits:
		t.Fatalf("commit retried: %v", got)
	case <-time.After(100 * time.Millisecond):
	}
	if w.pending.Len() != 0 {
		t.Fatal("pending table not cleared after flush")
	}

	f.Unblock()
	<-done
}
