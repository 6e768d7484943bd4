package kafka

import (
	"context"
	"testing"
	"time"
)

func TestHoldingBuffer_CapacityOneBlocksTwoProducers(t *testing.T) {
	b := NewHoldingBuffer(1)
	ctx := context.Background()

	if err := b.Put(ctx, Record{Offset: 1}); err != nil {
		t.Fatalf("first put: %v", err)
	}

	done := make(chan error, 2)
	go func() { done <- b.Put(ctx, Record{Offset: 2}) }()
	go func() { done <- b.Put(ctx, Record{Offset: 3}) }()

	select {
	case <-done:
		t.Fatal("put succeeded on a full buffer")
	case <-time.After(50 * time.Millisecond):
	}
	if b.Len() != 1 {
		t.Fatalf("occupancy %d exceeds capacity 1", b.Len())
	}

	if _, ok := b.Poll(); !ok {
		t.Fatal("poll of a full buffer returned nothing")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unblocked put: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("no producer unblocked after a drain")
	}
	if b.Len() != 1 {
		t.Fatalf("occupancy %d after refill, want 1", b.Len())
	}

	// second producer still waiting
	if _, ok := b.Poll(); !ok {
		t.Fatal("expected the refilled record")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second unblocked put: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second producer never unblocked")
	}
}

func TestHoldingBuffer_PutCancelled(t *testing.T) {
	b := NewHoldingBuffer(1)
	if err := b.Put(context.Background(), Record{Offset: 1}); err != nil {
		t.Fatalf("put: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Put(ctx, Record{Offset: 2}) }()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("cancelled put returned nil")
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled put never returned")
	}
}

func TestHoldingBuffer_PreservesArrivalOrder(t *testing.T) {
	b := NewHoldingBuffer(4)
	ctx := context.Background()
	for i := int64(0); i < 4; i++ {
		if err := b.Put(ctx, Record{Offset: i}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	for i := int64(0); i < 4; i++ {
		rec, ok := b.Poll()
		if !ok || rec.Offset != i {
			t.Fatalf("poll %d: got %v ok=%v", i, rec.Offset, ok)
		}
	}
	if _, ok := b.Poll(); ok {
		t.Fatal("poll of an empty buffer returned a record")
	}
}

func TestHoldingBuffer_Clear(t *testing.T) {
	b := NewHoldingBuffer(4)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := b.Put(ctx, Record{}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("len %d after clear", b.Len())
	}
	if b.Cap() != 4 {
		t.Fatalf("cap %d changed by clear", b.Cap())
	}
}
