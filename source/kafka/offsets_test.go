package kafka

import (
	"sync"
	"testing"
)

func TestPendingOffsets_LastWriteWins(t *testing.T) {
	p := NewPendingOffsets()
	tp := TopicPartition{Topic: "topicX", Partition: 0}

	p.Put(tp, Commit{Offset: 42})
	p.Put(tp, Commit{Offset: 45})

	got := p.Drain()
	if len(got) != 1 {
		t.Fatalf("drained %d entries, want 1", len(got))
	}
	if got[tp].Offset != 45 {
		t.Fatalf("drained offset %d, want 45", got[tp].Offset)
	}
}

func TestPendingOffsets_DrainClears(t *testing.T) {
	p := NewPendingOffsets()
	p.Put(TopicPartition{Topic: "t", Partition: 1}, Commit{Offset: 9, Metadata: "m"})

	first := p.Drain()
	if len(first) != 1 || first[TopicPartition{Topic: "t", Partition: 1}].Metadata != "m" {
		t.Fatalf("unexpected first drain %v", first)
	}
	if second := p.Drain(); second != nil {
		t.Fatalf("second drain not nil: %v", second)
	}
	if p.Len() != 0 {
		t.Fatalf("len %d after drain", p.Len())
	}
}

func TestPendingOffsets_ConcurrentPutAndDrain(t *testing.T) {
	p := NewPendingOffsets()
	tp := TopicPartition{Topic: "t", Partition: 0}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 1000; i++ {
			p.Put(tp, Commit{Offset: i})
		}
	}()
	var last int64 = -1
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			for tp2, c := range p.Drain() {
				if tp2 != tp {
					t.Errorf("unexpected partition %v", tp2)
				}
				if c.Offset < last {
					t.Errorf("offset went backwards: %d after %d", c.Offset, last)
				}
				last = c.Offset
			}
		}
	}()
	wg.Wait()
}
