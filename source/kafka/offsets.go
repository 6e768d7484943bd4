package kafka

import "sync"

// PendingOffsets holds the offsets one cluster still has to commit. The
// operator upserts entries between windows; the cluster's worker drains the
// whole table each poll cycle. A later upsert for the same partition
// overwrites the earlier one, it never accumulates.
type PendingOffsets struct {
	mu   sync.Mutex
	offs map[TopicPartition]Commit
}

func NewPendingOffsets() *PendingOffsets {
	return &PendingOffsets{offs: make(map[TopicPartition]Commit)}
}

func (p *PendingOffsets) Put(tp TopicPartition, c Commit) {
	p.mu.Lock()
	p.offs[tp] = c
	p.mu.Unlock()
}

// Drain removes and returns the current contents, nil when empty.
func (p *PendingOffsets) Drain() map[TopicPartition]Commit {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.offs) == 0 {
		return nil
	}
	out := p.offs
	p.offs = make(map[TopicPartition]Commit)
	return out
}

func (p *PendingOffsets) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.offs)
}
