package chat

import (
	"sort"
	"sync"
)

// Timeline accumulates decrypted items for one conversation. Items are kept
// sorted by message id; merging an id already present replaces it.
type Timeline struct {
	mu    sync.RWMutex
	items map[uint64]Item
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{items: make(map[uint64]Item)}
}

// Merge adds a batch and returns how many ids were new.
func (t *Timeline) Merge(items []Item) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := 0
	for _, it := range items {
		if _, ok := t.items[it.Message.ID]; !ok {
			added++
		}
		t.items[it.Message.ID] = it
	}
	return added
}

// Items returns a snapshot ordered by id.
func (t *Timeline) Items() []Item {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Item, 0, len(t.items))
	for _, it := range t.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Message.ID < out[j].Message.ID })
	return out
}

// Len returns the number of distinct messages.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}
