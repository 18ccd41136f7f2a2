package loader

import (
	"sort"
	"sync"
	"time"

	"flipview/internal/logger"
	"flipview/internal/partition"
)

// Entry records when a partition was confirmed missing.
type Entry struct {
	Key        partition.Key `json:"key"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// NegativeCache remembers partitions that returned not-found so they are not
// fetched again for the lifetime of the cache. Once it holds more than max
// entries the oldest half is dropped.
type NegativeCache struct {
	mu      sync.Mutex
	entries map[partition.Key]time.Time
	max     int
	now     func() time.Time
}

func NewNegativeCache(max int) *NegativeCache {
	return &NegativeCache{
		entries: make(map[partition.Key]time.Time),
		max:     max,
		now:     time.Now,
	}
}

func (c *NegativeCache) Add(key partition.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	c.entries[key] = c.now()
	if c.max > 0 && len(c.entries) > c.max {
		c.compactLocked()
	}
}

func (c *NegativeCache) Contains(key partition.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func (c *NegativeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear forgets every entry, e.g. after the index is refreshed.
func (c *NegativeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[partition.Key]time.Time)
}

// Entries returns a snapshot ordered by recording time.
func (c *NegativeCache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedLocked()
}

func (c *NegativeCache) sortedLocked() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for k, at := range c.entries {
		out = append(out, Entry{Key: k, RecordedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out
}

func (c *NegativeCache) compactLocked() {
	sorted := c.sortedLocked()
	drop := len(sorted) / 2
	for _, e := range sorted[:drop] {
		delete(c.entries, e.Key)
	}
	logger.Warnf("[loader] negative cache compacted: dropped %d of %d entries (max=%d)", drop, len(sorted), c.max)
}
