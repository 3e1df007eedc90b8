// Package resolver aggregates scored messages across the analysis window
// and selects one gazetteer entry per surface form.
package resolver

import (
	"sort"
	"time"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
)

// Cache is the sliding window of scored messages, keyed by message id. The
// driver owns it: the scorer writes batches in, eviction trims by
// timestamp, and the resolver reads a consistent snapshot between writes.
// Every entry's timestamp lies within [window end - analysis length,
// window end].
type Cache struct {
	messages map[string]*domain.ScoredMessage
}

// NewCache creates an empty window cache.
func NewCache() *Cache {
	return &Cache{messages: make(map[string]*domain.ScoredMessage)}
}

// UpdateBulk merges a batch of scored messages into the window.
func (c *Cache) UpdateBulk(batch map[string]*domain.ScoredMessage) {
	for id, msg := range batch {
		c.messages[id] = msg
	}
}

// DeleteOlderThan evicts every message with a timestamp before the cutoff.
func (c *Cache) DeleteOlderThan(cutoff time.Time) {
	for id, msg := range c.messages {
		if msg.Timestamp.Before(cutoff) {
			delete(c.messages, id)
		}
	}
}

// Get returns the cached message for an id.
func (c *Cache) Get(id string) (*domain.ScoredMessage, bool) {
	msg, ok := c.messages[id]
	return msg, ok
}

// Len returns the number of cached messages.
func (c *Cache) Len() int {
	return len(c.messages)
}

// ids returns the cached message ids in chronological order (ties broken by
// id) so every pass over the window is deterministic.
func (c *Cache) ids() []string {
	ids := make([]string, 0, len(c.messages))
	for id := range c.messages {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := c.messages[ids[i]], c.messages[ids[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return ids[i] < ids[j]
	})
	return ids
}
