// Package cache holds the three cache tiers in front of the creator
// aggregator: a per-request scope, a bounded in-process LRU and a shared
// stale-while-revalidate cache persisted through a storage.EntryStore.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"farcaster-tv/internal/observability"
)

const (
	DefaultLRUSize = 16
	DefaultLRUTTL  = 5 * time.Minute
)

// LRU is a size-bounded cache whose entries expire after a fixed TTL.
// Get refreshes recency; Add evicts the least recently used entry once the
// cache is full.
type LRU[V any] struct {
	name  string
	inner *expirable.LRU[string, V]
}

// NewLRU creates an LRU. size < 1 and ttl <= 0 take the defaults.
// name labels the cache lookup metrics.
func NewLRU[V any](name string, size int, ttl time.Duration) *LRU[V] {
	if size < 1 {
		size = DefaultLRUSize
	}
	if ttl <= 0 {
		ttl = DefaultLRUTTL
	}
	return &LRU[V]{
		name:  name,
		inner: expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Get returns the live value for key.
func (c *LRU[V]) Get(key string) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		observability.RecordCacheLookup(c.name, "hit")
	} else {
		observability.RecordCacheLookup(c.name, "miss")
	}
	return v, ok
}

// Add stores value under key and reports whether an entry was evicted.
func (c *LRU[V]) Add(key string, value V) bool {
	return c.inner.Add(key, value)
}

// Remove drops key.
func (c *LRU[V]) Remove(key string) {
	c.inner.Remove(key)
}

// Purge drops every entry.
func (c *LRU[V]) Purge() {
	c.inner.Purge()
}

// Len returns the number of stored entries, expired ones included until
// they are reaped.
func (c *LRU[V]) Len() int {
	return c.inner.Len()
}
