// Package cache provides an LRU cache that reports its own size to the
// caches report.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SizeFunc returns the accounted size of one entry in bytes.
type SizeFunc[K comparable, V any] func(key K, value V) int64

// LRU is a bounded least-recently-used cache. Entries are evicted when
// either the entry limit or the byte limit is exceeded.
type LRU[K comparable, V any] struct {
	mu        sync.Mutex
	cache     *lru.Cache[K, V]
	size      SizeFunc[K, V]
	sizeBytes int64
	limit     int64
	evictions int64
}

type Option[K comparable, V any] func(*LRU[K, V])

// WithSizeLimit bounds the total accounted size. 0 means unbounded.
func WithSizeLimit[K comparable, V any](bytes int64) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.limit = bytes
	}
}

func WithSizeFunc[K comparable, V any](fn SizeFunc[K, V]) Option[K, V] {
	return func(c *LRU[K, V]) {
		c.size = fn
	}
}

func NewLRU[K comparable, V any](entries int, opts ...Option[K, V]) (*LRU[K, V], error) {
	c := &LRU[K, V]{
		size: func(K, V) int64 { return 1 },
	}
	for _, opt := range opts {
		opt(c)
	}

	inner, err := lru.NewWithEvict[K, V](entries, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.cache = inner
	return c, nil
}

// onEvict runs under c.mu because every mutation of inner happens there.
func (c *LRU[K, V]) onEvict(key K, value V) {
	c.sizeBytes -= c.size(key, value)
	c.evictions++
}

func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.cache.Peek(key); ok {
		c.sizeBytes -= c.size(key, old)
	}
	c.sizeBytes += c.size(key, value)
	c.cache.Add(key, value)

	for c.limit > 0 && c.sizeBytes > c.limit && c.cache.Len() > 0 {
		c.cache.RemoveOldest()
	}
}

func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(key)
}

func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Remove(key)
}

func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

func (c *LRU[K, V]) Evictions() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictions
}

func (c *LRU[K, V]) KeyCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(c.cache.Len())
}

func (c *LRU[K, V]) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sizeBytes
}

func (c *LRU[K, V]) SizeLimitBytes() int64 {
	return c.limit
}
