package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// memoryCache is an in-process LRU cache with per-entry TTL, backing
// CACHE_BACKEND=memory (the default).
type memoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory builds an in-process cache holding up to size entries, each
// expiring defaultTTL after being set. Entries that carry a shorter TTL at
// Set time are not supported by the underlying LRU (it expires the whole
// cache on one interval); callers needing a shorter TTL should construct a
// second cache. The pipeline only ever uses one TTL (the 24h metadata/name
// cache), so this is not a practical limitation.
func NewMemory(size int, defaultTTL time.Duration) Cache {
	if size <= 0 {
		size = 4096
	}
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &memoryCache{lru: expirable.NewLRU[string, []byte](size, nil, defaultTTL)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	cp := make([]byte, len(val))
	copy(cp, val)
	c.lru.Add(key, cp)
	return nil
}
