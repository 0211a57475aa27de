// Package cache backs the per-landmark metadata cache and the catalog name
// cache described in spec.md §4.5/§5: a TTL cache keyed by landmark_id,
// concurrent-read/exclusive-write, amortizing catalog cost across the
// multiple Wikipedia articles a single landmark can have within a run.
//
// Two backends are offered, selected by config.CacheConfig.Backend: an
// in-process LRU+TTL cache (hashicorp/golang-lru/v2) for a single process,
// and a Redis-backed cache for deployments that share the cache across
// multiple ingestion processes.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented TTL cache. Callers are responsible for
// serializing values (typically JSON); this keeps the interface backend
// agnostic.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}
