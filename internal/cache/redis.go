package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache backs CACHE_BACKEND=redis, sharing the metadata/name cache
// across multiple ingestion processes. A plain *redis.Client wrapper using
// GET/SET with an expiry, no cluster-mode special-casing.
type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr/db and returns a Cache backed by it. The
// connection is verified with a PING before returning.
func NewRedis(addr string, db int, keyPrefix string) (Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &redisCache{client: client, prefix: keyPrefix}, nil
}

func (c *redisCache) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), val, ttl).Err()
}
