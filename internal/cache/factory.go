package cache

import (
	"fmt"

	"landmarkvector/internal/config"
)

// NewFromConfig builds the configured cache backend.
func NewFromConfig(c config.CacheConfig, keyPrefix string) (Cache, error) {
	switch c.Backend {
	case "", "memory":
		return NewMemory(8192, c.TTL), nil
	case "redis":
		return NewRedis(c.RedisAddr, c.RedisDB, keyPrefix)
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", c.Backend)
	}
}
