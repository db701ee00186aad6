package cache

import (
	"context"

	"github.com/perrrseus/OpenSaga/internal/config"
	"github.com/perrrseus/OpenSaga/internal/errors"
)

// Cache stores JSON-encodable bucket results by fingerprint
type Cache interface {
	Get(ctx context.Context, key string, target interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Close() error
}

// Purger is implemented by caches that can drop every entry they hold
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Open builds the cache selected by cfg. It returns nil when caching is off.
// MemoryEntries > 0 puts an LRU in front of the persistent layer.
func Open(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	var back Cache

	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "bolt":
		c, err := NewBoltCache(cfg.Path, cfg.TTL)
		if err != nil {
			return nil, err
		}
		back = c
	case "redis":
		c, err := NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, err
		}
		back = c
	default:
		return nil, errors.ConfigErrorf("unknown cache type %q", cfg.Type)
	}

	if cfg.MemoryEntries <= 0 {
		return back, nil
	}

	layered, err := NewLayered(cfg.MemoryEntries, back)
	if err != nil {
		if back != nil {
			back.Close()
		}
		return nil, err
	}
	return layered, nil
}
