// Package cache provides the in-memory and Redis implementations of
// domain.CacheRepository.
package cache

import (
	"context"
	"fmt"

	"github.com/foodfacts/scraper/config"
	"github.com/foodfacts/scraper/internal/domain"
)

// KeyPrefix namespaces every key written to a shared Redis
const KeyPrefix = "foodfacts:"

// Store is a cache repository holding resources that must be released
type Store interface {
	domain.CacheRepository
	Close() error
}

// New builds the cache selected by cfg.Type
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryCache(0), nil
	case "redis":
		c, err := NewRedisCache(ctx, cfg.RedisURL, KeyPrefix)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: unknown cache type %q", domain.ErrCacheUnavailable, cfg.Type)
}
