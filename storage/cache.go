package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

const catalogCacheKey = "actions:catalog"

type catalogBackend interface {
	FetchActions(ctx context.Context) (domain.Catalog, error)
}

// Cache wraps a catalog source with Redis-backed caching.
type Cache struct {
	base  catalogBackend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// A zero TTL disables writes to the cache.
func NewCache(base catalogBackend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base catalog is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FetchActions(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := c.loadCatalog(ctx); ok {
		return catalog, nil
	}

	catalog, err := c.base.FetchActions(ctx)
	if err != nil {
		return nil, err
	}

	c.storeCatalog(ctx, catalog)
	return catalog, nil
}

// Invalidate drops the cached catalog, used after the table was reseeded.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, catalogCacheKey).Err()
}

func (c *Cache) loadCatalog(ctx context.Context) (domain.Catalog, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, catalogCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, catalogCacheKey).Err()
		}
		return nil, false
	}
	var catalog domain.Catalog
	if err := sonic.Unmarshal(data, &catalog); err != nil {
		_ = c.redis.Del(ctx, catalogCacheKey).Err()
		return nil, false
	}
	return catalog, true
}

func (c *Cache) storeCatalog(ctx context.Context, catalog domain.Catalog) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(catalog)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, catalogCacheKey, data, c.ttl).Err()
}
