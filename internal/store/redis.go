package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister implements Persister with a single Redis key carrying the
// same expiry a browser cookie would.
type RedisPersister struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

// NewRedisPersister creates a Redis-backed persister.
func NewRedisPersister(rdb redis.Cmdable, name string, ttl time.Duration) *RedisPersister {
	if name == "" {
		name = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPersister{rdb: rdb, key: stateKey(name), ttl: ttl}
}

func (p *RedisPersister) Load(ctx context.Context) (string, error) {
	v, err := p.rdb.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", p.key, err)
	}
	return v, nil
}

func (p *RedisPersister) Save(ctx context.Context, text string) error {
	if err := p.rdb.Set(ctx, p.key, text, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.key, err)
	}
	return nil
}

// CachedPersister wraps a primary Persister (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary and refresh the cache;
// reads check Redis first then fall back to the primary.
type CachedPersister struct {
	primary Persister
	rdb     redis.Cmdable
	key     string
	ttl     time.Duration
}

// NewCachedPersister creates a cached wrapper around a primary persister.
func NewCachedPersister(primary Persister, rdb redis.Cmdable, name string, ttl time.Duration) *CachedPersister {
	if name == "" {
		name = DefaultKey
	}
	return &CachedPersister{
		primary: primary,
		rdb:     rdb,
		key:     cacheKey(name),
		ttl:     ttl,
	}
}

func (p *CachedPersister) Load(ctx context.Context) (string, error) {
	if v, err := p.rdb.Get(ctx, p.key).Result(); err == nil {
		return v, nil
	}

	// Cache miss: read from primary.
	v, err := p.primary.Load(ctx)
	if err != nil {
		return "", err
	}
	p.rdb.Set(ctx, p.key, v, p.ttl)
	return v, nil
}

func (p *CachedPersister) Save(ctx context.Context, text string) error {
	if err := p.primary.Save(ctx, text); err != nil {
		// Drop the cached copy so a later read can't serve stale state.
		p.rdb.Del(ctx, p.key)
		return err
	}
	p.rdb.Set(ctx, p.key, text, p.ttl)
	return nil
}

func stateKey(name string) string { return fmt.Sprintf("state:%s", name) }
func cacheKey(name string) string { return fmt.Sprintf("state-cache:%s", name) }
