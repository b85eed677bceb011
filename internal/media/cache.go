package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/feedbreak/feedbreak/internal/logger"
)

// DefaultCacheTTL is how long resolved media stays cached.
const DefaultCacheTTL = 24 * time.Hour

// Cache stores resolved media by external id. Get returns (nil, nil) on a
// miss.
type Cache interface {
	Get(ctx context.Context, externalID string) (*Media, error)
	Set(ctx context.Context, m *Media, ttl time.Duration) error
}

// RedisCache keeps media as JSON strings in Redis.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, prefix: "feedbreak:media:"}, nil
}

func (c *RedisCache) key(id string) string { return c.prefix + id }

func (c *RedisCache) Get(ctx context.Context, externalID string) (*Media, error) {
	raw, err := c.rdb.Get(ctx, c.key(externalID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Media
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode cached media %s: %w", externalID, err)
	}
	return &m, nil
}

func (c *RedisCache) Set(ctx context.Context, m *Media, ttl time.Duration) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(m.ExternalID), raw, ttl).Err()
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error { return c.rdb.Close() }

// CachedResolver serves from Cache and fills it from inner on a miss.
// Cache failures are logged and bypassed.
type CachedResolver struct {
	inner Resolver
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedResolver wraps inner with cache.
func NewCachedResolver(inner Resolver, cache Cache, ttl time.Duration, log *logger.Logger) *CachedResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedResolver{inner: inner, cache: cache, ttl: ttl, log: log}
}

func (r *CachedResolver) Resolve(ctx context.Context, externalID string) (*Media, error) {
	if m, err := r.cache.Get(ctx, externalID); err != nil {
		r.log.Warn("media cache read failed", "external_id", externalID, "error", err)
	} else if m != nil {
		return m, nil
	}

	m, err := r.inner.Resolve(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, m, r.ttl); err != nil {
		r.log.Warn("media cache write failed", "external_id", externalID, "error", err)
	}
	return m, nil
}
