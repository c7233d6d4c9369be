// Package cache holds the Redis-backed caches: grid row counts and revoked tokens.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/config"
)

// Connect opens a Redis client and verifies it answers.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// CountCache stores grid counts with a TTL. Redis failures are logged and
// treated as misses so grids keep working without the cache.
type CountCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCountCache creates a count cache.
func NewCountCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CountCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns a cached count.
func (c *CountCache) Get(ctx context.Context, key string) (int64, bool) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false
	}
	if err != nil {
		c.logger.Warn("count cache get failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores a count.
func (c *CountCache) Set(ctx context.Context, key string, n int64) {
	if err := c.rdb.Set(ctx, key, n, c.ttl).Err(); err != nil {
		c.logger.Warn("count cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops every cached count of a grid.
func (c *CountCache) Invalidate(ctx context.Context, table string) error {
	iter := c.rdb.Scan(ctx, 0, "dt:count:"+table+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan count keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete count keys: %w", err)
	}
	return nil
}

// Revocations blacklists token ids until they would have expired anyway.
type Revocations struct {
	rdb *redis.Client
}

// NewRevocations creates the token blacklist.
func NewRevocations(rdb *redis.Client) *Revocations {
	return &Revocations{rdb: rdb}
}

// Revoke blacklists the token id until expiresAt.
func (r *Revocations) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, "blacklist:"+jti, "true", ttl).Err()
}

// IsRevoked reports whether the token id is blacklisted.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.rdb.Exists(ctx, "blacklist:"+jti).Result()
	return exists == 1, err
}
