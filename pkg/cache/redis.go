// Package cache holds short-lived JSON snapshots (dashboard stats) in Redis.
// Without Redis configured every call is a miss and writes are dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/metrics"
)

// Store is what services depend on.
type Store interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return rdb, nil
}

// Redis is a Store backed by go-redis. Keys are namespaced with prefix.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedis(rdb redis.Cmdable, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

// Get unmarshals the cached value into dest and reports a hit.
func (c *Redis) Get(ctx context.Context, key string, dest any) bool {
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err == nil {
		err = json.Unmarshal(val, dest)
	}
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("cache read failed", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues(key).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(key).Inc()
	return true
}

func (c *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, data, ttl).Err()
}

func (c *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.rdb.Del(ctx, full...).Err()
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string, any) bool                 { return false }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Del(context.Context, ...string) error                  { return nil }
