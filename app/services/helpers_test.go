package services

import (
	"context"
	"time"

	"github.com/jushkitchen/jush/pkg/cache"
)

// countingCache records how often the stats snapshot is written.
type countingCache struct {
	*cache.Memory
	sets int
}

func newCountingCache() *countingCache { return &countingCache{Memory: cache.NewMemory()} }

func (c *countingCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.sets++
	return c.Memory.Set(ctx, key, value, ttl)
}
