package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Total int `json:"total"`
}

func TestMemoryRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "orders:stats", stats{Total: 7}, time.Minute))

	var got stats
	require.True(t, m.Get(ctx, "orders:stats", &got))
	assert.Equal(t, 7, got.Total)

	now = now.Add(time.Minute)
	assert.False(t, m.Get(ctx, "orders:stats", &got))
}

func TestMemoryDel(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "a", 1, 0))
	require.NoError(t, m.Del(ctx, "a", "missing"))

	var n int
	assert.False(t, m.Get(ctx, "a", &n))
}

// fakeRedis implements the three commands the Redis store uses.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisPrefixesKeys(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	c := NewRedis(rdb, "jush:")

	require.NoError(t, c.Set(ctx, "orders:stats", stats{Total: 3}, 30*time.Second))
	assert.Equal(t, `{"total":3}`, rdb.data["jush:orders:stats"])
	assert.Equal(t, 30*time.Second, rdb.ttl["jush:orders:stats"])

	var got stats
	require.True(t, c.Get(ctx, "orders:stats", &got))
	assert.Equal(t, 3, got.Total)

	require.NoError(t, c.Del(ctx, "orders:stats"))
	assert.False(t, c.Get(ctx, "orders:stats", &got))
}

func TestNopNeverHits(t *testing.T) {
	var n int
	require.NoError(t, Nop{}.Set(context.Background(), "k", 1, time.Minute))
	assert.False(t, Nop{}.Get(context.Background(), "k", &n))
}
