package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jushkitchen/jush/pkg/metrics"
)

// Memory is a process-local Store used when Redis is not configured. Values
// are stored as JSON so Get behaves exactly like the Redis store.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	data    []byte
	expires time.Time // zero means no expiry
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dest any) bool {
	m.mu.Lock()
	item, ok := m.items[key]
	if ok && !item.expires.IsZero() && !m.now().Before(item.expires) {
		delete(m.items, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok || json.Unmarshal(item.data, dest) != nil {
		metrics.CacheMisses.WithLabelValues(key).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(key).Inc()
	return true
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	item := memoryItem{data: data}
	if ttl > 0 {
		item.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}
