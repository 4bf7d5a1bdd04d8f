// Package event is the in-process order event bus. Services fire events;
// the realtime hub, the Redis relay and the Kafka sink listen.
package event

import (
	"context"
	"sync"
	"time"
)

// Order event names as seen by dashboard clients.
const (
	NewOrder     = "new-order"
	OrderUpdated = "order-updated"
	OrderDeleted = "order-deleted"
)

// AdminRoom is the room every dashboard client joins.
const AdminRoom = "admin-room"

// Event is one notification. Key is the partitioning key for external sinks
// (the order's ObjectID).
type Event struct {
	Name string    `json:"event"`
	Room string    `json:"room"`
	Key  string    `json:"key,omitempty"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Handler receives fired events. Handlers must not block; sinks doing
// network I/O hand off to a worker pool.
type Handler func(ctx context.Context, e Event)

// Bus dispatches events to listeners registered per name, or for every
// event with the "*" wildcard.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Listen registers a handler for the given event name ("*" for all).
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Fire dispatches e synchronously to its listeners, then to wildcard ones.
func (b *Bus) Fire(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Room == "" {
		e.Room = AdminRoom
	}

	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[e.Name])+len(b.handlers["*"]))
	hs = append(hs, b.handlers[e.Name]...)
	hs = append(hs, b.handlers["*"]...)
	b.mu.RUnlock()

	for _, h := range hs {
		h(ctx, e)
	}
}
