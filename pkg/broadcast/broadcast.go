// Package broadcast connects the event bus to the places order events are
// delivered: the local realtime hub, other API instances through Redis
// pub/sub, and an optional Kafka topic.
//
//	bus.Listen("*", broadcast.ToHub(hub))
//	bus.Listen("*", relay.Publish)
//	bus.Listen("*", kafkaSink.Publish)
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/logger"
)

// Emitter is satisfied by *realtime.Hub.
type Emitter interface {
	Emit(room, event string, data any) error
	EmitRaw(room, event string, data json.RawMessage) error
}

// ToHub returns a bus handler that pushes every event into the local hub.
func ToHub(h Emitter) event.Handler {
	return func(ctx context.Context, e event.Event) {
		if err := h.Emit(e.Room, e.Name, e.Data); err != nil {
			logger.WithCtx(ctx).Warn("broadcast: hub emit failed", "event", e.Name, "error", err)
		}
	}
}

// envelope is the wire form shared by the Redis relay and the Kafka sink.
type envelope struct {
	Origin string          `json:"origin,omitempty"`
	Event  string          `json:"event"`
	Room   string          `json:"room"`
	Key    string          `json:"key,omitempty"`
	Data   json.RawMessage `json:"data"`
	At     time.Time       `json:"at"`
}

func encode(origin string, e event.Event) ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Origin: origin,
		Event:  e.Name,
		Room:   e.Room,
		Key:    e.Key,
		Data:   data,
		At:     e.At,
	})
}
