package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/metrics"
	"github.com/jushkitchen/jush/pkg/workerpool"
)

// Channel is the pub/sub channel order events travel on between instances.
const Channel = "jush:events"

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Submitter is satisfied by *workerpool.Pool.
type Submitter interface {
	Submit(name string, job workerpool.Job) error
}

// Relay republishes local events on Redis and feeds events published by
// other instances into the local hub. Messages carry the publishing
// instance id so an instance never relays its own events twice.
type Relay struct {
	pub     publisher
	sub     subscriber
	hub     Emitter
	pool    Submitter
	channel string
	origin  string
}

// NewRelay builds a relay over rdb. *redis.Client satisfies both sides.
func NewRelay(rdb interface {
	publisher
	subscriber
}, hub Emitter, pool Submitter) *Relay {
	return &Relay{
		pub:     rdb,
		sub:     rdb,
		hub:     hub,
		pool:    pool,
		channel: Channel,
		origin:  uuid.NewString(),
	}
}

// Origin is this instance's relay id.
func (r *Relay) Origin() string { return r.origin }

// Publish is an event.Handler. The Redis round trip runs on the pool.
func (r *Relay) Publish(ctx context.Context, e event.Event) {
	payload, err := encode(r.origin, e)
	if err != nil {
		logger.WithCtx(ctx).Warn("broadcast: encode event", "event", e.Name, "error", err)
		metrics.EventsFailed.WithLabelValues("redis").Inc()
		return
	}

	err = r.pool.Submit("redis-publish", func(ctx context.Context) error {
		if err := r.pub.Publish(ctx, r.channel, payload).Err(); err != nil {
			metrics.EventsFailed.WithLabelValues("redis").Inc()
			return err
		}
		metrics.EventsEmitted.WithLabelValues(e.Name, "redis").Inc()
		return nil
	})
	if err != nil {
		metrics.EventsFailed.WithLabelValues("redis").Inc()
		logger.WithCtx(ctx).Warn("broadcast: redis publish not queued", "event", e.Name, "error", err)
	}
}

// Run subscribes to the channel and relays foreign events until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ps := r.sub.Subscribe(ctx, r.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	logger.Info("broadcast: redis relay subscribed", "channel", r.channel, "origin", r.origin)

	ch := ps.Channel(redis.WithChannelHealthCheckInterval(30 * time.Second))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("broadcast: redis subscription closed")
			}
			r.deliver([]byte(msg.Payload))
		}
	}
}

func (r *Relay) deliver(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		logger.Warn("broadcast: malformed relay message", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	if env.Room == "" {
		env.Room = event.AdminRoom
	}
	if err := r.hub.EmitRaw(env.Room, env.Event, env.Data); err != nil {
		logger.Warn("broadcast: relay emit failed", "event", env.Event, "error", err)
	}
}
