// Package realtime pushes order events to dashboard clients over websocket
// and Server-Sent Events. One Hub goroutine owns every client and room.
//
//	hub := realtime.NewHub()
//	go hub.Run(ctx)
//	hub.Emit(event.AdminRoom, event.NewOrder, order)
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/metrics"
)

const sendBuffer = 64

// Message is one server frame, pre-encoded once for every recipient.
type Message struct {
	Room  string
	Event string
	Data  json.RawMessage
	frame []byte // {"event":...,"data":...}
}

// Frame is the JSON shape exchanged on the socket in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one connected websocket or SSE subscriber.
type Client struct {
	ID        string
	Transport string // "websocket" | "sse"
	Claims    *auth.Claims

	send  chan *Message
	rooms map[string]struct{}
}

func newClient(transport string, claims *auth.Claims) *Client {
	return &Client{
		ID:        uuid.NewString(),
		Transport: transport,
		Claims:    claims,
		send:      make(chan *Message, sendBuffer),
		rooms:     make(map[string]struct{}),
	}
}

// Authenticated reports whether the client presented a valid admin token.
func (c *Client) Authenticated() bool { return c.Claims != nil }

type membership struct {
	client *Client
	room   string
	done   chan error
}

// Hub maintains the clients and rooms and fans messages out.
type Hub struct {
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	emit       chan *Message
	query      chan func()
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		emit:       make(chan *Message, 256),
		query:      make(chan func()),
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop. It returns when ctx is cancelled, closing every
// client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.RealtimeClients.WithLabelValues(c.Transport).Inc()
			logger.Debug("realtime: client connected", "client", c.ID, "transport", c.Transport, "total", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				logger.Debug("realtime: client disconnected", "client", c.ID, "total", len(h.clients))
			}

		case m := <-h.join:
			m.done <- h.addToRoom(m.client, m.room)

		case m := <-h.leave:
			h.removeFromRoom(m.client, m.room)
			m.done <- nil

		case msg := <-h.emit:
			for c := range h.rooms[msg.Room] {
				select {
				case c.send <- msg:
				default:
					logger.Warn("realtime: dropping slow client", "client", c.ID, "room", msg.Room)
					h.drop(c)
				}
			}
			metrics.EventsEmitted.WithLabelValues(msg.Event, "hub").Inc()

		case fn := <-h.query:
			fn()
		}
	}
}

func (h *Hub) addToRoom(c *Client, room string) error {
	if _, ok := h.clients[c]; !ok {
		return fmt.Errorf("realtime: client %s is not connected", c.ID)
	}
	if !c.Authenticated() {
		return ErrUnauthenticated
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
	return nil
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	delete(c.rooms, room)
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// drop unregisters c and closes its send channel. Hub goroutine only.
func (h *Hub) drop(c *Client) {
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	metrics.RealtimeClients.WithLabelValues(c.Transport).Dec()
}

// Emit queues data as event for every member of room. It never blocks; when
// the hub is saturated the message is dropped.
func (h *Hub) Emit(room, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("realtime: marshal %s: %w", event, err)
	}
	return h.EmitRaw(room, event, raw)
}

// EmitRaw is Emit for payloads that are already JSON, such as events relayed
// from another instance.
func (h *Hub) EmitRaw(room, event string, data json.RawMessage) error {
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return err
	}

	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.emit <- &Message{Room: room, Event: event, Data: data, frame: frame}:
		return nil
	default:
		return ErrHubBusy
	}
}

// Connect registers a new client with the hub.
func (h *Hub) Connect(transport string, claims *auth.Claims) (*Client, error) {
	c := newClient(transport, claims)
	select {
	case h.register <- c:
		return c, nil
	case <-h.done:
		return nil, ErrHubClosed
	}
}

// Disconnect unregisters c. Safe to call more than once.
func (h *Hub) Disconnect(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join adds c to room. Unauthenticated clients get ErrUnauthenticated.
func (h *Hub) Join(c *Client, room string) error {
	m := membership{client: c, room: room, done: make(chan error, 1)}
	select {
	case h.join <- m:
		return <-m.done
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Leave(c *Client, room string) {
	m := membership{client: c, room: room, done: make(chan error, 1)}
	select {
	case h.leave <- m:
		<-m.done
	case <-h.done:
	}
}

// RoomSize returns the number of clients currently in room.
func (h *Hub) RoomSize(room string) int {
	n := 0
	h.do(func() { n = len(h.rooms[room]) })
	return n
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	n := 0
	h.do(func() { n = len(h.clients) })
	return n
}

func (h *Hub) do(fn func()) {
	wait := make(chan struct{})
	select {
	case h.query <- func() { fn(); close(wait) }:
		<-wait
	case <-h.done:
	}
}
