package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/realtime"
)

// ErrSocketConnected is returned by ConnectSocket when a socket is open.
var ErrSocketConnected = errors.New("client: socket already connected")

// SocketHandlers receive admin-room events. Nil handlers are skipped.
// Handlers run on the socket's read goroutine.
type SocketHandlers struct {
	OnNewOrder     func(models.Order)
	OnOrderUpdated func(models.Order)
	OnOrderDeleted func(id string)
	OnJoined       func()
	// OnClose fires once when the socket ends for any reason other than
	// DisconnectSocket.
	OnClose func(err error)
}

type socket struct {
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
	wmu  sync.Mutex
}

func (s *socket) write(f realtime.Frame) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(f)
}

// ConnectSocket opens /socket with the held token and joins the admin room.
// The join is confirmed asynchronously through OnJoined; a refused join
// arrives as OnClose.
func (c *Client) ConnectSocket(ctx context.Context, h SocketHandlers) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.socket != nil {
		return ErrSocketConnected
	}
	if c.token == "" {
		return &APIError{Status: http.StatusUnauthorized, Message: "No token"}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, socketURL(c.baseURL), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return &APIError{Status: http.StatusUnauthorized, Message: "Invalid token"}
		}
		return fmt.Errorf("client: dial socket: %w", err)
	}

	s := &socket{conn: conn, done: make(chan struct{})}
	if err := s.write(realtime.Frame{Event: realtime.JoinAdminRoom}); err != nil {
		conn.Close()
		return fmt.Errorf("client: join admin room: %w", err)
	}
	c.socket = s

	go c.readSocket(s, h)
	return nil
}

// DisconnectSocket leaves the admin room and closes the socket. It waits for
// the read goroutine to finish and is a no-op without a socket.
func (c *Client) DisconnectSocket() {
	c.mu.Lock()
	s := c.socket
	c.socket = nil
	c.mu.Unlock()

	if s == nil {
		return
	}
	s.once.Do(func() {})
	s.write(realtime.Frame{Event: realtime.LeaveAdminRoom}) //nolint:errcheck
	s.wmu.Lock()
	s.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.wmu.Unlock()
	s.conn.Close()
	<-s.done
}

// SocketConnected reports whether a socket is open.
func (c *Client) SocketConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.socket != nil
}

func (c *Client) readSocket(s *socket, h SocketHandlers) {
	defer close(s.done)

	var err error
	for {
		var f realtime.Frame
		if err = s.conn.ReadJSON(&f); err != nil {
			break
		}
		if err = dispatch(f, h); err != nil {
			break
		}
	}

	c.mu.Lock()
	if c.socket == s {
		c.socket = nil
	}
	c.mu.Unlock()
	s.conn.Close()

	closedByUs := true
	s.once.Do(func() { closedByUs = false })
	if !closedByUs && h.OnClose != nil {
		h.OnClose(err)
	}
}

// dispatch routes one frame. A server error frame ends the socket.
func dispatch(f realtime.Frame, h SocketHandlers) error {
	switch f.Event {
	case event.NewOrder, event.OrderUpdated:
		var o models.Order
		if err := json.Unmarshal(f.Data, &o); err != nil {
			logger.Warn("client: bad order frame", "event", f.Event, "error", err)
			return nil
		}
		if f.Event == event.NewOrder && h.OnNewOrder != nil {
			h.OnNewOrder(o)
		}
		if f.Event == event.OrderUpdated && h.OnOrderUpdated != nil {
			h.OnOrderUpdated(o)
		}
	case event.OrderDeleted:
		var d struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(f.Data, &d); err == nil && h.OnOrderDeleted != nil {
			h.OnOrderDeleted(d.ID)
		}
	case realtime.RoomJoined:
		if h.OnJoined != nil {
			h.OnJoined()
		}
	case realtime.ErrorFrame:
		var e struct {
			Message string `json:"message"`
		}
		json.Unmarshal(f.Data, &e) //nolint:errcheck
		return fmt.Errorf("client: socket error: %s", e.Message)
	}
	return nil
}

func socketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/socket"
}
