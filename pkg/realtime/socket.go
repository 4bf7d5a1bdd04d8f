package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client → server frame names.
const (
	JoinAdminRoom  = "join-admin-room"
	LeaveAdminRoom = "leave-admin-room"
)

// Server → client control frames.
const (
	RoomJoined = "room-joined"
	RoomLeft   = "room-left"
	ErrorFrame = "error"
)

// TokenValidator is satisfied by *auth.Issuer.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// SocketHandler upgrades GET /socket to a websocket bound to the hub.
// A token may be passed as a bearer header or a ?token= query parameter;
// sockets without one can connect but cannot join rooms.
type SocketHandler struct {
	hub      *Hub
	tokens   TokenValidator
	upgrader websocket.Upgrader
}

func NewSocketHandler(hub *Hub, tokens TokenValidator, origins []string) *SocketHandler {
	return &SocketHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func (s *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	var claims *auth.Claims
	if token != "" {
		c, err := s.tokens.Validate(token)
		if err != nil {
			response.Unauthorized(w, "Invalid token")
			return
		}
		claims = c
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithCtx(r.Context()).Warn("realtime: upgrade failed", "error", err)
		return
	}

	client, err := s.hub.Connect("websocket", claims)
	if err != nil {
		conn.Close()
		return
	}

	sc := &socketConn{hub: s.hub, client: client, conn: conn, reply: make(chan Frame, 8)}
	go sc.writePump()
	go sc.readPump()
}

// socketConn couples a hub client with its websocket. reply carries control
// frames produced by the read side; the hub never touches it.
type socketConn struct {
	hub    *Hub
	client *Client
	conn   *websocket.Conn
	reply  chan Frame
}

func (s *socketConn) readPump() {
	defer func() {
		s.hub.Disconnect(s.client)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("realtime: unexpected close", "client", s.client.ID, "error", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.answer(ErrorFrame, map[string]string{"message": "malformed frame"})
			continue
		}
		s.handle(f)
	}
}

func (s *socketConn) handle(f Frame) {
	switch f.Event {
	case JoinAdminRoom:
		if err := s.hub.Join(s.client, event.AdminRoom); err != nil {
			s.answer(ErrorFrame, map[string]string{"message": err.Error()})
			return
		}
		logger.Info("realtime: admin joined", "client", s.client.ID, "admin", s.client.Claims.Email)
		s.answer(RoomJoined, map[string]string{"room": event.AdminRoom})
	case LeaveAdminRoom:
		s.hub.Leave(s.client, event.AdminRoom)
		s.answer(RoomLeft, map[string]string{"room": event.AdminRoom})
	default:
		s.answer(ErrorFrame, map[string]string{"message": "unknown event " + f.Event})
	}
}

func (s *socketConn) answer(name string, data any) {
	raw, _ := json.Marshal(data)
	select {
	case s.reply <- Frame{Event: name, Data: raw}:
	default:
	}
}

func (s *socketConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.client.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg.frame); err != nil {
				return
			}
		case f := <-s.reply:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
