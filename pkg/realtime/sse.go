package realtime

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/response"
)

const heartbeatPeriod = 25 * time.Second

// SSEHandler streams admin-room events as Server-Sent Events. It must sit
// behind middleware.Auth.
type SSEHandler struct {
	hub       *Hub
	heartbeat time.Duration
}

func NewSSEHandler(hub *Hub) *SSEHandler {
	return &SSEHandler{hub: hub, heartbeat: heartbeatPeriod}
}

func (s *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.Error(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}
	claims, _ := auth.FromContext(r.Context())

	client, err := s.hub.Connect("sse", claims)
	if err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Realtime hub unavailable")
		return
	}
	defer s.hub.Disconnect(client)

	if err := s.hub.Join(client, event.AdminRoom); err != nil {
		response.Unauthorized(w, "Access denied. No token provided.")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: %s\ndata: {\"room\":%q}\n\n", RoomJoined, event.AdminRoom)
	flusher.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	log := logger.WithCtx(r.Context())
	log.Debug("realtime: sse stream opened", "client", client.ID)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
