package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/event"
)

func socketServer(t *testing.T) (*Hub, *auth.Issuer, *httptest.Server) {
	t.Helper()
	h := startHub(t)
	iss := auth.NewIssuer("test-secret", time.Hour)
	srv := httptest.NewServer(NewSocketHandler(h, iss, []string{"*"}))
	t.Cleanup(srv.Close)
	return h, iss, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestSocketJoinAndReceive(t *testing.T) {
	h, iss, srv := socketServer(t)
	tok, err := iss.Issue("65f0", "admin@jush.com", "admin")
	require.NoError(t, err)

	conn := dial(t, srv, "?token="+tok)
	require.NoError(t, conn.WriteJSON(Frame{Event: JoinAdminRoom}))
	assert.Equal(t, RoomJoined, readFrame(t, conn).Event)

	require.NoError(t, h.Emit(event.AdminRoom, event.NewOrder, map[string]any{"orderId": "JUSH-9"}))

	f := readFrame(t, conn)
	assert.Equal(t, event.NewOrder, f.Event)
	assert.JSONEq(t, `{"orderId":"JUSH-9"}`, string(f.Data))

	require.NoError(t, conn.WriteJSON(Frame{Event: LeaveAdminRoom}))
	assert.Equal(t, RoomLeft, readFrame(t, conn).Event)
	assert.Zero(t, h.RoomSize(event.AdminRoom))
}

func TestSocketWithoutTokenCannotJoin(t *testing.T) {
	h, _, srv := socketServer(t)

	conn := dial(t, srv, "")
	require.NoError(t, conn.WriteJSON(Frame{Event: JoinAdminRoom}))

	f := readFrame(t, conn)
	assert.Equal(t, ErrorFrame, f.Event)
	assert.Contains(t, string(f.Data), "authentication required")
	assert.Zero(t, h.RoomSize(event.AdminRoom))
}

func TestSocketRejectsInvalidToken(t *testing.T) {
	_, _, srv := socketServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSocketDisconnectUnregisters(t *testing.T) {
	h, iss, srv := socketServer(t)
	tok, _ := iss.Issue("65f0", "admin@jush.com", "admin")

	conn := dial(t, srv, "?token="+tok)
	require.NoError(t, conn.WriteJSON(Frame{Event: JoinAdminRoom}))
	readFrame(t, conn)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSSEStreamsRoomEvents(t *testing.T) {
	h := startHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(auth.WithClaims(r.Context(), admin))
		NewSSEHandler(h).ServeHTTP(w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		require.True(t, lines.Scan())
		return lines.Text()
	}
	assert.Equal(t, "event: "+RoomJoined, next())
	next()
	next()

	require.NoError(t, h.Emit(event.AdminRoom, event.OrderUpdated, map[string]string{"status": "ready"}))
	assert.Equal(t, "event: order-updated", next())
	assert.Equal(t, `data: {"status":"ready"}`, next())
}

func TestSSERequiresClaims(t *testing.T) {
	h := startHub(t)
	rec := httptest.NewRecorder()
	NewSSEHandler(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, h.ClientCount())
}
