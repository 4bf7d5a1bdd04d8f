package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/realtime"
)

func socketServer(t *testing.T) (*httptest.Server, *realtime.Hub, *auth.Issuer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := realtime.NewHub()
	go hub.Run(ctx)

	issuer := auth.NewIssuer("client-test-secret", time.Hour)
	srv := httptest.NewServer(realtime.NewSocketHandler(hub, issuer, []string{"*"}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, hub, issuer
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for socket event")
	}
	var zero T
	return zero
}

func TestSocketReceivesAdminRoomEvents(t *testing.T) {
	srv, hub, issuer := socketServer(t)
	token, err := issuer.Issue("65f0c0ffee", "admin@jush.com", "admin")
	require.NoError(t, err)

	joined := make(chan struct{}, 1)
	created := make(chan models.Order, 1)
	deleted := make(chan string, 1)
	closed := make(chan error, 1)

	c := New(srv.URL, WithToken(token))
	require.NoError(t, c.ConnectSocket(context.Background(), SocketHandlers{
		OnJoined:       func() { joined <- struct{}{} },
		OnNewOrder:     func(o models.Order) { created <- o },
		OnOrderDeleted: func(id string) { deleted <- id },
		OnClose:        func(err error) { closed <- err },
	}))
	assert.ErrorIs(t, c.ConnectSocket(context.Background(), SocketHandlers{}), ErrSocketConnected)

	wait(t, joined)
	require.NoError(t, hub.Emit(event.AdminRoom, event.NewOrder, models.Order{OrderID: "JUSH-1", Status: models.StatusPending}))
	assert.Equal(t, "JUSH-1", wait(t, created).OrderID)

	require.NoError(t, hub.Emit(event.AdminRoom, event.OrderDeleted, map[string]string{"id": "abc"}))
	assert.Equal(t, "abc", wait(t, deleted))

	c.DisconnectSocket()
	assert.False(t, c.SocketConnected())
	assert.Len(t, closed, 0)
}

func TestSocketNeedsToken(t *testing.T) {
	srv, _, _ := socketServer(t)

	err := New(srv.URL).ConnectSocket(context.Background(), SocketHandlers{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = New(srv.URL, WithToken("forged")).ConnectSocket(context.Background(), SocketHandlers{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:5000/socket", socketURL("http://localhost:5000"))
	assert.Equal(t, "wss://api.jush.com/socket", socketURL("https://api.jush.com"))
}
