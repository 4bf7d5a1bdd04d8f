package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/pkg/client"
	"github.com/jushkitchen/jush/pkg/logger"
)

func testConfig() Config {
	return Config{
		Port:          "0",
		StoreDriver:   "memory",
		JWTSecret:     "server-test-secret",
		JWTTTL:        time.Hour,
		AdminEmail:    "admin@jush.com",
		AdminPassword: "admin123",
		CORSOrigins:   []string{"*"},
		StatsCacheTTL: time.Second,
		RateLimit:     1000,
	}
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger.Discard()

	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(ctx, testConfig())
	require.NoError(t, err)
	s.background(ctx)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		s.Close()
	})
	return srv
}

func sampleOrder() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		CustomerName: "Otieno",
		Phone:        "0711000000",
		Address:      "Kenyatta Avenue",
		Items:        []models.OrderItem{{ID: "m-3", Name: "Nyama Choma", Price: 9, Quantity: 2}},
		Subtotal:     18,
		Total:        18,
	}
}

func TestUnknownStoreDriver(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = "sqlite"

	var (
		s   *Server
		err error
	)
	require.NotPanics(t, func() { s, err = New(context.Background(), cfg) })
	assert.Nil(t, s)
	assert.ErrorContains(t, err, "unknown STORE_DRIVER")
}

func TestCloseOnNilServer(t *testing.T) {
	var s *Server
	assert.NotPanics(t, s.Close)
}

func TestMiddlewareChain(t *testing.T) {
	srv := startServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// An order placed on the storefront reaches a dashboard socket through the
// event bus and hub.
func TestOrderReachesDashboardSocket(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	dashboard := client.New(srv.URL)
	_, err := dashboard.Login(ctx, "admin@jush.com", "admin123")
	require.NoError(t, err)

	joined := make(chan struct{}, 1)
	arrived := make(chan models.Order, 1)
	updated := make(chan models.Order, 1)
	require.NoError(t, dashboard.ConnectSocket(ctx, client.SocketHandlers{
		OnJoined:       func() { joined <- struct{}{} },
		OnNewOrder:     func(o models.Order) { arrived <- o },
		OnOrderUpdated: func(o models.Order) { updated <- o },
	}))
	defer dashboard.DisconnectSocket()

	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("socket never joined the admin room")
	}

	placed, err := client.New(srv.URL).CreateOrder(ctx, sampleOrder())
	require.NoError(t, err)

	select {
	case o := <-arrived:
		assert.Equal(t, placed.OrderID, o.OrderID)
		assert.Equal(t, models.StatusPending, o.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("new-order never reached the socket")
	}

	_, err = dashboard.UpdateOrderStatus(ctx, placed.ID, models.StatusConfirmed)
	require.NoError(t, err)
	select {
	case o := <-updated:
		assert.Equal(t, models.StatusConfirmed, o.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("order-updated never reached the socket")
	}

	stats, err := dashboard.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalOrders)
}

func TestRouteTable(t *testing.T) {
	s, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer s.Close()

	names := map[string]bool{}
	for _, r := range s.Routes() {
		names[r.Name] = true
	}
	for _, want := range []string{"orders.store", "orders.status", "auth.login", "admin.users.destroy", "realtime.socket", "realtime.events", "health"} {
		assert.True(t, names[want], "route %s missing", want)
	}
}

func TestBootstrapMemory(t *testing.T) {
	created, err := Bootstrap(context.Background(), testConfig())
	require.NoError(t, err)
	assert.True(t, created)
}
