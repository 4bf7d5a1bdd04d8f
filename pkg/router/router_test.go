package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(v string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Chain", v)
			next.ServeHTTP(w, r)
		})
	}
}

func TestGroupRoutesAndMiddlewareOrder(t *testing.T) {
	r := New()
	api := r.Group("/api", tag("api"))
	orders := api.Group("orders/", tag("orders"))

	orders.Patch("/{id}/status", "orders.status", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, tag("handler"))

	req := httptest.NewRequest(http.MethodPatch, "/api/orders/abc/status", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"api", "orders", "handler"}, rec.Header().Values("X-Chain"))
}

func TestURLFromName(t *testing.T) {
	r := New()
	r.Group("/api/orders").Delete("/{id}", "orders.delete", func(http.ResponseWriter, *http.Request) {})

	u, err := r.URL("orders.delete", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/42", u)

	_, err = r.URL("orders.delete", nil)
	assert.Error(t, err)

	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesSorted(t *testing.T) {
	r := New()
	noop := func(http.ResponseWriter, *http.Request) {}
	r.Post("/api/orders", "orders.store", noop)
	r.Get("/api/orders", "orders.index", noop)
	r.Get("/api/health", "", noop)

	got := r.Routes()
	require.Len(t, got, 3)
	assert.Equal(t, Route{Method: http.MethodGet, Path: "/api/health"}, got[0])
	assert.Equal(t, "orders.index", got[1].Name)
	assert.Equal(t, "orders.store", got[2].Name)
}
