package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "jush-api", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NotNil(t, otel.GetTextMapPropagator())
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestMiddlewareNamesSpanAfterRoute(t *testing.T) {
	rec := recordSpans(t)

	r := chi.NewRouter()
	r.Use(Middleware("jush-api"))
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/65f0", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/orders/{id}", spans[0].Name())
}

type ctxKey struct{}

func TestMiddlewareNamesSpanForSubRouter(t *testing.T) {
	for _, wrap := range []bool{false, true} {
		rec := recordSpans(t)

		r := chi.NewRouter()
		r.Use(Middleware("jush-api"))
		if wrap {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, "x")))
				})
			})
		}
		r.Route("/api/orders", func(r chi.Router) {
			r.Patch("/{id}/status", func(http.ResponseWriter, *http.Request) {})
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, "/api/orders/65f0/status", nil))

		spans := rec.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "PATCH /api/orders/{id}/status", spans[0].Name(), "wrapped=%v", wrap)
	}
}

func TestSpanNameWithoutRouteContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	assert.Equal(t, "jush-api", SpanName("jush-api", req))

	req.Pattern = "/api/health"
	assert.Equal(t, "GET /api/health", SpanName("jush-api", req))
}

func TestMiddlewareKeepsOperationForUnmatched(t *testing.T) {
	rec := recordSpans(t)

	r := chi.NewRouter()
	r.Use(Middleware("jush-api"))
	r.Get("/api/health", func(http.ResponseWriter, *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "jush-api", spans[0].Name())
}
