// Package telemetry configures OpenTelemetry tracing. Spans are exported over
// OTLP/gRPC only when an endpoint is configured; propagation is always on so
// trace context still reaches Kafka headers.
package telemetry

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Init installs the global propagator and, when endpoint is non-empty, a
// batching tracer provider exporting to it.
func Init(ctx context.Context, endpoint, service, version string) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Middleware starts a server span per request. Once chi has routed the
// request the span is renamed after the route pattern. otelhttp renames the
// span itself when the request it passed down carries r.Pattern, so it gets
// the same formatter.
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		routed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			rc := chi.RouteContext(r.Context())
			if rc == nil || rc.RoutePattern() == "" {
				return
			}
			pattern := rc.RoutePattern()
			span := trace.SpanFromContext(r.Context())
			span.SetName(r.Method + " " + pattern)
			span.SetAttributes(semconv.HTTPRoute(pattern))
		})
		return otelhttp.NewHandler(routed, service, otelhttp.WithSpanNameFormatter(SpanName))
	}
}

// SpanName names a server span "METHOD /route/{param}" when the route is
// known and falls back to operation otherwise. chi's full pattern wins over
// r.Pattern, which only holds the innermost sub-router's part.
func SpanName(operation string, r *http.Request) string {
	if p := chi.RouteContext(r.Context()).RoutePattern(); p != "" {
		return r.Method + " " + p
	}
	if r.Pattern != "" {
		return r.Method + " " + r.Pattern
	}
	return operation
}
