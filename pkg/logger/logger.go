// Package logger provides the process-wide structured logger built on
// log/slog.
//
// Handlers pick up the request-scoped logger with WithCtx so every line is
// correlated by request_id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order created", "order_id", order.OrderID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/jushkitchen/jush/config"
)

var L *slog.Logger

func init() {
	L = slog.New(newHandler(os.Stdout, config.IsProduction()))
	slog.SetDefault(L)
}

// newHandler returns JSON output for production and text output otherwise.
func newHandler(w io.Writer, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Tee adds h as a second destination for every record logged through L.
func Tee(h slog.Handler) {
	L = slog.New(NewMultiHandler(L.Handler(), h))
	slog.SetDefault(L)
}

// Discard silences the package logger. Tests use it to keep output clean.
func Discard() {
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ctxKey struct{}

// WithCtx returns the logger stored by InjectLogger, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger in ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
