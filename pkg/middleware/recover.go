package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/response"
)

// Recovery turns a handler panic into a logged 500 "Something went wrong!".
// Mount it inside Logger so the panic record carries the request_id:
//
//	r.Use(metrics.Middleware())
//	r.Use(reqid.Middleware())
//	r.Use(middleware.Logger)
//	r.Use(middleware.Recovery)
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.WithCtx(r.Context()).Error("panic recovered",
					"error", fmt.Sprintf("%v", err),
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				)
				response.Error(w, http.StatusInternalServerError, "Something went wrong!")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
