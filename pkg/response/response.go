// Package response writes the JSON envelope from plain http.Handlers
// (middleware, websocket upgrade failures) that have no *ctx.Context.
package response

import (
	"encoding/json"
	"net/http"
)

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// JSON sends {"success":true, ...fields} with the given status.
func JSON(w http.ResponseWriter, status int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	write(w, status, body)
}

// Error sends {"success":false,"error":message}.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, map[string]any{"success": false, "error": message})
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func Forbidden(w http.ResponseWriter) {
	Error(w, http.StatusForbidden, "Forbidden")
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Route not found")
}

func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, "Too many requests")
}
