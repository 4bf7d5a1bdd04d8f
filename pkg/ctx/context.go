// Package ctx provides the request context handed to JUSH controllers.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler
// receives a single *Context with helpers for params, binding and the
// {"success":...} JSON envelope every endpoint answers with:
//
//	router.Get("/orders/{id}", "orders.show", ctx.Wrap(func(c *ctx.Context) {
//	    c.Success(ctx.H{"order": order})
//	}))
package ctx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jushkitchen/jush/pkg/bind"
	"github.com/jushkitchen/jush/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// H is a shorthand for the top-level fields of a response body.
type H map[string]any

// Wrap converts a HandlerFunc to a standard http.HandlerFunc so it can be
// passed to any router method.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	mu     sync.RWMutex
	store  map[string]any
	status int // 0 until written
}

var pool = sync.Pool{
	New: func() any { return &Context{store: make(map[string]any)} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	for k := range c.store {
		delete(c.store, k)
	}
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter (e.g. "/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a query-string value. Returns "" if not present.
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// DefaultQuery returns a query-string value, or def if it is empty.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// QueryInt parses a positive integer query value, falling back to def when
// absent, malformed or not positive.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Header returns the value of a request header.
func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// ClientIP returns the real client IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if real := c.R.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// ─── Per-request store ────────────────────────────────────────────────────────

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

// GetString returns a string value from the store, or "" if absent/wrong type.
func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// ─── Binding / Validation ─────────────────────────────────────────────────────

// BindJSON decodes the JSON body into dest and runs validation.
// On any failure it sends a 400 and returns false.
//
//	var input LoginInput
//	if !c.BindJSON(&input) {
//	    return // response already sent
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// ShouldBindJSON only decodes; the caller validates and responds.
func (c *Context) ShouldBindJSON(dest any) error {
	return bind.Decode(c.R, dest)
}

// ─── Response helpers ─────────────────────────────────────────────────────────

func (c *Context) SetHeader(key, value string) {
	c.W.Header().Set(key, value)
}

// JSON writes v with the given status code.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	c.status = code
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

// Success sends 200 {"success":true, ...fields}.
func (c *Context) Success(fields H) {
	c.JSON(http.StatusOK, ok(fields))
}

// Created sends 201 {"success":true, ...fields}.
func (c *Context) Created(fields H) {
	c.JSON(http.StatusCreated, ok(fields))
}

// Error sends {"success":false,"error":message} with the given status.
func (c *Context) Error(code int, message string) {
	c.JSON(code, H{"success": false, "error": message})
}

// ValidationError sends a 400 carrying the first message as "error" and the
// full field map as "errors".
func (c *Context) ValidationError(errs map[string]string) {
	c.JSON(http.StatusBadRequest, H{
		"success": false,
		"error":   validate.First(errs),
		"errors":  errs,
	})
}

func (c *Context) Unauthorized(message ...string) {
	c.Error(http.StatusUnauthorized, first(message, "Unauthorized"))
}

func (c *Context) Forbidden(message ...string) {
	c.Error(http.StatusForbidden, first(message, "Forbidden"))
}

func (c *Context) NotFound(message ...string) {
	c.Error(http.StatusNotFound, first(message, "Not found"))
}

// WrittenStatus returns the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }

func ok(fields H) H {
	body := make(H, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	return body
}

func first(msgs []string, def string) string {
	if len(msgs) > 0 {
		return msgs[0]
	}
	return def
}
