// Package middleware provides the HTTP middleware chain of the JUSH API.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jushkitchen/jush/pkg/response"
)

// bucket tracks a fixed-window request count for one client IP.
type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

func (b *bucket) allow(max int, window time.Duration, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.After(b.resetAt) {
		b.count = 0
		b.resetAt = now.Add(window)
	}

	b.count++
	return b.count <= max
}

// RateLimiter limits each client IP to Max requests per Window.
type RateLimiter struct {
	Max    int
	Window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		Max:     max,
		Window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Run evicts expired buckets every window until ctx is cancelled.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

func (l *RateLimiter) evict() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		b.mu.Lock()
		expired := now.After(b.resetAt)
		b.mu.Unlock()
		if expired {
			delete(l.buckets, ip)
		}
	}
}

func (l *RateLimiter) bucket(ip string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{resetAt: l.now().Add(l.Window)}
		l.buckets[ip] = b
	}
	return b
}

// Middleware answers 429 once a client exceeds its budget.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Max > 0 && !l.bucket(clientIP(r)).allow(l.Max, l.Window, l.now()) {
			response.TooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
