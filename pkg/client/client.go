// Package client is the JUSH REST and socket client used by the storefront,
// the admin dashboard and `jush orders:watch`.
//
//	c := client.New("http://localhost:5000",
//	    client.WithRetry(3, 500*time.Millisecond),
//	    client.WithTokenStore(store))
//	admin, err := c.Login(ctx, "admin@jush.com", "admin123")
//	page, err := c.GetOrders(ctx, client.OrderQuery{Status: models.StatusPending})
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jushkitchen/jush/pkg/logger"
)

// ErrUnauthorized is matched by *APIError for 401 responses.
var ErrUnauthorized = errors.New("client: unauthorized")

// APIError is a non-2xx response carrying the server's "error" message.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string // validation errors, when present
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %d %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type Option func(*Client)

// WithHTTPClient replaces the pooled default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithToken starts the client already authenticated.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithRetry sets total attempts for idempotent requests; wait doubles after
// each failure.
func WithRetry(attempts int, wait time.Duration) Option {
	return func(c *Client) {
		c.retries = max(attempts, 1)
		c.retryWait = wait
	}
}

// WithTokenStore loads a saved token now and keeps the store in step with
// Login, Logout and 401 responses.
func WithTokenStore(s TokenStore) Option { return func(c *Client) { c.store = s } }

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option { return func(c *Client) { c.dialer = d } }

// Client talks to one JUSH server. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	store     TokenStore
	dialer    *websocket.Dialer

	mu     sync.RWMutex
	token  string
	socket *socket
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}},
		timeout:   30 * time.Second,
		retries:   1,
		retryWait: 500 * time.Millisecond,
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store != nil && c.token == "" {
		tok, err := c.store.Load()
		if err != nil {
			logger.Warn("client: saved token unreadable, ignoring", "error", err)
		}
		c.token = tok
	}
	return c
}

// Token returns the current bearer token, or "".
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Authenticated reports whether a token is held.
func (c *Client) Authenticated() bool { return c.Token() != "" }

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	var err error
	if token == "" {
		err = c.store.Clear()
	} else {
		err = c.store.Save(token)
	}
	if err != nil {
		logger.Warn("client: token store update failed", "error", err)
	}
}

// envelope is the response shape shared by every endpoint.
type envelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

// do sends one API call and decodes the success body into out. A 401 drops
// the held token, the same as logging out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("client: marshal body: %w", err)
		}
	}

	attempts := c.retries
	if method == http.MethodPost {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		status, raw, err := c.send(ctx, method, path, payload)
		if err == nil {
			return c.decode(status, raw, out)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			backoff := time.Duration(float64(c.retryWait) * math.Pow(2, float64(attempt-1)))
			logger.Warn("client: request failed, retrying", "path", path, "attempt", attempt, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("client: %s %s: %w", method, path, lastErr)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) decode(status int, raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Status: status, Message: strings.TrimSpace(string(raw))}
	}

	if status < 200 || status >= 300 || !env.Success {
		if status == http.StatusUnauthorized && c.Authenticated() {
			logger.Info("client: token rejected, logging out")
			c.setToken("")
		}
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Message: msg, Fields: env.Errors}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// HealthStatus is returned by GET /api/health.
type HealthStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
