package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jushkitchen/jush/app/models"
)

// CreateOrder places a storefront order. No token is needed.
func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.OrderSummary, error) {
	var out struct {
		Order models.OrderSummary `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// OrderQuery filters GetOrders. Zero fields are left to the server defaults.
type OrderQuery struct {
	Status models.OrderStatus
	Search string
	Page   int
	Limit  int
	From   time.Time
	To     time.Time
}

func (q OrderQuery) encode() string {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.From.IsZero() {
		v.Set("from", q.From.Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.Format(time.RFC3339))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// OrderList is one page of GET /api/orders.
type OrderList struct {
	Orders     []models.Order    `json:"orders"`
	Pagination models.Pagination `json:"pagination"`
}

func (c *Client) GetOrders(ctx context.Context, q OrderQuery) (*OrderList, error) {
	var out OrderList
	if err := c.do(ctx, http.MethodGet, "/api/orders"+q.encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var out struct {
		Order models.Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	var out struct {
		Order models.Order `json:"order"`
	}
	body := map[string]models.OrderStatus{"status": status}
	if err := c.do(ctx, http.MethodPatch, "/api/orders/"+url.PathEscape(id)+"/status", body, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/orders/"+url.PathEscape(id), nil, nil)
}

func (c *Client) GetStats(ctx context.Context) (*models.OrderStats, error) {
	var out struct {
		Stats models.OrderStats `json:"stats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/orders/stats/overview", nil, &out); err != nil {
		return nil, err
	}
	return &out.Stats, nil
}

// GetAnalytics summarises sales between from and to. Zero times use the
// server's default window.
func (c *Client) GetAnalytics(ctx context.Context, from, to time.Time) (*models.SalesAnalytics, error) {
	path := "/api/orders/stats/analytics" + OrderQuery{From: from, To: to}.encode()

	var out struct {
		Analytics models.SalesAnalytics `json:"analytics"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Analytics, nil
}

// LatestOrderTime returns when the newest order was placed, or the zero time
// when there are none.
func (c *Client) LatestOrderTime(ctx context.Context) (time.Time, error) {
	var out struct {
		Latest *time.Time `json:"latestOrderTime"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/orders/latest", nil, &out); err != nil {
		return time.Time{}, err
	}
	if out.Latest == nil {
		return time.Time{}, nil
	}
	return *out.Latest, nil
}

// WatchOrders polls for new orders every interval and calls fn with the
// newest order time whenever it moves forward. It is the fallback for when
// the socket is unavailable. The first poll only records a baseline. It
// returns nil when ctx is cancelled, or the first 401.
func (c *Client) WatchOrders(ctx context.Context, interval time.Duration, fn func(latest time.Time)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	seen, err := c.LatestOrderTime(ctx)
	if err != nil {
		if isUnauthorized(err) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		latest, err := c.LatestOrderTime(ctx)
		switch {
		case isUnauthorized(err):
			return err
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if latest.After(seen) {
			seen = latest
			fn(latest)
		}
	}
}
