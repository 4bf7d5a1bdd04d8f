package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/app/services"
	"github.com/jushkitchen/jush/pkg/bind"
	"github.com/jushkitchen/jush/pkg/ctx"
	"github.com/jushkitchen/jush/pkg/logger"
)

const missingOrderFields = "Missing required fields: customerName, phone, address, items, total"

type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// Create handles POST /api/orders from the storefront.
func (oc *OrderController) Create(c *ctx.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, bind.ErrEmptyBody) {
			c.Error(http.StatusBadRequest, missingOrderFields)
			return
		}
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	order, err := oc.orders.Create(c.Context(), req)
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrMissingFields):
		c.Error(http.StatusBadRequest, missingOrderFields)
		return
	case errors.As(err, &verr):
		c.ValidationError(verr.Fields)
		return
	case err != nil:
		logger.WithCtx(c.Context()).Error("create order failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to create order")
		return
	}

	c.Created(ctx.H{"order": order.Summary()})
}

// Index handles GET /api/orders.
func (oc *OrderController) Index(c *ctx.Context) {
	f := models.OrderFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 50),
	}
	if status := c.Query("status"); status != "" && status != "all" {
		f.Status = models.OrderStatus(status)
	}

	var err error
	if f.From, f.To, err = dateRange(c); err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	page, err := oc.orders.List(c.Context(), f)
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		c.Error(http.StatusBadRequest, "Invalid status")
		return
	case err != nil:
		logger.WithCtx(c.Context()).Error("list orders failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to fetch orders")
		return
	}

	c.Success(ctx.H{"orders": page.Orders, "pagination": page.Pagination})
}

func (oc *OrderController) Show(c *ctx.Context) {
	order, err := oc.orders.Get(c.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.NotFound("Order not found")
		return
	case err != nil:
		logger.WithCtx(c.Context()).Error("fetch order failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to fetch order")
		return
	}
	c.Success(ctx.H{"order": order})
}

// UpdateStatus handles PATCH /api/orders/{id}/status.
func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, bind.ErrEmptyBody) {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	order, err := oc.orders.UpdateStatus(c.Context(), c.Param("id"), body.Status)
	switch {
	case errors.Is(err, services.ErrStatusRequired):
		c.Error(http.StatusBadRequest, "Status is required")
		return
	case errors.Is(err, services.ErrInvalidStatus):
		c.Error(http.StatusBadRequest, "Invalid status")
		return
	case errors.Is(err, services.ErrOrderNotFound):
		c.NotFound("Order not found")
		return
	case err != nil:
		logger.WithCtx(c.Context()).Error("update order status failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to update order status")
		return
	}
	c.Success(ctx.H{"order": order})
}

func (oc *OrderController) Destroy(c *ctx.Context) {
	err := oc.orders.Delete(c.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.NotFound("Order not found")
		return
	case err != nil:
		logger.WithCtx(c.Context()).Error("delete order failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to delete order")
		return
	}
	c.Success(ctx.H{"message": "Order deleted successfully"})
}

// Stats handles GET /api/orders/stats/overview.
func (oc *OrderController) Stats(c *ctx.Context) {
	stats, err := oc.orders.Stats(c.Context())
	if err != nil {
		logger.WithCtx(c.Context()).Error("order stats failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	c.Success(ctx.H{"stats": stats})
}

// Analytics handles GET /api/orders/stats/analytics.
func (oc *OrderController) Analytics(c *ctx.Context) {
	from, to, err := dateRange(c)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return
	}

	analytics, err := oc.orders.Analytics(c.Context(), from, to)
	switch {
	case errors.Is(err, services.ErrInvalidDate):
		c.Error(http.StatusBadRequest, "from must be before to")
		return
	case err != nil:
		logger.WithCtx(c.Context()).Error("order analytics failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to fetch analytics")
		return
	}
	c.Success(ctx.H{"analytics": analytics})
}

// Latest handles GET /api/orders/latest. latestOrderTime is null when no
// order exists yet.
func (oc *OrderController) Latest(c *ctx.Context) {
	at, err := oc.orders.Latest(c.Context())
	if err != nil {
		logger.WithCtx(c.Context()).Error("latest order failed", "error", err)
		c.Error(http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	var latest *time.Time
	if !at.IsZero() {
		latest = &at
	}
	c.Success(ctx.H{"latestOrderTime": latest})
}

// dateRange reads ?from= and ?to=. Both accept RFC 3339 or YYYY-MM-DD; a
// bare date in "to" includes that whole day.
func dateRange(c *ctx.Context) (from, to time.Time, err error) {
	if from, _, err = parseDate(c.Query("from")); err != nil {
		return time.Time{}, time.Time{}, errors.New("Invalid from date")
	}
	var dateOnly bool
	if to, dateOnly, err = parseDate(c.Query("to")); err != nil {
		return time.Time{}, time.Time{}, errors.New("Invalid to date")
	}
	if dateOnly {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	return t, true, err
}
