package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/app/repositories"
	"github.com/jushkitchen/jush/pkg/cache"
	"github.com/jushkitchen/jush/pkg/collection"
	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/metrics"
	"github.com/jushkitchen/jush/pkg/validate"
)

const (
	statsCacheKey  = "orders:stats"
	topItemsLimit  = 10
	defaultPerPage = 50
	maxPerPage     = 100
	maxPage        = math.MaxInt32 // keeps (page-1)*limit inside int64
)

// OrderStore is implemented by repositories.OrderRepository.
type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.Order, models.OrderStatus, error)
	Delete(ctx context.Context, id string) (*models.Order, error)
	Stats(ctx context.Context, dayStart, dayEnd time.Time) (models.OrderStats, error)
	Latest(ctx context.Context) (*models.Order, error)
}

// OrderService holds the order workflow: checkout, listing, status changes
// and the dashboard figures. Every mutation fires an event on the bus.
type OrderService struct {
	store    OrderStore
	bus      *event.Bus
	cache    cache.Store
	statsTTL time.Duration

	now     func() time.Time
	loc     *time.Location
	newID   func(time.Time) string
	retries int
}

type OrderOption func(*OrderService)

// WithStatsCache caches the overview for ttl.
func WithStatsCache(c cache.Store, ttl time.Duration) OrderOption {
	return func(s *OrderService) { s.cache, s.statsTTL = c, ttl }
}

// WithClock overrides the time source and the zone "today" is computed in.
func WithClock(now func() time.Time, loc *time.Location) OrderOption {
	return func(s *OrderService) { s.now, s.loc = now, loc }
}

func WithOrderIDs(fn func(time.Time) string) OrderOption {
	return func(s *OrderService) { s.newID = fn }
}

func NewOrderService(store OrderStore, bus *event.Bus, opts ...OrderOption) *OrderService {
	s := &OrderService{
		store:   store,
		bus:     bus,
		cache:   cache.Nop{},
		now:     time.Now,
		loc:     time.Local,
		newID:   NewOrderID,
		retries: 3,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates a checkout, stores it as a pending order and announces
// it with new-order.
func (s *OrderService) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if missingOrderFields(req) {
		return nil, ErrMissingFields
	}
	if err := validationError(validate.Struct(req)); err != nil {
		return nil, err
	}

	payment := req.PaymentMethod
	if payment == "" {
		payment = models.PaymentCash
	}

	now := s.now()
	o := &models.Order{
		CustomerName:        strings.TrimSpace(req.CustomerName),
		Phone:               strings.TrimSpace(req.Phone),
		Address:             strings.TrimSpace(req.Address),
		DeliveryAddress:     strings.TrimSpace(req.Address),
		Items:               req.Items,
		Subtotal:            req.Subtotal,
		Tax:                 req.Tax,
		DeliveryFee:         req.DeliveryFee,
		Total:               req.Total,
		PaymentMethod:       payment,
		Status:              models.StatusPending,
		OrderTime:           now,
		StatusUpdatedAt:     now,
		Notes:               req.Notes,
		SpecialInstructions: req.SpecialInstructions,
	}

	// orderId carries a unique index; a collision just draws another suffix.
	var err error
	for attempt := 0; attempt < s.retries; attempt++ {
		o.OrderID = s.newID(now)
		if err = s.store.Create(ctx, o); !errors.Is(err, repositories.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.OrdersCreated.WithLabelValues(string(payment)).Inc()
	logger.WithCtx(ctx).Info("order placed", "order_id", o.OrderID, "total", o.Total, "items", len(o.Items))

	s.invalidateStats(ctx)
	s.fire(ctx, event.NewOrder, o.ID.Hex(), o)
	return o, nil
}

func missingOrderFields(req models.CreateOrderRequest) bool {
	return strings.TrimSpace(req.CustomerName) == "" ||
		strings.TrimSpace(req.Phone) == "" ||
		strings.TrimSpace(req.Address) == "" ||
		len(req.Items) == 0 ||
		req.Total <= 0
}

// OrderPage is one page of a listing.
type OrderPage struct {
	Orders     []models.Order    `json:"orders"`
	Pagination models.Pagination `json:"pagination"`
}

// List returns orders newest first. A non-positive limit falls back to 50
// and larger limits are capped at 100.
func (s *OrderService) List(ctx context.Context, f models.OrderFilter) (*OrderPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if f.Limit <= 0 {
		f.Limit = defaultPerPage
	}
	f.Limit = min(f.Limit, maxPerPage)
	f.Page = min(max(f.Page, 1), maxPage)

	orders, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}

	return &OrderPage{
		Orders: orders,
		Pagination: models.Pagination{
			Total: total,
			Page:  f.Page,
			Limit: f.Limit,
			Pages: int(math.Ceil(float64(total) / float64(f.Limit))),
		},
	}, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, orderErr(err)
	}
	return o, nil
}

// UpdateStatus overwrites the order status. Any valid status is accepted
// from any current status; the dashboard offers the workflow, it is not
// enforced here.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if status == "" {
		return nil, ErrStatusRequired
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	o, previous, err := s.store.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, orderErr(err)
	}

	metrics.StatusTransitions.WithLabelValues(string(previous), string(status)).Inc()
	log := logger.WithCtx(ctx)
	if !models.CanTransition(previous, status) && previous != status {
		log.Warn("order status moved outside the workflow", "order_id", o.OrderID, "from", previous, "to", status)
	}
	log.Info("order status updated", "order_id", o.OrderID, "from", previous, "to", status)

	s.invalidateStats(ctx)
	s.fire(ctx, event.OrderUpdated, o.ID.Hex(), o)
	return o, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	o, err := s.store.Delete(ctx, id)
	if err != nil {
		return orderErr(err)
	}

	logger.WithCtx(ctx).Info("order deleted", "order_id", o.OrderID)
	s.invalidateStats(ctx)
	s.fire(ctx, event.OrderDeleted, o.ID.Hex(), map[string]string{"id": o.ID.Hex()})
	return nil
}

// Stats returns the dashboard overview, served from cache when fresh.
func (s *OrderService) Stats(ctx context.Context) (models.OrderStats, error) {
	var stats models.OrderStats
	if s.cache.Get(ctx, statsCacheKey, &stats) {
		return stats, nil
	}

	start, end := s.today()
	stats, err := s.store.Stats(ctx, start, end)
	if err != nil {
		return models.OrderStats{}, fmt.Errorf("order stats: %w", err)
	}

	if err := s.cache.Set(ctx, statsCacheKey, stats, s.statsTTL); err != nil {
		logger.WithCtx(ctx).Warn("stats cache write failed", "error", err)
	}
	return stats, nil
}

// today returns the bounds of the current local day.
func (s *OrderService) today() (time.Time, time.Time) {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// Analytics summarises non-cancelled orders placed in [from, to). Zero
// bounds are open.
func (s *OrderService) Analytics(ctx context.Context, from, to time.Time) (*models.SalesAnalytics, error) {
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, ErrInvalidDate
	}

	orders, _, err := s.store.List(ctx, models.OrderFilter{
		ExcludeStatus: models.StatusCancelled,
		From:          from,
		To:            to,
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}
	return summarise(orders), nil
}

func summarise(orders []models.Order) *models.SalesAnalytics {
	out := &models.SalesAnalytics{
		TotalOrders:  len(orders),
		TotalRevenue: collection.Sum(orders, func(o models.Order) float64 { return o.Total }),
		DailySales:   []models.DailySales{},
		TopItems:     []models.ItemSales{},
	}
	if len(orders) == 0 {
		return out
	}
	out.AvgOrderValue = out.TotalRevenue / float64(len(orders))

	days := collection.GroupBy(orders, func(o models.Order) string {
		return o.OrderTime.UTC().Format("2006-01-02")
	})
	out.DailySales = collection.SortBy(collection.Map(days, func(g collection.Group[models.Order]) models.DailySales {
		return models.DailySales{
			Date:    g.Key,
			Orders:  len(g.Items),
			Revenue: collection.Sum(g.Items, func(o models.Order) float64 { return o.Total }),
		}
	}), func(a, b models.DailySales) bool { return a.Date < b.Date })

	lines := collection.Flatten(collection.Map(orders, func(o models.Order) []models.OrderItem { return o.Items }))
	items := collection.Map(collection.GroupBy(lines, func(it models.OrderItem) string { return it.Name }),
		func(g collection.Group[models.OrderItem]) models.ItemSales {
			sale := models.ItemSales{Name: g.Key}
			for _, it := range g.Items {
				sale.Quantity += it.Quantity
				sale.Revenue += it.Price * float64(it.Quantity)
			}
			return sale
		})
	out.TopItems = collection.Take(collection.SortBy(items, func(a, b models.ItemSales) bool {
		return a.Quantity > b.Quantity
	}), topItemsLimit)

	return out
}

// Latest returns the newest order time, or the zero time when there are no
// orders. Pollers use it as a watermark.
func (s *OrderService) Latest(ctx context.Context) (time.Time, error) {
	o, err := s.store.Latest(ctx)
	if errors.Is(err, repositories.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest order: %w", err)
	}
	return o.OrderTime, nil
}

func (s *OrderService) invalidateStats(ctx context.Context) {
	if err := s.cache.Del(ctx, statsCacheKey); err != nil {
		logger.WithCtx(ctx).Warn("stats cache invalidation failed", "error", err)
	}
}

func (s *OrderService) fire(ctx context.Context, name, key string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Fire(ctx, event.Event{Name: name, Room: event.AdminRoom, Key: key, Data: data})
}

func orderErr(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}
