package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/app/repositories"
	"github.com/jushkitchen/jush/pkg/event"
)

var fixedNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

type recorded struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorded) handler(_ context.Context, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorded) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

func newOrderService(t *testing.T, opts ...OrderOption) (*OrderService, *repositories.MemoryOrderRepository, *recorded) {
	t.Helper()
	store := repositories.NewMemoryOrderRepository()
	bus := event.NewBus()
	rec := &recorded{}
	bus.Listen("*", rec.handler)
	opts = append([]OrderOption{WithClock(func() time.Time { return fixedNow }, time.UTC)}, opts...)
	return NewOrderService(store, bus, opts...), store, rec
}

func checkout() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		CustomerName: "Amina",
		Phone:        "+254700000000",
		Address:      "Moi Avenue 12",
		Items: []models.OrderItem{
			{ID: "1", Name: "Pilau", Price: 450, Quantity: 2},
			{ID: "2", Name: "Chai", Price: 100, Quantity: 1},
		},
		Subtotal: 1000,
		Tax:      160,
		Total:    1160,
	}
}

func TestCreateOrder(t *testing.T) {
	svc, store, rec := newOrderService(t)

	o, err := svc.Create(context.Background(), checkout())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^JUSH-\d{13}-[0-9A-Z]{4}$`), o.OrderID)
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, models.PaymentCash, o.PaymentMethod)
	assert.Equal(t, fixedNow, o.OrderTime)
	assert.Equal(t, "Moi Avenue 12", o.DeliveryAddress)
	assert.False(t, o.ID.IsZero())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []string{event.NewOrder}, rec.names())
	assert.Equal(t, o.ID.Hex(), rec.events[0].Key)
}

func TestCreateOrderRejectsMissingFields(t *testing.T) {
	cases := map[string]func(r *models.CreateOrderRequest){
		"customerName": func(r *models.CreateOrderRequest) { r.CustomerName = " " },
		"phone":        func(r *models.CreateOrderRequest) { r.Phone = "" },
		"address":      func(r *models.CreateOrderRequest) { r.Address = "" },
		"items":        func(r *models.CreateOrderRequest) { r.Items = nil },
		"total":        func(r *models.CreateOrderRequest) { r.Total = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, store, rec := newOrderService(t)
			req := checkout()
			mutate(&req)

			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, ErrMissingFields)
			assert.Zero(t, store.Len())
			assert.Empty(t, rec.names())
		})
	}
}

func TestCreateOrderValidatesShape(t *testing.T) {
	svc, _, _ := newOrderService(t)

	req := checkout()
	req.Items[1].Quantity = 0
	req.PaymentMethod = "bitcoin"

	_, err := svc.Create(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items[1].quantity")
	assert.Equal(t, "paymentMethod must be one of: cash, card, online", verr.Fields["paymentMethod"])
}

func TestCreateOrderRetriesOrderIDCollision(t *testing.T) {
	ids := []string{"JUSH-1-AAAA", "JUSH-1-AAAA", "JUSH-1-BBBB"}
	n := 0
	next := func(time.Time) string { id := ids[n]; n++; return id }
	svc, _, _ := newOrderService(t, WithOrderIDs(next))

	_, err := svc.Create(context.Background(), checkout())
	require.NoError(t, err)
	o, err := svc.Create(context.Background(), checkout())
	require.NoError(t, err)
	assert.Equal(t, "JUSH-1-BBBB", o.OrderID)
}

func TestCreateOrderPersistenceFailure(t *testing.T) {
	svc, store, rec := newOrderService(t)
	store.FailWith(errors.New("connection reset"))

	_, err := svc.Create(context.Background(), checkout())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingFields)
	assert.Empty(t, rec.names())
}

func TestUpdateStatus(t *testing.T) {
	svc, _, rec := newOrderService(t)
	o, err := svc.Create(context.Background(), checkout())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), o.ID.Hex(), models.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, updated.Status)
	assert.Equal(t, fixedNow, updated.StatusUpdatedAt)
	assert.Equal(t, []string{event.NewOrder, event.OrderUpdated}, rec.names())

	// Any valid status may follow any other.
	back, err := svc.UpdateStatus(context.Background(), o.ID.Hex(), models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, back.Status)
}

func TestUpdateStatusErrors(t *testing.T) {
	svc, _, rec := newOrderService(t)
	o, err := svc.Create(context.Background(), checkout())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), o.ID.Hex(), "")
	assert.ErrorIs(t, err, ErrStatusRequired)

	_, err = svc.UpdateStatus(context.Background(), o.ID.Hex(), "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), "65f0c0ffee65f0c0ffee65f0", models.StatusReady)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.UpdateStatus(context.Background(), "not-an-id", models.StatusReady)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	assert.Equal(t, []string{event.NewOrder}, rec.names())
}

func TestDeleteOrder(t *testing.T) {
	svc, store, rec := newOrderService(t)
	o, err := svc.Create(context.Background(), checkout())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), o.ID.Hex()))
	assert.Zero(t, store.Len())
	assert.Equal(t, []string{event.NewOrder, event.OrderDeleted}, rec.names())
	assert.Equal(t, map[string]string{"id": o.ID.Hex()}, rec.events[1].Data)

	assert.ErrorIs(t, svc.Delete(context.Background(), o.ID.Hex()), ErrOrderNotFound)
}

func TestListPaginates(t *testing.T) {
	svc, store, _ := newOrderService(t)
	for i := 0; i < 5; i++ {
		o := &models.Order{OrderID: "JUSH-" + string(rune('a'+i)), CustomerName: "c", Status: models.StatusPending,
			OrderTime: fixedNow.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.Create(context.Background(), o))
	}

	page, err := svc.List(context.Background(), models.OrderFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Total: 5, Page: 2, Limit: 2, Pages: 3}, page.Pagination)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "JUSH-c", page.Orders[0].OrderID)

	page, err = svc.List(context.Background(), models.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, 50, page.Pagination.Limit)
	assert.Equal(t, 1, page.Pagination.Page)

	_, err = svc.List(context.Background(), models.OrderFilter{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestListClampsHugePages(t *testing.T) {
	svc, store, _ := newOrderService(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(context.Background(), &models.Order{
			OrderID: "JUSH-" + string(rune('a'+i)), Status: models.StatusPending, OrderTime: fixedNow,
		}))
	}

	var (
		page *OrderPage
		err  error
	)
	require.NotPanics(t, func() {
		page, err = svc.List(context.Background(), models.OrderFilter{Page: 3, Limit: 1 << 62})
	})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Pagination.Limit)
	assert.Empty(t, page.Orders)
	assert.EqualValues(t, 3, page.Pagination.Total)

	page, err = svc.List(context.Background(), models.OrderFilter{Page: 1 << 62, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
}

func TestStatsAreCachedAndInvalidated(t *testing.T) {
	c := newCountingCache()
	svc, store, _ := newOrderService(t, WithStatsCache(c, time.Minute))

	yesterday := &models.Order{OrderID: "old", Status: models.StatusDelivered, Total: 300, OrderTime: fixedNow.AddDate(0, 0, -1)}
	require.NoError(t, store.Create(context.Background(), yesterday))
	o, err := svc.Create(context.Background(), checkout())
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OrderStats{
		TotalOrders: 2, TodayOrders: 1, PendingOrders: 1, DeliveredOrders: 1,
		TotalRevenue: 1460, TodayRevenue: 1160,
	}, stats)
	assert.Equal(t, 1, c.sets)

	_, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.sets, "second read should be served from cache")

	_, err = svc.UpdateStatus(context.Background(), o.ID.Hex(), models.StatusReady)
	require.NoError(t, err)
	stats, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ReadyOrders)
	assert.Equal(t, 2, c.sets)
}

func TestAnalytics(t *testing.T) {
	svc, store, _ := newOrderService(t)
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	seed := []*models.Order{
		{OrderID: "a", Status: models.StatusDelivered, Total: 100, OrderTime: day2,
			Items: []models.OrderItem{{Name: "Chai", Price: 50, Quantity: 2}}},
		{OrderID: "b", Status: models.StatusReady, Total: 300, OrderTime: day1,
			Items: []models.OrderItem{{Name: "Pilau", Price: 300, Quantity: 1}, {Name: "Chai", Price: 50, Quantity: 1}}},
		{OrderID: "c", Status: models.StatusCancelled, Total: 999, OrderTime: day1,
			Items: []models.OrderItem{{Name: "Pilau", Price: 999, Quantity: 9}}},
	}
	for _, o := range seed {
		require.NoError(t, store.Create(context.Background(), o))
	}

	a, err := svc.Analytics(context.Background(), day1.AddDate(0, 0, -1), day2.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, 2, a.TotalOrders)
	assert.InDelta(t, 400, a.TotalRevenue, 0.001)
	assert.InDelta(t, 200, a.AvgOrderValue, 0.001)
	assert.Equal(t, []models.DailySales{
		{Date: "2026-03-01", Revenue: 300, Orders: 1},
		{Date: "2026-03-02", Revenue: 100, Orders: 1},
	}, a.DailySales)
	require.Len(t, a.TopItems, 2)
	assert.Equal(t, models.ItemSales{Name: "Chai", Quantity: 3, Revenue: 150}, a.TopItems[0])

	_, err = svc.Analytics(context.Background(), day2, day1)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestAnalyticsEmptyRange(t *testing.T) {
	svc, _, _ := newOrderService(t)
	a, err := svc.Analytics(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, a.TotalOrders)
	assert.NotNil(t, a.DailySales)
	assert.NotNil(t, a.TopItems)
}

func TestLatest(t *testing.T) {
	svc, _, _ := newOrderService(t)

	at, err := svc.Latest(context.Background())
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	_, err = svc.Create(context.Background(), checkout())
	require.NoError(t, err)
	at, err = svc.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixedNow, at)
}

func TestLatestSurfacesStoreFailure(t *testing.T) {
	svc, store, _ := newOrderService(t)
	store.FailWith(errors.New("connection reset"))

	_, err := svc.Latest(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestNewOrderIDFormat(t *testing.T) {
	id := NewOrderID(time.UnixMilli(1712345678901))
	assert.Regexp(t, `^JUSH-1712345678901-[0-9A-Z]{4}$`, id)
}
