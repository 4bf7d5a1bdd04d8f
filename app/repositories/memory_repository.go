package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jushkitchen/jush/app/models"
)

// MemoryOrderRepository keeps orders in process memory. It backs tests and
// STORE_DRIVER=memory for local development; nothing survives a restart.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
	err    error
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[primitive.ObjectID]*models.Order)}
}

func (m *MemoryOrderRepository) EnsureIndexes(context.Context) error { return nil }

// FailWith makes Create and List return err until it is cleared with nil.
func (m *MemoryOrderRepository) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Len returns the number of stored orders.
func (m *MemoryOrderRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *MemoryOrderRepository) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.orders {
		if existing.OrderID == o.OrderID {
			return ErrDuplicate
		}
	}
	now := time.Now()
	o.ID = primitive.NewObjectID()
	o.CreatedAt, o.UpdatedAt = now, now
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MemoryOrderRepository) lookup(id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	o, ok := m.orders[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *MemoryOrderRepository) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryOrderRepository) List(_ context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}

	var out []models.Order
	for _, o := range m.orders {
		switch {
		case f.Status != "" && o.Status != f.Status:
			continue
		case f.ExcludeStatus != "" && o.Status == f.ExcludeStatus:
			continue
		case !f.From.IsZero() && o.OrderTime.Before(f.From):
			continue
		case !f.To.IsZero() && !o.OrderTime.Before(f.To):
			continue
		case f.Search != "" &&
			!strings.Contains(strings.ToLower(o.CustomerName), strings.ToLower(f.Search)) &&
			!strings.Contains(strings.ToLower(o.OrderID), strings.ToLower(f.Search)):
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderTime.After(out[j].OrderTime) })

	total := int64(len(out))
	if f.Limit > 0 {
		start := len(out)
		if page := max(f.Page, 1); page-1 < len(out)/f.Limit+1 {
			start = min((page-1)*f.Limit, len(out))
		}
		out = out[start:min(start+min(f.Limit, len(out)), len(out))]
	}
	return out, total, nil
}

func (m *MemoryOrderRepository) UpdateStatus(_ context.Context, id string, status models.OrderStatus, at time.Time) (*models.Order, models.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.lookup(id)
	if err != nil {
		return nil, "", err
	}
	prev := o.Status
	o.Status, o.StatusUpdatedAt, o.UpdatedAt = status, at, at
	cp := *o
	return &cp, prev, nil
}

func (m *MemoryOrderRepository) Delete(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(m.orders, o.ID)
	return o, nil
}

func (m *MemoryOrderRepository) Stats(_ context.Context, dayStart, dayEnd time.Time) (models.OrderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s models.OrderStats
	for _, o := range m.orders {
		s.TotalOrders++
		s.TotalRevenue += o.Total
		if !o.OrderTime.Before(dayStart) && o.OrderTime.Before(dayEnd) {
			s.TodayOrders++
			s.TodayRevenue += o.Total
		}
		switch o.Status {
		case models.StatusPending:
			s.PendingOrders++
		case models.StatusInProgress:
			s.InProgressOrders++
		case models.StatusReady:
			s.ReadyOrders++
		case models.StatusDelivered:
			s.DeliveredOrders++
		}
	}
	return s, nil
}

// Latest returns the most recently placed order.
func (m *MemoryOrderRepository) Latest(ctx context.Context) (*models.Order, error) {
	orders, _, err := m.List(ctx, models.OrderFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

// MemoryAdminRepository is the in-memory counterpart of AdminRepository.
type MemoryAdminRepository struct {
	mu     sync.Mutex
	admins map[primitive.ObjectID]*models.Admin
}

func NewMemoryAdminRepository() *MemoryAdminRepository {
	return &MemoryAdminRepository{admins: make(map[primitive.ObjectID]*models.Admin)}
}

func (m *MemoryAdminRepository) EnsureIndexes(context.Context) error { return nil }

func (m *MemoryAdminRepository) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.admins)), nil
}

func (m *MemoryAdminRepository) Create(_ context.Context, a *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Email = normalizeEmail(a.Email)
	for _, existing := range m.admins {
		if existing.Email == a.Email {
			return ErrDuplicate
		}
	}
	now := time.Now()
	a.ID = primitive.NewObjectID()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	m.admins[a.ID] = &cp
	return nil
}

func (m *MemoryAdminRepository) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == normalizeEmail(email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryAdminRepository) FindByID(_ context.Context, id string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	a, ok := m.admins[oid]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryAdminRepository) List(context.Context) ([]models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Admin, 0, len(m.admins))
	for _, a := range m.admins {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryAdminRepository) Update(_ context.Context, a *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[a.ID]; !ok {
		return ErrNotFound
	}
	a.UpdatedAt = time.Now()
	cp := *a
	m.admins[a.ID] = &cp
	return nil
}

func (m *MemoryAdminRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	if _, ok := m.admins[oid]; !ok {
		return ErrNotFound
	}
	delete(m.admins, oid)
	return nil
}

