// Package cart is the storefront's client-side cart: line items keyed by menu
// id with a running item count and total, persisted on every change.
package cart

import (
	"fmt"
	"sync"

	"github.com/jushkitchen/jush/app/models"
)

// Item is one cart line.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Category string  `json:"category"`
	Image    string  `json:"image"`
}

// Cart is safe for concurrent use.
type Cart struct {
	mu        sync.RWMutex
	items     []Item
	itemCount int
	total     float64
	store     Persister
}

// New returns an empty cart. A nil store disables persistence.
func New(store Persister) *Cart {
	if store == nil {
		store = nopPersister{}
	}
	return &Cart{store: store}
}

// Load returns a cart restored from store. A missing snapshot yields an
// empty cart.
func Load(store Persister) (*Cart, error) {
	c := New(store)
	items, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}
	for _, it := range items {
		if it.ID == "" || it.Quantity <= 0 {
			continue
		}
		c.items = append(c.items, it)
	}
	c.recompute()
	return c, nil
}

// Add appends item, or increments the quantity of an existing line with the
// same id. A non-positive quantity counts as one.
func (c *Cart) Add(item Item) error {
	if item.ID == "" {
		return fmt.Errorf("cart: item id is required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(item.ID); i >= 0 {
		c.items[i].Quantity += item.Quantity
	} else {
		c.items = append(c.items, item)
	}
	return c.commit()
}

// Update sets the quantity of id; zero or less removes the line.
// Unknown ids are ignored.
func (c *Cart) Update(id string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return nil
	}
	c.items[i].Quantity = quantity
	return c.commit()
}

func (c *Cart) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return nil
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return c.commit()
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	return c.commit()
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Item(nil), c.items...)
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.itemCount
}

// Total is Σ price × quantity.
func (c *Cart) Total() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

func (c *Cart) Has(id string) bool {
	return c.Quantity(id) > 0
}

// Quantity returns how many of id are in the cart, or 0.
func (c *Cart) Quantity(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

func (c *Cart) IsEmpty() bool {
	return c.ItemCount() == 0
}

func (c *Cart) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// commit recomputes the derived totals and persists. Callers hold c.mu.
func (c *Cart) commit() error {
	c.recompute()
	if err := c.store.Save(c.items); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}

func (c *Cart) recompute() {
	c.itemCount = 0
	c.total = 0
	for _, it := range c.items {
		c.itemCount += it.Quantity
		c.total += it.Price * float64(it.Quantity)
	}
}

// snapshot converts the lines to the order payload shape together with
// their subtotal, both read under one lock.
func (c *Cart) snapshot() ([]models.OrderItem, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.OrderItem, len(c.items))
	for i, it := range c.items {
		out[i] = models.OrderItem{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Category: it.Category,
			Image:    it.Image,
		}
	}
	return out, c.total
}
