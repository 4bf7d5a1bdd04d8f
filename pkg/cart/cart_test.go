package cart

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jushkitchen/jush/app/models"
)

var (
	zinger = Item{ID: "zinger-burger", Name: "Zinger Burger", Price: 349, Category: "burgers"}
	fries  = Item{ID: "fries", Name: "Loaded Fries", Price: 150, Category: "sides"}
	shake  = Item{ID: "shake", Name: "Oreo Shake", Price: 275.5, Category: "drinks"}
)

type memPersister struct {
	items []Item
	saves int
	err   error
}

func (m *memPersister) Load() ([]Item, error) { return m.items, m.err }
func (m *memPersister) Save(items []Item) error {
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.items = append([]Item(nil), items...)
	return nil
}

func sum(items []Item) float64 {
	var s float64
	for _, it := range items {
		s += it.Price * float64(it.Quantity)
	}
	return s
}

func TestAddExistingIncrementsQuantity(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Add(zinger))
	require.NoError(t, c.Add(zinger))
	require.NoError(t, c.Add(Item{ID: "zinger-burger", Price: 349, Quantity: 3}))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, 5, c.ItemCount())
	assert.InDelta(t, 5*349.0, c.Total(), 1e-9)
}

func TestUpdateAndRemove(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Add(zinger))
	require.NoError(t, c.Add(fries))

	require.NoError(t, c.Update("fries", 4))
	assert.Equal(t, 4, c.Quantity("fries"))
	assert.Equal(t, 5, c.ItemCount())

	require.NoError(t, c.Update("fries", 0))
	assert.False(t, c.Has("fries"))
	assert.Len(t, c.Items(), 1)

	require.NoError(t, c.Update("unknown", 3))
	assert.Equal(t, 1, c.ItemCount())

	require.NoError(t, c.Remove("zinger-burger"))
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.Total())
}

func TestTotalMatchesLinesAfterRandomMutations(t *testing.T) {
	menu := []Item{zinger, fries, shake}
	c := New(nil)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		it := menu[rng.Intn(len(menu))]
		switch rng.Intn(4) {
		case 0, 1:
			require.NoError(t, c.Add(it))
		case 2:
			require.NoError(t, c.Update(it.ID, rng.Intn(5)))
		case 3:
			require.NoError(t, c.Remove(it.ID))
		}

		items := c.Items()
		assert.InDelta(t, sum(items), c.Total(), 1e-6)
		count := 0
		for _, l := range items {
			count += l.Quantity
			assert.Positive(t, l.Quantity)
		}
		assert.Equal(t, count, c.ItemCount())
	}
}

func TestEveryMutationPersists(t *testing.T) {
	store := &memPersister{}
	c := New(store)

	require.NoError(t, c.Add(zinger))
	require.NoError(t, c.Update("zinger-burger", 2))
	require.NoError(t, c.Remove("zinger-burger"))
	require.NoError(t, c.Clear())

	assert.Equal(t, 4, store.saves)
	assert.Empty(t, store.items)
}

func TestSaveErrorIsReturned(t *testing.T) {
	c := New(&memPersister{err: errors.New("disk full")})
	assert.ErrorContains(t, c.Add(zinger), "disk full")
}

func TestAddRequiresID(t *testing.T) {
	assert.Error(t, New(nil).Add(Item{Name: "nameless"}))
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cart.json")

	empty, err := Load(NewFilePersister(path))
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	c := New(NewFilePersister(path))
	require.NoError(t, c.Add(Item{ID: "shake", Name: "Oreo Shake", Price: 275.5, Quantity: 2}))
	require.NoError(t, c.Add(fries))

	restored, err := Load(NewFilePersister(path))
	require.NoError(t, err)
	assert.Equal(t, c.Items(), restored.Items())
	assert.Equal(t, 3, restored.ItemCount())
	assert.InDelta(t, 701.0, restored.Total(), 1e-9)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(NewFilePersister(path))
	assert.Error(t, err)
}

func TestLoadSkipsInvalidLines(t *testing.T) {
	c, err := Load(&memPersister{items: []Item{{ID: "", Quantity: 1}, {ID: "fries", Price: 150, Quantity: 0}, {ID: "shake", Price: 100, Quantity: 2}}})
	require.NoError(t, err)
	assert.Len(t, c.Items(), 1)
	assert.InDelta(t, 200.0, c.Total(), 1e-9)
}

func TestConcurrentAdds(t *testing.T) {
	c := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Add(fries)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Quantity("fries"))
	assert.InDelta(t, 7500.0, c.Total(), 1e-9)
}

func TestCheckout(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Add(Item{ID: "zinger-burger", Name: "Zinger Burger", Price: 349, Quantity: 2}))
	require.NoError(t, c.Add(fries))

	req, err := c.Checkout(Customer{Name: " Ayesha ", Phone: "0300-1234567", Address: "House 12, DHA"},
		CheckoutOptions{TaxRate: 0.16, DeliveryFee: 99})
	require.NoError(t, err)

	assert.Equal(t, "Ayesha", req.CustomerName)
	assert.Equal(t, models.PaymentCash, req.PaymentMethod)
	assert.Len(t, req.Items, 2)
	assert.InDelta(t, 848.0, req.Subtotal, 1e-9)
	assert.InDelta(t, 135.68, req.Tax, 1e-9)
	assert.InDelta(t, req.Subtotal+req.Tax+req.DeliveryFee, req.Total, 1e-9)

	assert.Equal(t, 3, c.ItemCount(), "checkout leaves the cart intact")
}

func TestCheckoutSubtotalMatchesItemsDuringAdds(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Add(fries))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = c.Add(Item{ID: "chai", Name: "Chai", Price: 40})
		}
	}()

	for i := 0; i < 200; i++ {
		req, err := c.Checkout(Customer{Name: "A"}, CheckoutOptions{})
		require.NoError(t, err)
		var sum float64
		for _, it := range req.Items {
			sum += it.Price * float64(it.Quantity)
		}
		require.InDelta(t, sum, req.Subtotal, 1e-9)
	}
	<-done
}

func TestCheckoutEmptyCart(t *testing.T) {
	_, err := New(nil).Checkout(Customer{Name: "A"}, CheckoutOptions{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}
