package cart

import (
	"errors"
	"math"
	"strings"

	"github.com/jushkitchen/jush/app/models"
)

var ErrEmptyCart = errors.New("cart: cart is empty")

// Customer is the delivery contact captured on the checkout form.
type Customer struct {
	Name    string
	Phone   string
	Address string
}

// CheckoutOptions carries pricing and free-text fields. A zero value means
// no tax, no delivery fee and cash payment.
type CheckoutOptions struct {
	TaxRate             float64 // e.g. 0.16
	DeliveryFee         float64
	PaymentMethod       models.PaymentMethod
	Notes               string
	SpecialInstructions string
}

// Checkout builds the order request for the current cart. The cart is left
// untouched; clear it once the server has accepted the order.
func (c *Cart) Checkout(cust Customer, opts CheckoutOptions) (models.CreateOrderRequest, error) {
	items, subtotal := c.snapshot()
	if len(items) == 0 {
		return models.CreateOrderRequest{}, ErrEmptyCart
	}

	tax := round2(subtotal * opts.TaxRate)
	payment := opts.PaymentMethod
	if payment == "" {
		payment = models.PaymentCash
	}

	return models.CreateOrderRequest{
		CustomerName:        strings.TrimSpace(cust.Name),
		Phone:               strings.TrimSpace(cust.Phone),
		Address:             strings.TrimSpace(cust.Address),
		Items:               items,
		Subtotal:            subtotal,
		Tax:                 tax,
		DeliveryFee:         opts.DeliveryFee,
		Total:               round2(subtotal + tax + opts.DeliveryFee),
		PaymentMethod:       payment,
		Notes:               opts.Notes,
		SpecialInstructions: opts.SpecialInstructions,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
