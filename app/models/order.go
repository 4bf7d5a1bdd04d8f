package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is one line of an order.
type OrderItem struct {
	ID       string  `bson:"id"       json:"id"`
	Name     string  `bson:"name"     json:"name"     validate:"required"`
	Price    float64 `bson:"price"    json:"price"    validate:"gte=0"`
	Quantity int     `bson:"quantity" json:"quantity" validate:"min=1"`
	Category string  `bson:"category" json:"category"`
	Image    string  `bson:"image"    json:"image"`
}

// Order is a placed purchase stored in the orders collection.
type Order struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	OrderID string             `bson:"orderId"       json:"orderId"`

	CustomerName string `bson:"customerName" json:"customerName"`
	Phone        string `bson:"phone"        json:"phone"`
	Address      string `bson:"address"      json:"address"`

	Items []OrderItem `bson:"items" json:"items"`

	Subtotal      float64       `bson:"subtotal"      json:"subtotal"`
	Tax           float64       `bson:"tax"           json:"tax"`
	DeliveryFee   float64       `bson:"deliveryFee"   json:"deliveryFee"`
	Total         float64       `bson:"total"         json:"total"`
	PaymentMethod PaymentMethod `bson:"paymentMethod" json:"paymentMethod"`

	Status            OrderStatus `bson:"status"                      json:"status"`
	OrderTime         time.Time   `bson:"orderTime"                   json:"orderTime"`
	EstimatedDelivery *time.Time  `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
	StatusUpdatedAt   time.Time   `bson:"statusUpdatedAt"             json:"statusUpdatedAt"`

	Notes               string `bson:"notes"               json:"notes"`
	SpecialInstructions string `bson:"specialInstructions" json:"specialInstructions"`
	DeliveryAddress     string `bson:"deliveryAddress"     json:"deliveryAddress"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// MarshalJSON adds the hex id as "id" next to "_id", the shape the
// dashboard reads.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		HexID string `json:"id"`
	}{plain: plain(o), HexID: o.ID.Hex()})
}

// ItemsSubtotal sums price × quantity over the order lines.
func (o *Order) ItemsSubtotal() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// OrderSummary is the trimmed order returned to the storefront on checkout.
type OrderSummary struct {
	ID        string      `json:"id"`
	OrderID   string      `json:"orderId"`
	Status    OrderStatus `json:"status"`
	Total     float64     `json:"total"`
	OrderTime time.Time   `json:"orderTime"`
}

func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:        o.ID.Hex(),
		OrderID:   o.OrderID,
		Status:    o.Status,
		Total:     o.Total,
		OrderTime: o.OrderTime,
	}
}

// CreateOrderRequest is the storefront checkout payload.
type CreateOrderRequest struct {
	CustomerName        string        `json:"customerName"`
	Phone               string        `json:"phone"`
	Address             string        `json:"address"`
	Items               []OrderItem   `json:"items"                         validate:"dive"`
	Subtotal            float64       `json:"subtotal"                      validate:"gte=0"`
	Tax                 float64       `json:"tax"                           validate:"gte=0"`
	Total               float64       `json:"total"`
	PaymentMethod       PaymentMethod `json:"paymentMethod,omitempty"       validate:"omitempty,in=cash|card|online"`
	Notes               string        `json:"notes,omitempty"               validate:"max=1000"`
	SpecialInstructions string        `json:"specialInstructions,omitempty" validate:"max=1000"`
	DeliveryFee         float64       `json:"deliveryFee"                   validate:"gte=0"`
}

// OrderFilter narrows order listings. Zero values mean "no constraint".
type OrderFilter struct {
	Status        OrderStatus
	ExcludeStatus OrderStatus
	Search        string
	From          time.Time
	To            time.Time
	Page          int
	Limit         int // 0 returns every match
}

// Pagination is returned alongside paged listings.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// OrderStats is the dashboard overview.
type OrderStats struct {
	TotalOrders      int64   `json:"totalOrders"`
	TodayOrders      int64   `json:"todayOrders"`
	PendingOrders    int64   `json:"pendingOrders"`
	InProgressOrders int64   `json:"inProgressOrders"`
	ReadyOrders      int64   `json:"readyOrders"`
	DeliveredOrders  int64   `json:"deliveredOrders"`
	TotalRevenue     float64 `json:"totalRevenue"`
	TodayRevenue     float64 `json:"todayRevenue"`
}

// DailySales is one bucket of the analytics time series.
type DailySales struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// ItemSales aggregates quantity and revenue for one menu item.
type ItemSales struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// SalesAnalytics summarises non-cancelled orders over a date range.
type SalesAnalytics struct {
	TotalRevenue  float64      `json:"totalRevenue"`
	TotalOrders   int          `json:"totalOrders"`
	AvgOrderValue float64      `json:"avgOrderValue"`
	DailySales    []DailySales `json:"dailySales"`
	TopItems      []ItemSales  `json:"topItems"`
}
