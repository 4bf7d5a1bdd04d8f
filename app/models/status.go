package models

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusInProgress OrderStatus = "in-progress"
	StatusReady      OrderStatus = "ready"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Statuses lists every status in workflow order, cancelled last.
var Statuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

// workflow is the forward progression; cancelled sits outside it.
var workflow = map[OrderStatus]OrderStatus{
	StatusPending:    StatusConfirmed,
	StatusConfirmed:  StatusInProgress,
	StatusInProgress: StatusReady,
	StatusReady:      StatusDelivered,
}

func (s OrderStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further workflow step exists.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the following workflow step, or false for terminal states.
func (s OrderStatus) Next() (OrderStatus, bool) {
	n, ok := workflow[s]
	return n, ok
}

// CanTransition describes the intended workflow: one step forward, or
// cancellation from any non-terminal state. Status updates are not gated on
// it; see OrderService.UpdateStatus.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() || from.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	next, ok := from.Next()
	return ok && next == to
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentOnline:
		return true
	}
	return false
}
