package domain

import "fmt"

// OrderStatus represents the lifecycle stage of an order
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "PENDING"
	OrderStatusPaymentPending   OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaymentCompleted OrderStatus = "PAYMENT_COMPLETED"
	OrderStatusPaymentFailed    OrderStatus = "PAYMENT_FAILED"
	OrderStatusProcessing       OrderStatus = "PROCESSING"
	OrderStatusReadyToShip      OrderStatus = "READY_TO_SHIP"
	OrderStatusShipped          OrderStatus = "SHIPPED"
	OrderStatusInTransit        OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered        OrderStatus = "DELIVERED"
	OrderStatusCancelled        OrderStatus = "CANCELLED"
	OrderStatusRefunded         OrderStatus = "REFUNDED"

	// OrderStatusConfirmed only appears on records created before the
	// payment stages were split out. New orders never enter it.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
)

// transitions is the single source of truth for valid status changes.
// It applies identically to event-driven updates and administrative
// overrides.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:          {OrderStatusPaymentPending, OrderStatusCancelled},
	OrderStatusPaymentPending:   {OrderStatusPaymentCompleted, OrderStatusPaymentFailed, OrderStatusCancelled},
	OrderStatusPaymentCompleted: {OrderStatusProcessing, OrderStatusReadyToShip, OrderStatusRefunded},
	OrderStatusPaymentFailed:    {OrderStatusPaymentPending, OrderStatusCancelled},
	OrderStatusProcessing:       {OrderStatusReadyToShip, OrderStatusCancelled},
	OrderStatusReadyToShip:      {OrderStatusShipped},
	OrderStatusShipped:          {OrderStatusInTransit, OrderStatusDelivered},
	OrderStatusInTransit:        {OrderStatusDelivered},
	OrderStatusDelivered:        {OrderStatusRefunded},
	OrderStatusCancelled:        {},
	OrderStatusRefunded:         {},
	OrderStatusConfirmed:        {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled},
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transitions exist from s.
func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0 && IsValidStatus(s)
}

// CanTransition reports whether the state machine allows from -> to.
// Self transitions are not in the table; idempotent redelivery is handled
// by the aggregate short-circuiting before consulting it.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a status change the state machine forbids.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
