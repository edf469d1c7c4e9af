package domain

import (
	"context"
	"strings"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// OrderItem is an immutable line item fixed at order creation.
type OrderItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   models.Money
}

// Subtotal is unit price times quantity, decimal exact.
func (i OrderItem) Subtotal() models.Money {
	return i.UnitPrice.MulInt(i.Quantity)
}

// Address is the shipping destination captured with the order.
type Address struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
	Email   string
}

// Order aggregate root
type Order struct {
	ID              models.ID
	CustomerID      models.ID
	Items           []OrderItem
	TotalAmount     models.Money
	Status          OrderStatus
	ShippingAddress Address
	PaymentMethod   string

	// payment linkage, populated by payment events
	PaymentID     string
	TransactionID string
	FailureReason string

	// shipping linkage, populated by shipping events
	ShipmentID     string
	TrackingNumber string
	Carrier        string
	DeliveredAt    *time.Time

	Timestamps models.Timestamps
	Version    models.Version

	events []*events.Event
}

// GenerateOrderID assigns the order identity, an "ORD-" prefix over the
// first eight uppercased characters of a UUID.
func GenerateOrderID() models.ID {
	return models.ID("ORD-" + strings.ToUpper(uuid.New().String()[:8]))
}

// CreateOrder factory method. The total is computed here, exactly, and
// is never recomputed by later events.
func CreateOrder(customerID models.ID, items []OrderItem, address Address, paymentMethod string) (*Order, error) {
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}
	if len(items) == 0 {
		return nil, errors.New("order must contain at least one item")
	}

	currency := items[0].UnitPrice.Currency
	total := models.NewMoney(decimal.Zero, currency)
	for _, item := range items {
		if item.ProductID == "" {
			return nil, errors.New("item product id is required")
		}
		if item.Quantity <= 0 {
			return nil, errors.Errorf("item %s has non-positive quantity", item.ProductID)
		}
		if item.UnitPrice.Amount.IsNegative() {
			return nil, errors.Errorf("item %s has negative unit price", item.ProductID)
		}

		subtotal := item.Subtotal()
		sum, err := total.Add(subtotal)
		if err != nil {
			return nil, errors.Wrap(err, "mixed currencies in order items")
		}
		total = sum
	}

	order := &Order{
		ID:              GenerateOrderID(),
		CustomerID:      customerID,
		Items:           items,
		TotalAmount:     total,
		Status:          OrderStatusPending,
		ShippingAddress: address,
		PaymentMethod:   paymentMethod,
		Timestamps:      models.NewTimestamps(),
		Version:         models.NewVersion(),
	}

	event := events.NewEvent(order.ID, events.OrderCreatedEvent, order.toEventMessage(events.EventTypeOrderCreated, true)).
		WithCorrelationID(order.ID)
	order.recordEvent(event)

	return order, nil
}

// TransitionTo applies a status change through the state machine. A
// transition to the current status is an idempotent no-op: redelivered
// events must not fail and must not mutate anything a second time.
func (o *Order) TransitionTo(next OrderStatus) error {
	if o.Status == next {
		return nil
	}

	if !CanTransition(o.Status, next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}

	o.Status = next
	o.Timestamps = o.Timestamps.Update()
	o.Version = o.Version.Update()

	event := events.NewEvent(o.ID, events.OrderStatusEvent, o.toEventMessage(events.EventTypeOrderStatus, false)).
		WithCorrelationID(o.ID)
	o.recordEvent(event)

	return nil
}

// AttachPayment populates the payment linkage fields.
func (o *Order) AttachPayment(paymentID, transactionID, failureReason string) {
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	if transactionID != "" {
		o.TransactionID = transactionID
	}
	o.FailureReason = failureReason
}

// AttachShipment populates the shipping linkage fields.
func (o *Order) AttachShipment(shipmentID, trackingNumber, carrier string) {
	if shipmentID != "" {
		o.ShipmentID = shipmentID
	}
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	if carrier != "" {
		o.Carrier = carrier
	}
}

// MarkDelivered records the delivery timestamp.
func (o *Order) MarkDelivered(at time.Time) {
	o.DeliveredAt = &at
}

// Deletable reports whether the order may be removed. Only orders that
// never entered the saga or were cancelled can go.
func (o *Order) Deletable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusCancelled
}

// Events returns domain events
func (o *Order) Events() []*events.Event {
	return o.events
}

// ClearEvents clears domain events
func (o *Order) ClearEvents() {
	o.events = make([]*events.Event, 0)
}

func (o *Order) recordEvent(event *events.Event) {
	o.events = append(o.events, event)
}

func (o *Order) toEventMessage(eventType string, includeItems bool) events.OrderEventMessage {
	msg := events.OrderEventMessage{
		EventID:     models.GenerateUUID().String(),
		EventType:   eventType,
		OrderID:     o.ID.String(),
		CustomerID:  o.CustomerID.String(),
		TotalAmount: o.TotalAmount.Amount,
		Currency:    o.TotalAmount.Currency,
		Status:      string(o.Status),
		Timestamp:   time.Now(),
	}

	if includeItems {
		msg.Items = make([]events.OrderItemMessage, len(o.Items))
		for i, item := range o.Items {
			msg.Items[i] = events.OrderItemMessage{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				Price:       item.UnitPrice.Amount,
			}
		}
	}

	return msg
}

// OrderRepository interface
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id models.ID) (*Order, error)
	FindByCustomerID(ctx context.Context, customerID models.ID) ([]*Order, error)
	Delete(ctx context.Context, id models.ID) error
}

// PriceResolver supplies the authoritative unit price for a product. The
// saga never trusts a client supplied amount.
type PriceResolver interface {
	UnitPrice(ctx context.Context, productID string) (models.Money, error)
}
