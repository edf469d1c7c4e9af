package domain

import (
	"context"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ShipmentStatus represents the status of a shipment
type ShipmentStatus string

const (
	ShipmentStatusPending        ShipmentStatus = "PENDING"
	ShipmentStatusReadyToShip    ShipmentStatus = "READY_TO_SHIP"
	ShipmentStatusPickedUp       ShipmentStatus = "PICKED_UP"
	ShipmentStatusInTransit      ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	ShipmentStatusDelivered      ShipmentStatus = "DELIVERED"
	ShipmentStatusFailed         ShipmentStatus = "FAILED"
	ShipmentStatusReturned       ShipmentStatus = "RETURNED"
	ShipmentStatusCancelled      ShipmentStatus = "CANCELLED"
)

// DefaultCarrier is stamped on every shipment we originate.
const DefaultCarrier = "GlobalBooks Express"

var validStatuses = map[ShipmentStatus]bool{
	ShipmentStatusPending:        true,
	ShipmentStatusReadyToShip:    true,
	ShipmentStatusPickedUp:       true,
	ShipmentStatusInTransit:      true,
	ShipmentStatusOutForDelivery: true,
	ShipmentStatusDelivered:      true,
	ShipmentStatusFailed:         true,
	ShipmentStatusReturned:       true,
	ShipmentStatusCancelled:      true,
}

// IsValidStatus reports whether s names a shipment status.
func IsValidStatus(s ShipmentStatus) bool {
	return validStatuses[s]
}

// Shipment aggregate root. At most one shipment exists per order.
type Shipment struct {
	ID                models.ID
	OrderID           models.ID
	CustomerID        models.ID
	TrackingNumber    string
	Status            ShipmentStatus
	Carrier           string
	Method            ShippingMethod
	Weight            decimal.Decimal
	ShippingCost      models.Money
	EstimatedDelivery time.Time
	ShippedAt         *time.Time
	ActualDelivery    *time.Time
	Timestamps        models.Timestamps
	Version           models.Version

	events []*events.Event
}

// CreateShipment factory method. The shipment starts READY_TO_SHIP with
// its tracking number, cost and delivery estimate fixed up front.
func CreateShipment(orderID, customerID models.ID, method ShippingMethod, weight decimal.Decimal) (*Shipment, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}
	if !IsValidMethod(method) {
		return nil, errors.Errorf("unknown shipping method %s", method)
	}
	if weight.IsNegative() || weight.IsZero() {
		return nil, errors.New("weight must be positive")
	}

	now := time.Now()
	shipment := &Shipment{
		ID:                models.GenerateUUID(),
		OrderID:           orderID,
		CustomerID:        customerID,
		TrackingNumber:    GenerateTrackingNumber(),
		Status:            ShipmentStatusReadyToShip,
		Carrier:           DefaultCarrier,
		Method:            method,
		Weight:            weight,
		ShippingCost:      Cost(method, weight),
		EstimatedDelivery: EstimatedDelivery(method, now),
		Timestamps:        models.NewTimestamps(),
		Version:           models.NewVersion(),
	}

	shipment.recordStatusEvent()
	return shipment, nil
}

// UpdateStatus moves the shipment to the given stage. Same-status
// updates are idempotent no-ops. There is no formal transition table;
// the one hard rule is that cancellation is only possible before the
// carrier has the package.
func (s *Shipment) UpdateStatus(next ShipmentStatus) error {
	if !IsValidStatus(next) {
		return errors.Errorf("unknown shipment status %s", next)
	}
	if s.Status == next {
		return nil
	}

	if next == ShipmentStatusCancelled &&
		s.Status != ShipmentStatusPending && s.Status != ShipmentStatusReadyToShip {
		return errors.Errorf("shipment cannot be cancelled once %s", s.Status)
	}

	now := time.Now()
	s.Status = next
	switch next {
	case ShipmentStatusInTransit:
		if s.ShippedAt == nil {
			s.ShippedAt = &now
		}
	case ShipmentStatusDelivered:
		s.ActualDelivery = &now
	}

	s.Timestamps = s.Timestamps.Update()
	s.Version = s.Version.Update()

	s.recordStatusEvent()
	return nil
}

// Cancel withdraws the shipment before pickup
func (s *Shipment) Cancel() error {
	return s.UpdateStatus(ShipmentStatusCancelled)
}

func (s *Shipment) recordStatusEvent() {
	event := events.NewEvent(s.ID, events.ShippingStatusEvent(string(s.Status)), s.toStatusMessage()).
		WithCorrelationID(s.OrderID)
	s.recordEvent(event)
}

// toStatusMessage builds the broadcast payload for the current stage.
func (s *Shipment) toStatusMessage() *events.ShippingStatusMessage {
	return &events.ShippingStatusMessage{
		ShipmentID:        s.ID.String(),
		OrderID:           s.OrderID.String(),
		CustomerID:        s.CustomerID.String(),
		Status:            string(s.Status),
		TrackingNumber:    s.TrackingNumber,
		Carrier:           s.Carrier,
		EstimatedDelivery: s.EstimatedDelivery,
		Timestamp:         time.Now(),
	}
}

// recordEvent records a domain event
func (s *Shipment) recordEvent(event *events.Event) {
	s.events = append(s.events, event)
}

// Events returns recorded domain events
func (s *Shipment) Events() []*events.Event {
	return s.events
}

// ClearEvents clears recorded domain events
func (s *Shipment) ClearEvents() {
	s.events = nil
}

// ShipmentRepository defines the shipment repository interface
type ShipmentRepository interface {
	Save(ctx context.Context, shipment *Shipment) error
	FindByID(ctx context.Context, id models.ID) (*Shipment, error)
	FindByOrderID(ctx context.Context, orderID models.ID) (*Shipment, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*Shipment, error)
	FindByCustomerID(ctx context.Context, customerID models.ID) ([]*Shipment, error)
}
