package application

import (
	"context"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/globalbooks/fulfillment-system/shipping-service/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ShipmentView is the read model returned by the shipment queries.
type ShipmentView struct {
	ShipmentID        string          `json:"shipmentId"`
	OrderID           string          `json:"orderId"`
	CustomerID        string          `json:"customerId"`
	TrackingNumber    string          `json:"trackingNumber"`
	Status            string          `json:"status"`
	Carrier           string          `json:"carrier"`
	Method            string          `json:"method"`
	Weight            decimal.Decimal `json:"weight"`
	ShippingCost      decimal.Decimal `json:"shippingCost"`
	Currency          string          `json:"currency"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	ShippedAt         *time.Time      `json:"shippedAt,omitempty"`
	ActualDelivery    *time.Time      `json:"actualDelivery,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// GetShipment returns a single shipment by id.
type GetShipment struct {
	shipmentRepository domain.ShipmentRepository
}

// NewGetShipment creates a new GetShipment use case
func NewGetShipment(shipmentRepository domain.ShipmentRepository) *GetShipment {
	return &GetShipment{shipmentRepository: shipmentRepository}
}

// Execute executes the get shipment query
func (uc *GetShipment) Execute(ctx context.Context, shipmentID string) (*ShipmentView, error) {
	id, err := models.NewID(shipmentID)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid shipment ID"))
	}

	shipment, err := uc.shipmentRepository.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get shipment")
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}

	return toShipmentView(shipment), nil
}

// TrackShipment resolves a shipment by tracking number or order id,
// the two handles a customer actually holds.
type TrackShipment struct {
	shipmentRepository domain.ShipmentRepository
}

// NewTrackShipment creates a new TrackShipment use case
func NewTrackShipment(shipmentRepository domain.ShipmentRepository) *TrackShipment {
	return &TrackShipment{shipmentRepository: shipmentRepository}
}

// ByTrackingNumber resolves a shipment by its tracking number
func (uc *TrackShipment) ByTrackingNumber(ctx context.Context, trackingNumber string) (*ShipmentView, error) {
	if trackingNumber == "" {
		return nil, faults.Validationf("tracking number is required")
	}

	shipment, err := uc.shipmentRepository.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, errors.Wrap(err, "failed to track shipment")
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}

	return toShipmentView(shipment), nil
}

// ByOrderID resolves the shipment attached to an order
func (uc *TrackShipment) ByOrderID(ctx context.Context, orderID string) (*ShipmentView, error) {
	id, err := models.NewID(orderID)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid order ID"))
	}

	shipment, err := uc.shipmentRepository.FindByOrderID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get shipment by order")
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}

	return toShipmentView(shipment), nil
}

// ListShipments returns all shipments of a customer.
type ListShipments struct {
	shipmentRepository domain.ShipmentRepository
}

// NewListShipments creates a new ListShipments use case
func NewListShipments(shipmentRepository domain.ShipmentRepository) *ListShipments {
	return &ListShipments{shipmentRepository: shipmentRepository}
}

// Execute executes the list shipments query
func (uc *ListShipments) Execute(ctx context.Context, customerID string) ([]*ShipmentView, error) {
	id, err := models.NewID(customerID)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid customer ID"))
	}

	shipments, err := uc.shipmentRepository.FindByCustomerID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shipments")
	}

	views := make([]*ShipmentView, len(shipments))
	for i, shipment := range shipments {
		views[i] = toShipmentView(shipment)
	}
	return views, nil
}

func toShipmentView(shipment *domain.Shipment) *ShipmentView {
	return &ShipmentView{
		ShipmentID:        shipment.ID.String(),
		OrderID:           shipment.OrderID.String(),
		CustomerID:        shipment.CustomerID.String(),
		TrackingNumber:    shipment.TrackingNumber,
		Status:            string(shipment.Status),
		Carrier:           shipment.Carrier,
		Method:            string(shipment.Method),
		Weight:            shipment.Weight,
		ShippingCost:      shipment.ShippingCost.Amount,
		Currency:          shipment.ShippingCost.Currency,
		EstimatedDelivery: shipment.EstimatedDelivery,
		ShippedAt:         shipment.ShippedAt,
		ActualDelivery:    shipment.ActualDelivery,
		CreatedAt:         shipment.Timestamps.CreatedAt,
		UpdatedAt:         shipment.Timestamps.UpdatedAt,
	}
}
