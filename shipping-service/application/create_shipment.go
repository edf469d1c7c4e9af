package application

import (
	"context"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/globalbooks/fulfillment-system/shipping-service/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CreateShipmentCommand represents the command to create a shipment
type CreateShipmentCommand struct {
	OrderID    string          `json:"orderId"`
	CustomerID string          `json:"customerId"`
	Method     string          `json:"method"`
	Weight     decimal.Decimal `json:"weight"`
}

// CreateShipment originates a shipment for a paid order. One shipment
// per order; a second create for the same order is a conflict.
type CreateShipment struct {
	shipmentRepository domain.ShipmentRepository
	eventPublisher     events.Publisher
	logger             *logging.Logger
}

// NewCreateShipment creates a new CreateShipment use case
func NewCreateShipment(
	shipmentRepository domain.ShipmentRepository,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *CreateShipment {
	return &CreateShipment{
		shipmentRepository: shipmentRepository,
		eventPublisher:     eventPublisher,
		logger:             logger,
	}
}

// Execute executes the create shipment use case
func (uc *CreateShipment) Execute(ctx context.Context, cmd *CreateShipmentCommand) (*ShipmentView, error) {
	if cmd.OrderID == "" {
		return nil, faults.Validationf("shipment missing orderId")
	}
	if cmd.CustomerID == "" {
		return nil, faults.Validationf("shipment missing customerId")
	}

	orderID := models.ID(cmd.OrderID)

	existing, err := uc.shipmentRepository.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to check for existing shipment"))
	}
	if existing != nil {
		return nil, faults.Conflictf("shipment already exists for order %s", cmd.OrderID)
	}

	shipment, err := domain.CreateShipment(orderID, models.ID(cmd.CustomerID),
		domain.ShippingMethod(cmd.Method), cmd.Weight)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid shipment"))
	}

	if err := uc.shipmentRepository.Save(ctx, shipment); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to save shipment"))
	}
	if err := uc.eventPublisher.Publish(ctx, shipment.Events()...); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to publish shipping status event"))
	}
	shipment.ClearEvents()

	uc.logger.Info(ctx, "shipment_created", "shipment created",
		map[string]any{
			"shipment_id":     shipment.ID.String(),
			"order_id":        cmd.OrderID,
			"tracking_number": shipment.TrackingNumber,
			"method":          string(shipment.Method),
		})

	return toShipmentView(shipment), nil
}
