package application

import (
	"context"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/globalbooks/fulfillment-system/shipping-service/domain"
	"github.com/pkg/errors"
)

// ErrShipmentNotFound is returned when a shipment does not exist
var ErrShipmentNotFound = errors.New("shipment not found")

// UpdateShipmentStatusCommand represents the command to advance a shipment
type UpdateShipmentStatusCommand struct {
	ShipmentID string `json:"shipmentId"`
	Status     string `json:"status"`
}

// UpdateShipmentStatus advances a shipment through its stages and
// broadcasts every change.
type UpdateShipmentStatus struct {
	shipmentRepository domain.ShipmentRepository
	eventPublisher     events.Publisher
	logger             *logging.Logger
}

// NewUpdateShipmentStatus creates a new UpdateShipmentStatus use case
func NewUpdateShipmentStatus(
	shipmentRepository domain.ShipmentRepository,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *UpdateShipmentStatus {
	return &UpdateShipmentStatus{
		shipmentRepository: shipmentRepository,
		eventPublisher:     eventPublisher,
		logger:             logger,
	}
}

// Execute executes the update shipment status use case
func (uc *UpdateShipmentStatus) Execute(ctx context.Context, cmd *UpdateShipmentStatusCommand) (*ShipmentView, error) {
	shipmentID, err := models.NewID(cmd.ShipmentID)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid shipment ID"))
	}

	next := domain.ShipmentStatus(cmd.Status)
	if !domain.IsValidStatus(next) {
		return nil, faults.Validationf("unknown shipment status %s", cmd.Status)
	}

	shipment, err := uc.shipmentRepository.FindByID(ctx, shipmentID)
	if err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to load shipment"))
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}

	before := shipment.Status

	if err := shipment.UpdateStatus(next); err != nil {
		return nil, faults.Conflict(err)
	}

	if len(shipment.Events()) == 0 {
		// already at this stage, nothing to persist or emit
		return toShipmentView(shipment), nil
	}

	if err := uc.shipmentRepository.Save(ctx, shipment); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to save shipment"))
	}
	if err := uc.eventPublisher.Publish(ctx, shipment.Events()...); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to publish shipping status event"))
	}
	shipment.ClearEvents()

	uc.logger.Info(ctx, "shipment_status_changed", "shipment advanced",
		map[string]any{
			"shipment_id": cmd.ShipmentID,
			"order_id":    shipment.OrderID.String(),
			"before":      string(before),
			"after":       string(shipment.Status),
		})

	return toShipmentView(shipment), nil
}

// CancelShipment withdraws a shipment before the carrier picks it up.
type CancelShipment struct {
	updateStatus *UpdateShipmentStatus
}

// NewCancelShipment creates a new CancelShipment use case
func NewCancelShipment(updateStatus *UpdateShipmentStatus) *CancelShipment {
	return &CancelShipment{updateStatus: updateStatus}
}

// Execute executes the cancel shipment use case
func (uc *CancelShipment) Execute(ctx context.Context, shipmentID string) (*ShipmentView, error) {
	return uc.updateStatus.Execute(ctx, &UpdateShipmentStatusCommand{
		ShipmentID: shipmentID,
		Status:     string(domain.ShipmentStatusCancelled),
	})
}
