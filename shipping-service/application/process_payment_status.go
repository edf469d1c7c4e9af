package application

import (
	"context"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shipping-service/domain"
	"github.com/shopspring/decimal"
)

// Shipment defaults when the payment broadcast carries no parcel data.
// The storefront does not weigh books; fulfillment re-weighs on pickup.
var defaultWeight = decimal.RequireFromString("1.0")

const defaultMethod = domain.MethodStandard

// ProcessPaymentStatusCommand carries the payment broadcast fields the
// shipping side acts on.
type ProcessPaymentStatusCommand struct {
	EventType  string
	PaymentID  string
	OrderID    string
	CustomerID string
	Status     string
}

// ProcessPaymentStatus watches the payment status broadcasts and
// originates a shipment when a payment completes. Anything else on the
// stream is noise here. A duplicate completed signal is a no-op.
type ProcessPaymentStatus struct {
	createShipment *CreateShipment
	logger         *logging.Logger
}

// NewProcessPaymentStatus creates a new ProcessPaymentStatus use case
func NewProcessPaymentStatus(createShipment *CreateShipment, logger *logging.Logger) *ProcessPaymentStatus {
	return &ProcessPaymentStatus{
		createShipment: createShipment,
		logger:         logger,
	}
}

// Execute executes the process payment status use case
func (uc *ProcessPaymentStatus) Execute(ctx context.Context, cmd *ProcessPaymentStatusCommand) error {
	if cmd.OrderID == "" {
		return faults.Validationf("payment status missing orderId")
	}

	if cmd.EventType != events.EventTypePaymentCompleted {
		uc.logger.Debug(ctx, "payment_status_skipped", "not a completion, nothing to ship",
			map[string]any{"order_id": cmd.OrderID, "event_type": cmd.EventType})
		return nil
	}

	_, err := uc.createShipment.Execute(ctx, &CreateShipmentCommand{
		OrderID:    cmd.OrderID,
		CustomerID: cmd.CustomerID,
		Method:     string(defaultMethod),
		Weight:     defaultWeight,
	})
	if faults.IsConflict(err) {
		// the broadcast was redelivered, the shipment already exists
		uc.logger.Debug(ctx, "payment_status_duplicate", "shipment already exists, redelivery ignored",
			map[string]any{"order_id": cmd.OrderID})
		return nil
	}
	return err
}
