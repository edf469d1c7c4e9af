package application

import (
	"context"
	"time"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
)

// ProcessShippingStatusCommand carries the fields of a shipping status
// broadcast the orders side acts on.
type ProcessShippingStatusCommand struct {
	ShipmentID     string
	OrderID        string
	Status         string
	TrackingNumber string
	Carrier        string
	Timestamp      time.Time
}

// shippingStatusToOrderStatus maps shipment progress to order states.
// Shipment stages without an order-side counterpart only refresh the
// linkage fields.
var shippingStatusToOrderStatus = map[string]domain.OrderStatus{
	"READY_TO_SHIP": domain.OrderStatusReadyToShip,
	"SHIPPED":       domain.OrderStatusShipped,
	"IN_TRANSIT":    domain.OrderStatusInTransit,
	"DELIVERED":     domain.OrderStatusDelivered,
}

// ProcessShippingStatus applies a shipping status broadcast to the order.
// Unknown statuses are logged and ignored, never crash the consumer.
type ProcessShippingStatus struct {
	orderRepository domain.OrderRepository
	eventPublisher  events.Publisher
	logger          *logging.Logger
}

// NewProcessShippingStatus creates a new ProcessShippingStatus use case
func NewProcessShippingStatus(
	orderRepository domain.OrderRepository,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *ProcessShippingStatus {
	return &ProcessShippingStatus{
		orderRepository: orderRepository,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// Execute executes the process shipping status use case
func (uc *ProcessShippingStatus) Execute(ctx context.Context, cmd *ProcessShippingStatusCommand) error {
	if cmd.OrderID == "" {
		return faults.Validationf("shipping status missing orderId")
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		return faults.Validation(errors.Wrap(err, "invalid order ID"))
	}

	order, err := uc.orderRepository.FindByID(ctx, orderID)
	if err != nil {
		return faults.Transient(errors.Wrap(err, "failed to load order"))
	}
	if order == nil {
		uc.logger.Error(ctx, "shipping_status_orphaned",
			"shipping status references unknown order "+cmd.OrderID,
			errors.New("order not found"))
		return faults.Validationf("shipping status for unknown order %s", cmd.OrderID)
	}

	next, known := shippingStatusToOrderStatus[cmd.Status]
	if !known {
		uc.logger.Warn(ctx, "shipping_status_unmapped",
			"shipping status does not drive an order transition",
			map[string]any{"order_id": cmd.OrderID, "status": cmd.Status})
		return nil
	}

	before := order.Status

	if err := order.TransitionTo(next); err != nil {
		var invalid *domain.InvalidTransitionError
		if errors.As(err, &invalid) {
			uc.logger.Warn(ctx, "shipping_transition_rejected",
				"shipping status arrived in a state that forbids it",
				map[string]any{"order_id": cmd.OrderID, "from": string(invalid.From), "to": string(invalid.To)})
			return faults.Conflict(err)
		}
		return err
	}

	if len(order.Events()) == 0 {
		uc.logger.Debug(ctx, "shipping_status_duplicate",
			"order already in target state, redelivery ignored",
			map[string]any{"order_id": cmd.OrderID, "status": string(order.Status)})
		return nil
	}

	order.AttachShipment(cmd.ShipmentID, cmd.TrackingNumber, cmd.Carrier)
	if next == domain.OrderStatusDelivered {
		deliveredAt := cmd.Timestamp
		if deliveredAt.IsZero() {
			deliveredAt = time.Now()
		}
		order.MarkDelivered(deliveredAt)
	}

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		return faults.Transient(errors.Wrap(err, "failed to save order"))
	}

	if err := uc.eventPublisher.Publish(ctx, order.Events()...); err != nil {
		return faults.Transient(errors.Wrap(err, "failed to publish order status event"))
	}
	order.ClearEvents()

	uc.logger.Info(ctx, "order_status_changed", "shipping status applied",
		map[string]any{"order_id": cmd.OrderID, "before": string(before), "after": string(order.Status)})

	return nil
}
