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

// ProcessPaymentResponseCommand carries the fields of a payment response
// the orders side acts on.
type ProcessPaymentResponseCommand struct {
	PaymentID     string
	OrderID       string
	Status        string
	TransactionID string
	Message       string
	ProcessedAt   time.Time
}

// paymentStatusToOrderStatus maps a payment outcome to the order state
// it drives. Statuses outside the map leave the order untouched.
var paymentStatusToOrderStatus = map[string]domain.OrderStatus{
	"COMPLETED": domain.OrderStatusPaymentCompleted,
	"FAILED":    domain.OrderStatusPaymentFailed,
	"PENDING":   domain.OrderStatusPaymentPending,
}

// ProcessPaymentResponse applies a payment response to the order's state
// machine. Redelivery of an already applied response is a no-op.
type ProcessPaymentResponse struct {
	orderRepository domain.OrderRepository
	eventPublisher  events.Publisher
	logger          *logging.Logger
}

// NewProcessPaymentResponse creates a new ProcessPaymentResponse use case
func NewProcessPaymentResponse(
	orderRepository domain.OrderRepository,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *ProcessPaymentResponse {
	return &ProcessPaymentResponse{
		orderRepository: orderRepository,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// Execute executes the process payment response use case
func (uc *ProcessPaymentResponse) Execute(ctx context.Context, cmd *ProcessPaymentResponseCommand) error {
	if cmd.OrderID == "" {
		return faults.Validationf("payment response missing orderId")
	}
	if cmd.Status == "" {
		return faults.Validationf("payment response missing status")
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
		// a response for an order we never created is a fatal
		// inconsistency, hand it to manual review via the dead letter path
		uc.logger.Error(ctx, "payment_response_orphaned",
			"payment response references unknown order "+cmd.OrderID,
			errors.New("order not found"))
		return faults.Validationf("payment response for unknown order %s", cmd.OrderID)
	}

	next, known := paymentStatusToOrderStatus[cmd.Status]
	if !known {
		uc.logger.Warn(ctx, "payment_status_unknown",
			"ignoring payment response with unrecognized status",
			map[string]any{"order_id": cmd.OrderID, "status": cmd.Status})
		return nil
	}

	before := order.Status

	if err := order.TransitionTo(next); err != nil {
		var invalid *domain.InvalidTransitionError
		if errors.As(err, &invalid) {
			uc.logger.Warn(ctx, "payment_transition_rejected",
				"payment response arrived in a state that forbids it",
				map[string]any{"order_id": cmd.OrderID, "from": string(invalid.From), "to": string(invalid.To)})
			return faults.Conflict(err)
		}
		return err
	}

	if len(order.Events()) == 0 {
		// already in the target state, nothing to persist or emit
		uc.logger.Debug(ctx, "payment_response_duplicate",
			"order already in target state, redelivery ignored",
			map[string]any{"order_id": cmd.OrderID, "status": string(order.Status)})
		return nil
	}

	failureReason := ""
	if next == domain.OrderStatusPaymentFailed {
		failureReason = cmd.Message
	}
	order.AttachPayment(cmd.PaymentID, cmd.TransactionID, failureReason)

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		return faults.Transient(errors.Wrap(err, "failed to save order"))
	}

	if err := uc.eventPublisher.Publish(ctx, order.Events()...); err != nil {
		return faults.Transient(errors.Wrap(err, "failed to publish order status event"))
	}
	order.ClearEvents()

	uc.logger.Info(ctx, "order_status_changed", "payment response applied",
		map[string]any{"order_id": cmd.OrderID, "before": string(before), "after": string(order.Status)})

	return nil
}
