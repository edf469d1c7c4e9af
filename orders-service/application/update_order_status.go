package application

import (
	"context"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
)

var ErrOrderNotFound = errors.New("order not found")

// UpdateOrderStatusCommand represents an administrative status override.
type UpdateOrderStatusCommand struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// UpdateOrderStatusResponse represents the response after the override.
type UpdateOrderStatusResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// UpdateOrderStatus applies an administrative status change through the
// same state machine that event handlers use.
type UpdateOrderStatus struct {
	orderRepository domain.OrderRepository
	eventPublisher  events.Publisher
	logger          *logging.Logger
}

// NewUpdateOrderStatus creates a new UpdateOrderStatus use case
func NewUpdateOrderStatus(
	orderRepository domain.OrderRepository,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *UpdateOrderStatus {
	return &UpdateOrderStatus{
		orderRepository: orderRepository,
		eventPublisher:  eventPublisher,
		logger:          logger,
	}
}

// Execute executes the update order status use case
func (uc *UpdateOrderStatus) Execute(ctx context.Context, cmd *UpdateOrderStatusCommand) (*UpdateOrderStatusResponse, error) {
	if cmd.OrderID == "" {
		return nil, errors.New("order ID is required")
	}

	next := domain.OrderStatus(cmd.Status)
	if !domain.IsValidStatus(next) {
		return nil, errors.Errorf("unknown order status %q", cmd.Status)
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	order, err := uc.orderRepository.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load order")
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	before := order.Status

	if err := order.TransitionTo(next); err != nil {
		return nil, err
	}

	if len(order.Events()) > 0 {
		if err := uc.orderRepository.Save(ctx, order); err != nil {
			return nil, errors.Wrap(err, "failed to save order")
		}

		if err := uc.eventPublisher.Publish(ctx, order.Events()...); err != nil {
			return nil, errors.Wrap(err, "failed to publish order status event")
		}
		order.ClearEvents()

		uc.logger.Info(ctx, "order_status_changed", "administrative status override applied",
			map[string]any{"order_id": cmd.OrderID, "before": string(before), "after": string(order.Status)})
	}

	return &UpdateOrderStatusResponse{
		OrderID: order.ID.String(),
		Status:  string(order.Status),
	}, nil
}
