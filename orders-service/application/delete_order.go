package application

import (
	"context"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
)

var ErrOrderNotDeletable = errors.New("order can only be deleted from PENDING or CANCELLED")

// DeleteOrderCommand represents the command to delete an order
type DeleteOrderCommand struct {
	OrderID string
}

// DeleteOrder removes an order that never entered the saga or was
// cancelled. Orders in any other state are immutable history.
type DeleteOrder struct {
	orderRepository domain.OrderRepository
	logger          *logging.Logger
}

// NewDeleteOrder creates a new DeleteOrder use case
func NewDeleteOrder(orderRepository domain.OrderRepository, logger *logging.Logger) *DeleteOrder {
	return &DeleteOrder{
		orderRepository: orderRepository,
		logger:          logger,
	}
}

// Execute executes the delete order use case
func (uc *DeleteOrder) Execute(ctx context.Context, cmd *DeleteOrderCommand) error {
	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		return errors.Wrap(err, "invalid order ID")
	}

	order, err := uc.orderRepository.FindByID(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "failed to load order")
	}
	if order == nil {
		return ErrOrderNotFound
	}

	if !order.Deletable() {
		return ErrOrderNotDeletable
	}

	if err := uc.orderRepository.Delete(ctx, orderID); err != nil {
		return errors.Wrap(err, "failed to delete order")
	}

	uc.logger.Info(ctx, "order_deleted", "order removed",
		map[string]any{"order_id": cmd.OrderID, "status": string(order.Status)})

	return nil
}
