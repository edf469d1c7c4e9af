package application

import (
	"context"
	"testing"
	"time"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/orders-service/mocks"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProcessShippingStatus_ProgressesOrder(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)
	order := orderInStatus(t, domain.OrderStatusPaymentCompleted)

	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("Save", mock.Anything, order).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	useCase := NewProcessShippingStatus(repo, publisher, testLogger())

	err := useCase.Execute(context.Background(), &ProcessShippingStatusCommand{
		ShipmentID:     "SHIP-1",
		OrderID:        order.ID.String(),
		Status:         "READY_TO_SHIP",
		TrackingNumber: "GB202501010101010042",
		Carrier:        "GlobalBooks Express",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReadyToShip, order.Status)
	assert.Equal(t, "SHIP-1", order.ShipmentID)
	assert.Equal(t, "GB202501010101010042", order.TrackingNumber)
	assert.Equal(t, "GlobalBooks Express", order.Carrier)

	deliveredAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, step := range []string{"SHIPPED", "IN_TRANSIT", "DELIVERED"} {
		err = useCase.Execute(context.Background(), &ProcessShippingStatusCommand{
			ShipmentID: "SHIP-1",
			OrderID:    order.ID.String(),
			Status:     step,
			Timestamp:  deliveredAt,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, domain.OrderStatusDelivered, order.Status)
	require.NotNil(t, order.DeliveredAt)
	assert.Equal(t, deliveredAt, *order.DeliveredAt)
}

func TestProcessShippingStatus_UnrecognizedStatusIsIgnored(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)
	order := orderInStatus(t, domain.OrderStatusShipped)

	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	useCase := NewProcessShippingStatus(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessShippingStatusCommand{
		ShipmentID: "SHIP-1",
		OrderID:    order.ID.String(),
		Status:     "TELEPORTED",
	})

	require.NoError(t, err, "unrecognized status must not raise")
	assert.Equal(t, domain.OrderStatusShipped, order.Status)
	repo.AssertNotCalled(t, "Save")
	publisher.AssertNotCalled(t, "Publish")
}

func TestProcessShippingStatus_RedeliveryIsNoOp(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)
	order := orderInStatus(t, domain.OrderStatusInTransit)

	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	useCase := NewProcessShippingStatus(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessShippingStatusCommand{
		ShipmentID: "SHIP-1",
		OrderID:    order.ID.String(),
		Status:     "IN_TRANSIT",
	})

	require.NoError(t, err)
	repo.AssertNotCalled(t, "Save")
}

func TestProcessShippingStatus_PrematureStatusIsConflict(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)
	order := orderInStatus(t, domain.OrderStatusPaymentPending)

	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	useCase := NewProcessShippingStatus(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessShippingStatusCommand{
		ShipmentID: "SHIP-1",
		OrderID:    order.ID.String(),
		Status:     "DELIVERED",
	})

	require.Error(t, err)
	assert.True(t, faults.IsConflict(err))
	assert.Equal(t, domain.OrderStatusPaymentPending, order.Status)
}

func TestProcessShippingStatus_UnknownOrder(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)

	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

	useCase := NewProcessShippingStatus(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessShippingStatusCommand{
		OrderID: "ORD-MISSING1",
		Status:  "SHIPPED",
	})

	require.Error(t, err)
	assert.True(t, faults.IsValidation(err))
}
