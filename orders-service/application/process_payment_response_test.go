package application

import (
	"context"
	"testing"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/orders-service/mocks"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func orderInStatus(t *testing.T, status domain.OrderStatus) *domain.Order {
	t.Helper()
	order, err := domain.CreateOrder("CUST-1", []domain.OrderItem{
		{ProductID: "P1", ProductName: "Clean Architecture", Quantity: 2, UnitPrice: priceOf("10.00")},
		{ProductID: "P2", ProductName: "Refactoring", Quantity: 1, UnitPrice: priceOf("5.00")},
	}, domain.Address{}, "CREDIT_CARD")
	require.NoError(t, err)

	// walk the order to the requested state through legal transitions
	paths := map[domain.OrderStatus][]domain.OrderStatus{
		domain.OrderStatusPending:          {},
		domain.OrderStatusPaymentPending:   {domain.OrderStatusPaymentPending},
		domain.OrderStatusPaymentCompleted: {domain.OrderStatusPaymentPending, domain.OrderStatusPaymentCompleted},
		domain.OrderStatusPaymentFailed:    {domain.OrderStatusPaymentPending, domain.OrderStatusPaymentFailed},
		domain.OrderStatusReadyToShip:      {domain.OrderStatusPaymentPending, domain.OrderStatusPaymentCompleted, domain.OrderStatusReadyToShip},
		domain.OrderStatusShipped:          {domain.OrderStatusPaymentPending, domain.OrderStatusPaymentCompleted, domain.OrderStatusReadyToShip, domain.OrderStatusShipped},
		domain.OrderStatusInTransit:        {domain.OrderStatusPaymentPending, domain.OrderStatusPaymentCompleted, domain.OrderStatusReadyToShip, domain.OrderStatusShipped, domain.OrderStatusInTransit},
	}
	steps, ok := paths[status]
	require.True(t, ok, "no path to %s", status)
	for _, step := range steps {
		require.NoError(t, order.TransitionTo(step))
	}
	order.ClearEvents()
	return order
}

func TestProcessPaymentResponse_Completed(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)
	order := orderInStatus(t, domain.OrderStatusPaymentPending)

	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("Save", mock.Anything, order).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	useCase := NewProcessPaymentResponse(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		PaymentID:     "PAY-1",
		OrderID:       order.ID.String(),
		Status:        "COMPLETED",
		TransactionID: "TXN1735000000000ABCDEFGH",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentCompleted, order.Status)
	assert.Equal(t, "PAY-1", order.PaymentID)
	assert.Equal(t, "TXN1735000000000ABCDEFGH", order.TransactionID)
}

func TestProcessPaymentResponse_RedeliveryIsNoOp(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)
	order := orderInStatus(t, domain.OrderStatusPaymentCompleted)

	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	useCase := NewProcessPaymentResponse(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		PaymentID: "PAY-1",
		OrderID:   order.ID.String(),
		Status:    "COMPLETED",
	})

	require.NoError(t, err, "identical redelivery must not raise InvalidTransition")
	assert.Equal(t, domain.OrderStatusPaymentCompleted, order.Status)
	repo.AssertNotCalled(t, "Save")
	publisher.AssertNotCalled(t, "Publish")
}

func TestProcessPaymentResponse_FailedThenRetry(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)
	order := orderInStatus(t, domain.OrderStatusPaymentPending)

	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	repo.On("Save", mock.Anything, order).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	useCase := NewProcessPaymentResponse(repo, publisher, testLogger())

	err := useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		OrderID: order.ID.String(),
		Status:  "FAILED",
		Message: "insufficient funds",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentFailed, order.Status)
	assert.Equal(t, "insufficient funds", order.FailureReason)

	// FAILED -> COMPLETED directly is illegal, the retry must hop
	// through PAYMENT_PENDING first
	err = useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		OrderID: order.ID.String(),
		Status:  "COMPLETED",
	})
	require.Error(t, err)
	assert.True(t, faults.IsConflict(err))
	assert.Equal(t, domain.OrderStatusPaymentFailed, order.Status, "order must be left untouched")

	err = useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		OrderID: order.ID.String(),
		Status:  "PENDING",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentPending, order.Status)

	err = useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		OrderID: order.ID.String(),
		Status:  "COMPLETED",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentCompleted, order.Status)
}

func TestProcessPaymentResponse_UnknownStatusLeavesOrderUnchanged(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)
	order := orderInStatus(t, domain.OrderStatusPaymentPending)

	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	useCase := NewProcessPaymentResponse(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		OrderID: order.ID.String(),
		Status:  "MYSTERIOUS",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentPending, order.Status)
	repo.AssertNotCalled(t, "Save")
}

func TestProcessPaymentResponse_UnknownOrderIsValidationFault(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)

	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

	useCase := NewProcessPaymentResponse(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		OrderID: "ORD-MISSING1",
		Status:  "COMPLETED",
	})

	require.Error(t, err)
	assert.True(t, faults.IsValidation(err), "orphaned response must dead letter for manual review")
}

func TestProcessPaymentResponse_RepositoryErrorIsTransient(t *testing.T) {
	repo := new(mocks.MockOrderRepository)
	publisher := new(mocks.MockPublisher)

	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	useCase := NewProcessPaymentResponse(repo, publisher, testLogger())
	err := useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{
		OrderID: "ORD-1A2B3C4D",
		Status:  "COMPLETED",
	})

	require.Error(t, err)
	assert.True(t, faults.IsTransient(err))
}

func TestProcessPaymentResponse_MissingFields(t *testing.T) {
	useCase := NewProcessPaymentResponse(nil, nil, testLogger())

	err := useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{Status: "COMPLETED"})
	assert.True(t, faults.IsValidation(err))

	err = useCase.Execute(context.Background(), &ProcessPaymentResponseCommand{OrderID: "ORD-1"})
	assert.True(t, faults.IsValidation(err))
}
