package application

import (
	"context"
	"testing"

	"github.com/globalbooks/fulfillment-system/payments-service/domain"
	"github.com/globalbooks/fulfillment-system/payments-service/mocks"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func paymentInStatus(t *testing.T, status domain.PaymentStatus) *domain.Payment {
	t.Helper()
	payment, err := domain.CreatePayment("ORD-TEST0001", "CUST-001",
		models.NewMoney(decimal.RequireFromString("25.00"), "USD"), "CREDIT_CARD")
	require.NoError(t, err)

	switch status {
	case domain.PaymentStatusPending:
	case domain.PaymentStatusProcessing:
		require.NoError(t, payment.Process())
	case domain.PaymentStatusCompleted:
		require.NoError(t, payment.Process())
		require.NoError(t, payment.Complete("TXN123"))
	case domain.PaymentStatusFailed:
		require.NoError(t, payment.Process())
		require.NoError(t, payment.Fail("declined"))
	default:
		t.Fatalf("unsupported starting status %s", status)
	}

	payment.ClearEvents()
	return payment
}

func TestRefundPayment(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	publisher := new(mocks.MockPublisher)
	uc := NewRefundPayment(repo, publisher, testLogger())

	payment := paymentInStatus(t, domain.PaymentStatusCompleted)
	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
	repo.On("Save", mock.Anything, payment).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	view, err := uc.Execute(context.Background(), &RefundPaymentCommand{
		PaymentID: payment.ID.String(),
		Reason:    "customer return",
	})
	require.NoError(t, err)
	assert.Equal(t, "REFUNDED", view.Status)
}

func TestRefundPayment_RequiresCompleted(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	publisher := new(mocks.MockPublisher)
	uc := NewRefundPayment(repo, publisher, testLogger())

	payment := paymentInStatus(t, domain.PaymentStatusPending)
	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	_, err := uc.Execute(context.Background(), &RefundPaymentCommand{PaymentID: payment.ID.String()})
	require.Error(t, err)
	assert.True(t, faults.IsConflict(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestRefundPayment_NotFound(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	uc := NewRefundPayment(repo, new(mocks.MockPublisher), testLogger())

	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := uc.Execute(context.Background(), &RefundPaymentCommand{PaymentID: "missing"})
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestCancelPayment(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	publisher := new(mocks.MockPublisher)
	uc := NewCancelPayment(repo, publisher, testLogger())

	payment := paymentInStatus(t, domain.PaymentStatusPending)
	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
	repo.On("Save", mock.Anything, payment).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	view, err := uc.Execute(context.Background(), &CancelPaymentCommand{PaymentID: payment.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", view.Status)
}

func TestCancelPayment_SettledPaymentRefused(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	uc := NewCancelPayment(repo, new(mocks.MockPublisher), testLogger())

	payment := paymentInStatus(t, domain.PaymentStatusCompleted)
	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	_, err := uc.Execute(context.Background(), &CancelPaymentCommand{PaymentID: payment.ID.String()})
	require.Error(t, err)
	assert.True(t, faults.IsConflict(err))
}

func TestRetryPayment(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	gateway := new(mocks.MockPaymentGateway)
	publisher := new(mocks.MockPublisher)
	processRequest := NewProcessPaymentRequest(repo, gateway, publisher, testLogger())
	uc := NewRetryPayment(repo, publisher, processRequest, testLogger())

	failed := paymentInStatus(t, domain.PaymentStatusFailed)
	repo.On("FindByID", mock.Anything, failed.ID).Return(failed, nil)
	// after cancellation the order is free for a fresh attempt
	repo.On("FindByOrderID", mock.Anything, failed.OrderID).Return(nil, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	gateway.On("Charge", mock.Anything, mock.Anything).Return(
		&domain.GatewayResult{Approved: true, TransactionID: "TXN789"}, nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := uc.Execute(context.Background(), &RetryPaymentCommand{PaymentID: failed.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusCancelled, failed.Status, "failed record is retired")
	assert.NotEqual(t, failed.ID.String(), result.PaymentID, "retry creates a fresh payment")
	assert.Equal(t, "COMPLETED", result.Status)
}

func TestRetryPayment_RequiresFailed(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	uc := NewRetryPayment(repo, new(mocks.MockPublisher), nil, testLogger())

	payment := paymentInStatus(t, domain.PaymentStatusCompleted)
	repo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)

	_, err := uc.Execute(context.Background(), &RetryPaymentCommand{PaymentID: payment.ID.String()})
	require.Error(t, err)
	assert.True(t, faults.IsConflict(err))
}
