package domain

import (
	"strings"
	"testing"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	payment, err := CreatePayment("ORD-TEST0001", "CUST-001",
		models.NewMoney(decimal.RequireFromString("25.00"), "USD"), "CREDIT_CARD")
	require.NoError(t, err)
	payment.ClearEvents()
	return payment
}

func TestCreatePayment(t *testing.T) {
	payment, err := CreatePayment("ORD-TEST0001", "CUST-001",
		models.NewMoney(decimal.RequireFromString("25.00"), "USD"), "CREDIT_CARD")
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusPending, payment.Status)
	assert.Equal(t, models.ID("ORD-TEST0001"), payment.OrderID)
	assert.Equal(t, 1, payment.Version.Value)

	require.Len(t, payment.Events(), 1)
	evt := payment.Events()[0]
	assert.Equal(t, events.PaymentInitiatedEvent, evt.EventType)
	assert.Equal(t, "ORD-TEST0001", evt.CorrelationID.String())

	var msg events.PaymentStatusMessage
	require.NoError(t, evt.UnmarshalPayload(&msg))
	assert.Equal(t, events.EventTypePaymentInitiated, msg.EventType)
	assert.Equal(t, "PENDING", msg.Status)
	assert.Equal(t, "25", msg.Amount.String())
}

func TestCreatePayment_Validation(t *testing.T) {
	amount := models.NewMoney(decimal.RequireFromString("25.00"), "USD")

	_, err := CreatePayment("", "CUST-001", amount, "CREDIT_CARD")
	assert.Error(t, err)

	_, err = CreatePayment("ORD-TEST0001", "", amount, "CREDIT_CARD")
	assert.Error(t, err)

	_, err = CreatePayment("ORD-TEST0001", "CUST-001",
		models.NewMoney(decimal.Zero, "USD"), "CREDIT_CARD")
	assert.Error(t, err)
}

func TestGenerateTransactionID(t *testing.T) {
	id := GenerateTransactionID()
	assert.True(t, strings.HasPrefix(id, "TXN"))
	assert.Equal(t, strings.ToUpper(id), id)
	assert.NotEqual(t, id, GenerateTransactionID())
}

func TestPayment_Lifecycle(t *testing.T) {
	payment := newTestPayment(t)

	require.NoError(t, payment.Process())
	assert.Equal(t, PaymentStatusProcessing, payment.Status)
	assert.Empty(t, payment.Events(), "processing is internal, not broadcast")

	txn := GenerateTransactionID()
	require.NoError(t, payment.Complete(txn))
	assert.Equal(t, PaymentStatusCompleted, payment.Status)
	assert.Equal(t, txn, payment.TransactionID)
	require.NotNil(t, payment.ProcessedAt)

	require.Len(t, payment.Events(), 1)
	assert.Equal(t, events.PaymentCompletedEvent, payment.Events()[0].EventType)
}

func TestPayment_Fail(t *testing.T) {
	payment := newTestPayment(t)
	require.NoError(t, payment.Process())

	require.NoError(t, payment.Fail("insufficient funds"))
	assert.Equal(t, PaymentStatusFailed, payment.Status)
	assert.Equal(t, "insufficient funds", payment.FailureReason)

	require.Len(t, payment.Events(), 1)
	var msg events.PaymentStatusMessage
	require.NoError(t, payment.Events()[0].UnmarshalPayload(&msg))
	assert.Equal(t, events.EventTypePaymentFailed, msg.EventType)
	assert.Equal(t, "insufficient funds", msg.Message)
}

func TestPayment_Guards(t *testing.T) {
	t.Run("process requires pending", func(t *testing.T) {
		payment := newTestPayment(t)
		require.NoError(t, payment.Process())
		assert.Error(t, payment.Process())
	})

	t.Run("complete requires processing", func(t *testing.T) {
		payment := newTestPayment(t)
		assert.Error(t, payment.Complete("TXN123"))
	})

	t.Run("completed payment cannot fail", func(t *testing.T) {
		payment := newTestPayment(t)
		require.NoError(t, payment.Process())
		require.NoError(t, payment.Complete("TXN123"))
		assert.Error(t, payment.Fail("too late"))
	})

	t.Run("refund requires completed", func(t *testing.T) {
		payment := newTestPayment(t)
		assert.Error(t, payment.Refund())

		require.NoError(t, payment.Process())
		require.NoError(t, payment.Complete("TXN123"))
		require.NoError(t, payment.Refund())
		assert.Equal(t, PaymentStatusRefunded, payment.Status)
	})

	t.Run("cancel from pending or failed only", func(t *testing.T) {
		payment := newTestPayment(t)
		require.NoError(t, payment.Cancel())
		assert.Equal(t, PaymentStatusCancelled, payment.Status)

		failed := newTestPayment(t)
		require.NoError(t, failed.Process())
		require.NoError(t, failed.Fail("declined"))
		require.NoError(t, failed.Cancel())

		settled := newTestPayment(t)
		require.NoError(t, settled.Process())
		require.NoError(t, settled.Complete("TXN123"))
		assert.Error(t, settled.Cancel())
	})
}

func TestPayment_ToResponseMessage(t *testing.T) {
	payment := newTestPayment(t)
	require.NoError(t, payment.Process())
	require.NoError(t, payment.Complete("TXN123"))

	msg := payment.ToResponseMessage("payment completed")
	assert.Equal(t, payment.ID.String(), msg.PaymentID)
	assert.Equal(t, "ORD-TEST0001", msg.OrderID)
	assert.Equal(t, "COMPLETED", msg.Status)
	assert.Equal(t, "TXN123", msg.TransactionID)
	assert.Equal(t, *payment.ProcessedAt, msg.ProcessedAt)
}
