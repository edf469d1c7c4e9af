package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(amount string) models.Money {
	return models.NewMoney(decimal.RequireFromString(amount), "USD")
}

func testItems() []OrderItem {
	return []OrderItem{
		{ProductID: "P1", ProductName: "Clean Architecture", Quantity: 2, UnitPrice: usd("10.00")},
		{ProductID: "P2", ProductName: "Refactoring", Quantity: 1, UnitPrice: usd("5.00")},
	}
}

func TestCreateOrderComputesExactTotal(t *testing.T) {
	order, err := CreateOrder("CUST-1", testItems(), Address{City: "Austin"}, "CREDIT_CARD")
	require.NoError(t, err)

	assert.True(t, order.TotalAmount.Amount.Equal(decimal.RequireFromString("25.00")),
		"expected 25.00, got %s", order.TotalAmount.Amount)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.ID.String(), "ORD-"))
	assert.Len(t, order.ID.String(), 12)

	require.Len(t, order.Events(), 1)
	created := order.Events()[0]
	assert.Equal(t, events.Topic(events.OrderCreatedEvent), created.Topic)
	assert.Equal(t, order.ID, created.CorrelationID)

	msg, ok := created.Data.(events.OrderEventMessage)
	require.True(t, ok)
	assert.Equal(t, events.EventTypeOrderCreated, msg.EventType)
	assert.Len(t, msg.Items, 2)
}

func TestCreateOrderValidation(t *testing.T) {
	_, err := CreateOrder("", testItems(), Address{}, "CREDIT_CARD")
	assert.Error(t, err)

	_, err = CreateOrder("CUST-1", nil, Address{}, "CREDIT_CARD")
	assert.Error(t, err)

	_, err = CreateOrder("CUST-1", []OrderItem{
		{ProductID: "P1", Quantity: 0, UnitPrice: usd("1.00")},
	}, Address{}, "CREDIT_CARD")
	assert.Error(t, err)

	_, err = CreateOrder("CUST-1", []OrderItem{
		{ProductID: "P1", Quantity: 1, UnitPrice: usd("1.00")},
		{ProductID: "P2", Quantity: 1, UnitPrice: models.NewMoney(decimal.NewFromInt(1), "EUR")},
	}, Address{}, "CREDIT_CARD")
	assert.Error(t, err, "mixed currencies must be rejected")
}

func TestTransitionToRecordsStatusEvent(t *testing.T) {
	order, err := CreateOrder("CUST-1", testItems(), Address{}, "CREDIT_CARD")
	require.NoError(t, err)
	order.ClearEvents()

	require.NoError(t, order.TransitionTo(OrderStatusPaymentPending))
	assert.Equal(t, OrderStatusPaymentPending, order.Status)
	require.Len(t, order.Events(), 1)
	assert.Equal(t, events.Topic(events.OrderStatusEvent), order.Events()[0].Topic)
	assert.Equal(t, 2, order.Version.Value)
}

func TestTransitionToSameStatusIsNoOp(t *testing.T) {
	order, err := CreateOrder("CUST-1", testItems(), Address{}, "CREDIT_CARD")
	require.NoError(t, err)
	require.NoError(t, order.TransitionTo(OrderStatusPaymentPending))
	order.ClearEvents()
	versionBefore := order.Version.Value

	require.NoError(t, order.TransitionTo(OrderStatusPaymentPending))

	assert.Equal(t, OrderStatusPaymentPending, order.Status)
	assert.Empty(t, order.Events(), "idempotent redelivery must not emit")
	assert.Equal(t, versionBefore, order.Version.Value)
}

func TestTransitionToInvalidLeavesOrderUntouched(t *testing.T) {
	order, err := CreateOrder("CUST-1", testItems(), Address{}, "CREDIT_CARD")
	require.NoError(t, err)
	order.ClearEvents()

	err = order.TransitionTo(OrderStatusDelivered)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, OrderStatusPending, invalid.From)
	assert.Equal(t, OrderStatusDelivered, invalid.To)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.Empty(t, order.Events())
}

func TestLinkageFields(t *testing.T) {
	order, err := CreateOrder("CUST-1", testItems(), Address{}, "CREDIT_CARD")
	require.NoError(t, err)

	order.AttachPayment("PAY-1", "TXN123", "")
	assert.Equal(t, "PAY-1", order.PaymentID)
	assert.Equal(t, "TXN123", order.TransactionID)

	// failure reason may be cleared by a later success
	order.AttachPayment("", "", "card declined")
	assert.Equal(t, "PAY-1", order.PaymentID, "empty ids must not erase linkage")
	assert.Equal(t, "card declined", order.FailureReason)

	order.AttachShipment("SHIP-1", "GB202501010101010042", "GlobalBooks Express")
	assert.Equal(t, "GB202501010101010042", order.TrackingNumber)

	at := time.Now()
	order.MarkDelivered(at)
	require.NotNil(t, order.DeliveredAt)
	assert.Equal(t, at, *order.DeliveredAt)
}

func TestDeletable(t *testing.T) {
	order, err := CreateOrder("CUST-1", testItems(), Address{}, "CREDIT_CARD")
	require.NoError(t, err)
	assert.True(t, order.Deletable())

	require.NoError(t, order.TransitionTo(OrderStatusPaymentPending))
	assert.False(t, order.Deletable())

	require.NoError(t, order.TransitionTo(OrderStatusCancelled))
	assert.True(t, order.Deletable())
}

func TestGenerateOrderIDShape(t *testing.T) {
	seen := make(map[models.ID]bool)
	for i := 0; i < 100; i++ {
		id := GenerateOrderID()
		assert.True(t, strings.HasPrefix(id.String(), "ORD-"))
		assert.Equal(t, strings.ToUpper(id.String()), id.String())
		seen[id] = true
	}
	assert.Len(t, seen, 100)
}
