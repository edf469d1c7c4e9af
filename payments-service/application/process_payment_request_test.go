package application

import (
	"context"
	"io"
	"testing"

	"github.com/globalbooks/fulfillment-system/payments-service/domain"
	"github.com/globalbooks/fulfillment-system/payments-service/mocks"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter("payments-service-test", io.Discard)
}

func validRequest() *ProcessPaymentRequestCommand {
	return &ProcessPaymentRequestCommand{
		OrderID:       "ORD-TEST0001",
		CustomerID:    "CUST-001",
		Amount:        decimal.RequireFromString("25.00"),
		Currency:      "USD",
		PaymentMethod: "CREDIT_CARD",
	}
}

func TestProcessPaymentRequest_Approved(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	gateway := new(mocks.MockPaymentGateway)
	publisher := new(mocks.MockPublisher)
	uc := NewProcessPaymentRequest(repo, gateway, publisher, testLogger())

	repo.On("FindByOrderID", mock.Anything, models.ID("ORD-TEST0001")).Return(nil, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	gateway.On("Charge", mock.Anything, mock.Anything).Return(
		&domain.GatewayResult{Approved: true, TransactionID: "TXN123", Message: "approved"}, nil)

	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	var response *events.Event
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			response = args.Get(2).(*events.Event)
		}).Return(nil)

	result, err := uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "COMPLETED", result.Status)
	assert.Equal(t, "TXN123", result.TransactionID)
	assert.Equal(t, "ORD-TEST0001", result.OrderID)

	require.NotNil(t, response)
	assert.Equal(t, events.PaymentResponseEvent, response.EventType)

	var msg events.PaymentResponseMessage
	require.NoError(t, response.UnmarshalPayload(&msg))
	assert.Equal(t, "COMPLETED", msg.Status)
	assert.Equal(t, "25", msg.Amount.String())

	repo.AssertNumberOfCalls(t, "Save", 2)
}

func TestProcessPaymentRequest_Declined(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	gateway := new(mocks.MockPaymentGateway)
	publisher := new(mocks.MockPublisher)
	uc := NewProcessPaymentRequest(repo, gateway, publisher, testLogger())

	repo.On("FindByOrderID", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	gateway.On("Charge", mock.Anything, mock.Anything).Return(
		&domain.GatewayResult{Approved: false, Message: "insufficient funds"}, nil)

	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	var response *events.Event
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			response = args.Get(2).(*events.Event)
		}).Return(nil)

	result, err := uc.Execute(context.Background(), validRequest())
	require.NoError(t, err, "a decline is a business outcome, not an error")

	assert.Equal(t, "FAILED", result.Status)
	assert.Equal(t, "insufficient funds", result.Message)

	// the orders side still gets its response
	require.NotNil(t, response)
	var msg events.PaymentResponseMessage
	require.NoError(t, response.UnmarshalPayload(&msg))
	assert.Equal(t, "FAILED", msg.Status)
	assert.Equal(t, "insufficient funds", msg.Message)
}

func TestProcessPaymentRequest_GatewayError(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	gateway := new(mocks.MockPaymentGateway)
	publisher := new(mocks.MockPublisher)
	uc := NewProcessPaymentRequest(repo, gateway, publisher, testLogger())

	repo.On("FindByOrderID", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	gateway.On("Charge", mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout"))

	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	var response *events.Event
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			response = args.Get(2).(*events.Event)
		}).Return(nil)

	result, err := uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "FAILED", result.Status)
	assert.Equal(t, "gateway timeout", result.Message)
	require.NotNil(t, response, "an errored gateway call must still produce a response")
}

func TestProcessPaymentRequest_DuplicateOrder(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	gateway := new(mocks.MockPaymentGateway)
	publisher := new(mocks.MockPublisher)
	uc := NewProcessPaymentRequest(repo, gateway, publisher, testLogger())

	existing, err := domain.CreatePayment("ORD-TEST0001", "CUST-001",
		models.NewMoney(decimal.RequireFromString("25.00"), "USD"), "CREDIT_CARD")
	require.NoError(t, err)
	require.NoError(t, existing.Process())
	require.NoError(t, existing.Complete("TXN123"))
	existing.ClearEvents()

	repo.On("FindByOrderID", mock.Anything, models.ID("ORD-TEST0001")).Return(existing, nil)

	_, err = uc.Execute(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, faults.IsConflict(err))

	gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProcessPaymentRequest_ResumesPendingPayment(t *testing.T) {
	repo := new(mocks.MockPaymentRepository)
	gateway := new(mocks.MockPaymentGateway)
	publisher := new(mocks.MockPublisher)
	uc := NewProcessPaymentRequest(repo, gateway, publisher, testLogger())

	pending, err := domain.CreatePayment("ORD-TEST0001", "CUST-001",
		models.NewMoney(decimal.RequireFromString("25.00"), "USD"), "CREDIT_CARD")
	require.NoError(t, err)
	pending.ClearEvents()

	repo.On("FindByOrderID", mock.Anything, models.ID("ORD-TEST0001")).Return(pending, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	gateway.On("Charge", mock.Anything, mock.Anything).Return(
		&domain.GatewayResult{Approved: true, TransactionID: "TXN456"}, nil)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, pending.ID.String(), result.PaymentID, "redelivery settles the stored payment, not a new one")
	assert.Equal(t, "COMPLETED", result.Status)
}

func TestProcessPaymentRequest_Validation(t *testing.T) {
	uc := NewProcessPaymentRequest(new(mocks.MockPaymentRepository),
		new(mocks.MockPaymentGateway), new(mocks.MockPublisher), testLogger())

	tests := []struct {
		name   string
		mutate func(cmd *ProcessPaymentRequestCommand)
	}{
		{"missing order id", func(cmd *ProcessPaymentRequestCommand) { cmd.OrderID = "" }},
		{"missing customer id", func(cmd *ProcessPaymentRequestCommand) { cmd.CustomerID = "" }},
		{"zero amount", func(cmd *ProcessPaymentRequestCommand) { cmd.Amount = decimal.Zero }},
		{"negative amount", func(cmd *ProcessPaymentRequestCommand) { cmd.Amount = decimal.RequireFromString("-1") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validRequest()
			tt.mutate(cmd)
			_, err := uc.Execute(context.Background(), cmd)
			require.Error(t, err)
			assert.True(t, faults.IsValidation(err))
		})
	}
}
