package application

import (
	"context"
	"io"
	"testing"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/globalbooks/fulfillment-system/shipping-service/domain"
	"github.com/globalbooks/fulfillment-system/shipping-service/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter("shipping-service-test", io.Discard)
}

func existingShipment(t *testing.T) *domain.Shipment {
	t.Helper()
	shipment, err := domain.CreateShipment("ORD-TEST0001", "CUST-001",
		domain.MethodStandard, decimal.RequireFromString("1.0"))
	require.NoError(t, err)
	shipment.ClearEvents()
	return shipment
}

func TestCreateShipment(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	publisher := new(mocks.MockPublisher)
	uc := NewCreateShipment(repo, publisher, testLogger())

	repo.On("FindByOrderID", mock.Anything, models.ID("ORD-TEST0001")).Return(nil, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	var broadcast *events.Event
	publisher.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			broadcast = args.Get(1).(*events.Event)
		}).Return(nil)

	view, err := uc.Execute(context.Background(), &CreateShipmentCommand{
		OrderID:    "ORD-TEST0001",
		CustomerID: "CUST-001",
		Method:     "EXPRESS",
		Weight:     decimal.RequireFromString("2.0"),
	})
	require.NoError(t, err)

	assert.Equal(t, "READY_TO_SHIP", view.Status)
	assert.Equal(t, "16", view.ShippingCost.String(), "EXPRESS base 12.00 plus 2.0 at 2.00")
	assert.NotEmpty(t, view.TrackingNumber)

	require.NotNil(t, broadcast)
	assert.Equal(t, "shipping.status.ready_to_ship", broadcast.Topic.String())
}

func TestCreateShipment_DuplicateOrder(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	uc := NewCreateShipment(repo, new(mocks.MockPublisher), testLogger())

	repo.On("FindByOrderID", mock.Anything, models.ID("ORD-TEST0001")).Return(existingShipment(t), nil)

	_, err := uc.Execute(context.Background(), &CreateShipmentCommand{
		OrderID:    "ORD-TEST0001",
		CustomerID: "CUST-001",
		Method:     "STANDARD",
		Weight:     decimal.RequireFromString("1.0"),
	})
	require.Error(t, err)
	assert.True(t, faults.IsConflict(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProcessPaymentStatus_CompletionCreatesShipment(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	publisher := new(mocks.MockPublisher)
	createShipment := NewCreateShipment(repo, publisher, testLogger())
	uc := NewProcessPaymentStatus(createShipment, testLogger())

	repo.On("FindByOrderID", mock.Anything, models.ID("ORD-TEST0001")).Return(nil, nil)

	var saved *domain.Shipment
	repo.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.Shipment)
		}).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	err := uc.Execute(context.Background(), &ProcessPaymentStatusCommand{
		EventType:  events.EventTypePaymentCompleted,
		PaymentID:  "PAY-1",
		OrderID:    "ORD-TEST0001",
		CustomerID: "CUST-001",
		Status:     "COMPLETED",
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, domain.MethodStandard, saved.Method)
	assert.Equal(t, "1", saved.Weight.String())
	assert.Equal(t, domain.ShipmentStatusReadyToShip, saved.Status)
}

func TestProcessPaymentStatus_DuplicateSignalIsNoop(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	createShipment := NewCreateShipment(repo, new(mocks.MockPublisher), testLogger())
	uc := NewProcessPaymentStatus(createShipment, testLogger())

	repo.On("FindByOrderID", mock.Anything, models.ID("ORD-TEST0001")).Return(existingShipment(t), nil)

	err := uc.Execute(context.Background(), &ProcessPaymentStatusCommand{
		EventType: events.EventTypePaymentCompleted,
		OrderID:   "ORD-TEST0001",
		Status:    "COMPLETED",
	})
	require.NoError(t, err, "redelivered completion must not error the consumer")
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProcessPaymentStatus_IgnoresOtherOutcomes(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	createShipment := NewCreateShipment(repo, new(mocks.MockPublisher), testLogger())
	uc := NewProcessPaymentStatus(createShipment, testLogger())

	for _, eventType := range []string{
		events.EventTypePaymentInitiated,
		events.EventTypePaymentFailed,
		events.EventTypePaymentCancelled,
		events.EventTypePaymentRefunded,
	} {
		err := uc.Execute(context.Background(), &ProcessPaymentStatusCommand{
			EventType: eventType,
			OrderID:   "ORD-TEST0001",
		})
		require.NoError(t, err)
	}

	repo.AssertNotCalled(t, "FindByOrderID", mock.Anything, mock.Anything)
}
