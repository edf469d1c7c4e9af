package application

import (
	"context"
	"testing"

	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shipping-service/domain"
	"github.com/globalbooks/fulfillment-system/shipping-service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpdateShipmentStatus(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	publisher := new(mocks.MockPublisher)
	uc := NewUpdateShipmentStatus(repo, publisher, testLogger())

	shipment := existingShipment(t)
	repo.On("FindByID", mock.Anything, shipment.ID).Return(shipment, nil)
	repo.On("Save", mock.Anything, shipment).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	view, err := uc.Execute(context.Background(), &UpdateShipmentStatusCommand{
		ShipmentID: shipment.ID.String(),
		Status:     "PICKED_UP",
	})
	require.NoError(t, err)
	assert.Equal(t, "PICKED_UP", view.Status)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestUpdateShipmentStatus_SameStatusIsNoop(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	publisher := new(mocks.MockPublisher)
	uc := NewUpdateShipmentStatus(repo, publisher, testLogger())

	shipment := existingShipment(t)
	repo.On("FindByID", mock.Anything, shipment.ID).Return(shipment, nil)

	view, err := uc.Execute(context.Background(), &UpdateShipmentStatusCommand{
		ShipmentID: shipment.ID.String(),
		Status:     "READY_TO_SHIP",
	})
	require.NoError(t, err)
	assert.Equal(t, "READY_TO_SHIP", view.Status)

	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestUpdateShipmentStatus_UnknownStatus(t *testing.T) {
	uc := NewUpdateShipmentStatus(new(mocks.MockShipmentRepository), new(mocks.MockPublisher), testLogger())

	_, err := uc.Execute(context.Background(), &UpdateShipmentStatusCommand{
		ShipmentID: "some-id",
		Status:     "TELEPORTED",
	})
	require.Error(t, err)
	assert.True(t, faults.IsValidation(err))
}

func TestUpdateShipmentStatus_NotFound(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	uc := NewUpdateShipmentStatus(repo, new(mocks.MockPublisher), testLogger())

	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := uc.Execute(context.Background(), &UpdateShipmentStatusCommand{
		ShipmentID: "missing",
		Status:     "PICKED_UP",
	})
	assert.ErrorIs(t, err, ErrShipmentNotFound)
}

func TestCancelShipment(t *testing.T) {
	repo := new(mocks.MockShipmentRepository)
	publisher := new(mocks.MockPublisher)
	uc := NewCancelShipment(NewUpdateShipmentStatus(repo, publisher, testLogger()))

	t.Run("before pickup", func(t *testing.T) {
		shipment := existingShipment(t)
		repo.On("FindByID", mock.Anything, shipment.ID).Return(shipment, nil)
		repo.On("Save", mock.Anything, shipment).Return(nil)
		publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		view, err := uc.Execute(context.Background(), shipment.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", view.Status)
	})

	t.Run("in transit refused", func(t *testing.T) {
		shipment := existingShipment(t)
		require.NoError(t, shipment.UpdateStatus(domain.ShipmentStatusPickedUp))
		require.NoError(t, shipment.UpdateStatus(domain.ShipmentStatusInTransit))
		shipment.ClearEvents()
		repo.On("FindByID", mock.Anything, shipment.ID).Return(shipment, nil)

		_, err := uc.Execute(context.Background(), shipment.ID.String())
		require.Error(t, err)
		assert.True(t, faults.IsConflict(err))
	})
}
