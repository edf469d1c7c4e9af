// Package mocks provides hand written testify mocks for the shipping
// service collaborators.
package mocks

import (
	"context"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/globalbooks/fulfillment-system/shipping-service/domain"
	"github.com/stretchr/testify/mock"
)

// MockShipmentRepository mocks domain.ShipmentRepository
type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) Save(ctx context.Context, shipment *domain.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *MockShipmentRepository) FindByID(ctx context.Context, id models.ID) (*domain.Shipment, error) {
	args := m.Called(ctx, id)
	if shipment, ok := args.Get(0).(*domain.Shipment); ok {
		return shipment, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockShipmentRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Shipment, error) {
	args := m.Called(ctx, orderID)
	if shipment, ok := args.Get(0).(*domain.Shipment); ok {
		return shipment, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockShipmentRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.Shipment, error) {
	args := m.Called(ctx, trackingNumber)
	if shipment, ok := args.Get(0).(*domain.Shipment); ok {
		return shipment, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockShipmentRepository) FindByCustomerID(ctx context.Context, customerID models.ID) ([]*domain.Shipment, error) {
	args := m.Called(ctx, customerID)
	if shipments, ok := args.Get(0).([]*domain.Shipment); ok {
		return shipments, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPublisher mocks events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	callArgs := make([]interface{}, 0, len(evts)+1)
	callArgs = append(callArgs, ctx)
	for _, evt := range evts {
		callArgs = append(callArgs, evt)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}
