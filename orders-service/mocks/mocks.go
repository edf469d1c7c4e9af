// Package mocks provides hand written testify mocks for the orders
// service collaborators.
package mocks

import (
	"context"

	"github.com/globalbooks/fulfillment-system/orders-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository mocks domain.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if order, ok := args.Get(0).(*domain.Order); ok {
		return order, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) FindByCustomerID(ctx context.Context, customerID models.ID) ([]*domain.Order, error) {
	args := m.Called(ctx, customerID)
	if orders, ok := args.Get(0).([]*domain.Order); ok {
		return orders, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id models.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
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

// MockPriceResolver mocks domain.PriceResolver
type MockPriceResolver struct {
	mock.Mock
}

func (m *MockPriceResolver) UnitPrice(ctx context.Context, productID string) (models.Money, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(models.Money), args.Error(1)
}
