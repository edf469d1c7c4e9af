// Package mocks provides hand written testify mocks for the payments
// service collaborators.
package mocks

import (
	"context"

	"github.com/globalbooks/fulfillment-system/payments-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/stretchr/testify/mock"
)

// MockPaymentRepository mocks domain.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id models.ID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if payment, ok := args.Get(0).(*domain.Payment); ok {
		return payment, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepository) FindByOrderID(ctx context.Context, orderID models.ID) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if payment, ok := args.Get(0).(*domain.Payment); ok {
		return payment, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPaymentRepository) FindByCustomerID(ctx context.Context, customerID models.ID) ([]*domain.Payment, error) {
	args := m.Called(ctx, customerID)
	if payments, ok := args.Get(0).([]*domain.Payment); ok {
		return payments, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPaymentGateway mocks domain.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Charge(ctx context.Context, payment *domain.Payment) (*domain.GatewayResult, error) {
	args := m.Called(ctx, payment)
	if result, ok := args.Get(0).(*domain.GatewayResult); ok {
		return result, args.Error(1)
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
