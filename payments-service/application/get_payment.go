package application

import (
	"context"
	"time"

	"github.com/globalbooks/fulfillment-system/payments-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// GetPaymentQuery represents the query to get a payment
type GetPaymentQuery struct {
	PaymentID string
}

// PaymentView is the read model returned by the payment queries.
type PaymentView struct {
	PaymentID     string          `json:"paymentId"`
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// GetPayment returns a single payment by id.
type GetPayment struct {
	paymentRepository domain.PaymentRepository
}

// NewGetPayment creates a new GetPayment use case
func NewGetPayment(paymentRepository domain.PaymentRepository) *GetPayment {
	return &GetPayment{paymentRepository: paymentRepository}
}

// Execute executes the get payment query
func (uc *GetPayment) Execute(ctx context.Context, query *GetPaymentQuery) (*PaymentView, error) {
	paymentID, err := models.NewID(query.PaymentID)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid payment ID"))
	}

	payment, err := uc.paymentRepository.FindByID(ctx, paymentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get payment")
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	return toPaymentView(payment), nil
}

// GetPaymentByOrder returns the payment attached to an order.
type GetPaymentByOrder struct {
	paymentRepository domain.PaymentRepository
}

// NewGetPaymentByOrder creates a new GetPaymentByOrder use case
func NewGetPaymentByOrder(paymentRepository domain.PaymentRepository) *GetPaymentByOrder {
	return &GetPaymentByOrder{paymentRepository: paymentRepository}
}

// Execute executes the get payment by order query
func (uc *GetPaymentByOrder) Execute(ctx context.Context, orderID string) (*PaymentView, error) {
	id, err := models.NewID(orderID)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid order ID"))
	}

	payment, err := uc.paymentRepository.FindByOrderID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get payment by order")
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	return toPaymentView(payment), nil
}

// ListPayments returns all payments of a customer.
type ListPayments struct {
	paymentRepository domain.PaymentRepository
}

// NewListPayments creates a new ListPayments use case
func NewListPayments(paymentRepository domain.PaymentRepository) *ListPayments {
	return &ListPayments{paymentRepository: paymentRepository}
}

// Execute executes the list payments query
func (uc *ListPayments) Execute(ctx context.Context, customerID string) ([]*PaymentView, error) {
	id, err := models.NewID(customerID)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid customer ID"))
	}

	payments, err := uc.paymentRepository.FindByCustomerID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list payments")
	}

	views := make([]*PaymentView, len(payments))
	for i, payment := range payments {
		views[i] = toPaymentView(payment)
	}
	return views, nil
}

func toPaymentView(payment *domain.Payment) *PaymentView {
	return &PaymentView{
		PaymentID:     payment.ID.String(),
		OrderID:       payment.OrderID.String(),
		CustomerID:    payment.CustomerID.String(),
		Amount:        payment.Amount.Amount,
		Currency:      payment.Amount.Currency,
		PaymentMethod: payment.PaymentMethod,
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		FailureReason: payment.FailureReason,
		ProcessedAt:   payment.ProcessedAt,
		CreatedAt:     payment.Timestamps.CreatedAt,
		UpdatedAt:     payment.Timestamps.UpdatedAt,
	}
}
