package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// Payment aggregate root. At most one active payment exists per order;
// the duplicate guard lives in the use case, the uniqueness constraint
// in the store.
type Payment struct {
	ID            models.ID
	OrderID       models.ID
	CustomerID    models.ID
	Amount        models.Money
	PaymentMethod string
	Status        PaymentStatus
	TransactionID string
	FailureReason string
	ProcessedAt   *time.Time
	Timestamps    models.Timestamps
	Version       models.Version

	events []*events.Event
}

// GenerateTransactionID builds a settlement reference the way the
// gateway reconciliation expects them, millisecond clock plus an
// uppercased UUID fragment.
func GenerateTransactionID() string {
	return fmt.Sprintf("TXN%d%s", time.Now().UnixMilli(),
		strings.ToUpper(uuid.New().String()[:8]))
}

// CreatePayment factory method
func CreatePayment(orderID, customerID models.ID, amount models.Money, paymentMethod string) (*Payment, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}
	if !amount.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}

	payment := &Payment{
		ID:            models.GenerateUUID(),
		OrderID:       orderID,
		CustomerID:    customerID,
		Amount:        amount,
		PaymentMethod: paymentMethod,
		Status:        PaymentStatusPending,
		Timestamps:    models.NewTimestamps(),
		Version:       models.NewVersion(),
	}

	payment.recordStatusEvent(events.PaymentInitiatedEvent, events.EventTypePaymentInitiated, "payment initiated")
	return payment, nil
}

// Process marks the payment as handed to the gateway
func (p *Payment) Process() error {
	if p.Status != PaymentStatusPending {
		return errors.Errorf("payment can only be processed from PENDING, current status %s", p.Status)
	}

	p.Status = PaymentStatusProcessing
	p.touch()
	return nil
}

// Complete settles the payment with the gateway's transaction reference
func (p *Payment) Complete(transactionID string) error {
	if p.Status != PaymentStatusProcessing {
		return errors.Errorf("payment can only be completed from PROCESSING, current status %s", p.Status)
	}

	now := time.Now()
	p.Status = PaymentStatusCompleted
	p.TransactionID = transactionID
	p.ProcessedAt = &now
	p.touch()

	p.recordStatusEvent(events.PaymentCompletedEvent, events.EventTypePaymentCompleted, "payment completed")
	return nil
}

// Fail records a declined or errored settlement attempt
func (p *Payment) Fail(reason string) error {
	if p.Status == PaymentStatusCompleted || p.Status == PaymentStatusRefunded {
		return errors.Errorf("cannot fail a payment in status %s", p.Status)
	}

	now := time.Now()
	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.ProcessedAt = &now
	p.touch()

	p.recordStatusEvent(events.PaymentFailedEvent, events.EventTypePaymentFailed, reason)
	return nil
}

// Cancel withdraws a payment that never settled. Failed payments may
// also be cancelled, which is how a retry retires the old record.
func (p *Payment) Cancel() error {
	if p.Status != PaymentStatusPending && p.Status != PaymentStatusFailed {
		return errors.Errorf("payment can only be cancelled from PENDING or FAILED, current status %s", p.Status)
	}

	p.Status = PaymentStatusCancelled
	p.touch()

	p.recordStatusEvent(events.PaymentCancelledEvent, events.EventTypePaymentCancelled, "payment cancelled")
	return nil
}

// Refund reverses a settled payment
func (p *Payment) Refund() error {
	if p.Status != PaymentStatusCompleted {
		return errors.Errorf("payment can only be refunded from COMPLETED, current status %s", p.Status)
	}

	p.Status = PaymentStatusRefunded
	p.touch()

	p.recordStatusEvent(events.PaymentRefundedEvent, events.EventTypePaymentRefunded, "payment refunded")
	return nil
}

func (p *Payment) touch() {
	p.Timestamps = p.Timestamps.Update()
	p.Version = p.Version.Update()
}

func (p *Payment) recordStatusEvent(topic, eventType, message string) {
	event := events.NewEvent(p.ID, topic, p.toStatusMessage(eventType, message)).
		WithCorrelationID(p.OrderID)
	p.recordEvent(event)
}

// toStatusMessage builds the broadcast payload for the current state.
func (p *Payment) toStatusMessage(eventType, message string) *events.PaymentStatusMessage {
	return &events.PaymentStatusMessage{
		EventID:    models.GenerateUUID().String(),
		EventType:  eventType,
		PaymentID:  p.ID.String(),
		OrderID:    p.OrderID.String(),
		CustomerID: p.CustomerID.String(),
		Amount:     p.Amount.Amount,
		Currency:   p.Amount.Currency,
		Status:     string(p.Status),
		Message:    message,
		Timestamp:  time.Now(),
	}
}

// ToResponseMessage builds the payment response sent back to the
// orders participant, always carrying the final status.
func (p *Payment) ToResponseMessage(message string) *events.PaymentResponseMessage {
	processedAt := time.Now()
	if p.ProcessedAt != nil {
		processedAt = *p.ProcessedAt
	}

	return &events.PaymentResponseMessage{
		PaymentID:     p.ID.String(),
		OrderID:       p.OrderID.String(),
		CustomerID:    p.CustomerID.String(),
		Amount:        p.Amount.Amount,
		Currency:      p.Amount.Currency,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		Message:       message,
		ProcessedAt:   processedAt,
	}
}

// recordEvent records a domain event
func (p *Payment) recordEvent(event *events.Event) {
	p.events = append(p.events, event)
}

// Events returns recorded domain events
func (p *Payment) Events() []*events.Event {
	return p.events
}

// ClearEvents clears recorded domain events
func (p *Payment) ClearEvents() {
	p.events = nil
}

// GatewayResult is the outcome of a settlement attempt. A decline is a
// normal result, not an error; errors mean the attempt itself broke.
type GatewayResult struct {
	Approved      bool
	TransactionID string
	Message       string
}

// PaymentGateway is the settlement integration point
type PaymentGateway interface {
	Charge(ctx context.Context, payment *Payment) (*GatewayResult, error)
}

// PaymentRepository defines the payment repository interface
type PaymentRepository interface {
	Save(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id models.ID) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID models.ID) (*Payment, error)
	FindByCustomerID(ctx context.Context, customerID models.ID) ([]*Payment, error)
}
