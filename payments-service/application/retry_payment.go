package application

import (
	"context"

	"github.com/globalbooks/fulfillment-system/payments-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
)

// RetryPaymentCommand represents the command to retry a failed payment
type RetryPaymentCommand struct {
	PaymentID string `json:"paymentId"`
}

// RetryPayment retires a failed payment and runs a fresh settlement
// attempt for the same order.
type RetryPayment struct {
	paymentRepository domain.PaymentRepository
	eventPublisher    events.Publisher
	processRequest    *ProcessPaymentRequest
	logger            *logging.Logger
}

// NewRetryPayment creates a new RetryPayment use case
func NewRetryPayment(
	paymentRepository domain.PaymentRepository,
	eventPublisher events.Publisher,
	processRequest *ProcessPaymentRequest,
	logger *logging.Logger,
) *RetryPayment {
	return &RetryPayment{
		paymentRepository: paymentRepository,
		eventPublisher:    eventPublisher,
		processRequest:    processRequest,
		logger:            logger,
	}
}

// Execute executes the retry payment use case
func (uc *RetryPayment) Execute(ctx context.Context, cmd *RetryPaymentCommand) (*ProcessPaymentRequestResponse, error) {
	paymentID, err := models.NewID(cmd.PaymentID)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid payment ID"))
	}

	payment, err := uc.paymentRepository.FindByID(ctx, paymentID)
	if err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to load payment"))
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if payment.Status != domain.PaymentStatusFailed {
		return nil, faults.Conflictf("only failed payments can be retried, current status %s", payment.Status)
	}

	// retire the failed record first so the duplicate guard lets the
	// fresh attempt through
	if err := payment.Cancel(); err != nil {
		return nil, faults.Conflict(err)
	}
	if err := uc.paymentRepository.Save(ctx, payment); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to save cancelled payment"))
	}
	if err := uc.eventPublisher.Publish(ctx, payment.Events()...); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to publish cancellation event"))
	}
	payment.ClearEvents()

	uc.logger.Info(ctx, "payment_retry", "retrying failed payment",
		map[string]any{"payment_id": cmd.PaymentID, "order_id": payment.OrderID.String()})

	return uc.processRequest.Execute(ctx, &ProcessPaymentRequestCommand{
		OrderID:       payment.OrderID.String(),
		CustomerID:    payment.CustomerID.String(),
		Amount:        payment.Amount.Amount,
		Currency:      payment.Amount.Currency,
		PaymentMethod: payment.PaymentMethod,
	})
}
