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

// CancelPaymentCommand represents the command to cancel a payment
type CancelPaymentCommand struct {
	PaymentID string `json:"paymentId"`
}

// CancelPayment withdraws a payment that never settled.
type CancelPayment struct {
	paymentRepository domain.PaymentRepository
	eventPublisher    events.Publisher
	logger            *logging.Logger
}

// NewCancelPayment creates a new CancelPayment use case
func NewCancelPayment(
	paymentRepository domain.PaymentRepository,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *CancelPayment {
	return &CancelPayment{
		paymentRepository: paymentRepository,
		eventPublisher:    eventPublisher,
		logger:            logger,
	}
}

// Execute executes the cancel payment use case
func (uc *CancelPayment) Execute(ctx context.Context, cmd *CancelPaymentCommand) (*PaymentView, error) {
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

	if err := payment.Cancel(); err != nil {
		return nil, faults.Conflict(err)
	}

	if err := uc.paymentRepository.Save(ctx, payment); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to save payment"))
	}
	if err := uc.eventPublisher.Publish(ctx, payment.Events()...); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to publish cancellation event"))
	}
	payment.ClearEvents()

	uc.logger.Info(ctx, "payment_cancelled", "payment cancelled",
		map[string]any{"payment_id": cmd.PaymentID, "order_id": payment.OrderID.String()})

	return toPaymentView(payment), nil
}
