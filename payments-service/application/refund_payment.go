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

// ErrPaymentNotFound is returned when a payment does not exist
var ErrPaymentNotFound = errors.New("payment not found")

// RefundPaymentCommand represents the command to refund a payment
type RefundPaymentCommand struct {
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason"`
}

// RefundPayment reverses a settled payment and broadcasts the refund.
type RefundPayment struct {
	paymentRepository domain.PaymentRepository
	eventPublisher    events.Publisher
	logger            *logging.Logger
}

// NewRefundPayment creates a new RefundPayment use case
func NewRefundPayment(
	paymentRepository domain.PaymentRepository,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *RefundPayment {
	return &RefundPayment{
		paymentRepository: paymentRepository,
		eventPublisher:    eventPublisher,
		logger:            logger,
	}
}

// Execute executes the refund payment use case
func (uc *RefundPayment) Execute(ctx context.Context, cmd *RefundPaymentCommand) (*PaymentView, error) {
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

	if err := payment.Refund(); err != nil {
		return nil, faults.Conflict(err)
	}

	if err := uc.paymentRepository.Save(ctx, payment); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to save payment"))
	}
	if err := uc.eventPublisher.Publish(ctx, payment.Events()...); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to publish refund event"))
	}
	payment.ClearEvents()

	uc.logger.Info(ctx, "payment_refunded", "payment refunded",
		map[string]any{"payment_id": cmd.PaymentID, "order_id": payment.OrderID.String(), "reason": cmd.Reason})

	return toPaymentView(payment), nil
}
