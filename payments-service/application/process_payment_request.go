package application

import (
	"context"

	"github.com/globalbooks/fulfillment-system/payments-service/domain"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ProcessPaymentRequestCommand carries a settlement request for one order.
type ProcessPaymentRequestCommand struct {
	OrderID       string          `json:"orderId"`
	CustomerID    string          `json:"customerId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"paymentMethod"`
}

// ProcessPaymentRequestResponse represents the outcome of a settlement
type ProcessPaymentRequestResponse struct {
	PaymentID     string `json:"paymentId"`
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// ProcessPaymentRequest settles a payment request end to end. Whatever
// the gateway decides, a payment response goes back to the orders side;
// the requester is never left waiting on a silent failure.
type ProcessPaymentRequest struct {
	paymentRepository domain.PaymentRepository
	paymentGateway    domain.PaymentGateway
	eventPublisher    events.Publisher
	logger            *logging.Logger
}

// NewProcessPaymentRequest creates a new ProcessPaymentRequest use case
func NewProcessPaymentRequest(
	paymentRepository domain.PaymentRepository,
	paymentGateway domain.PaymentGateway,
	eventPublisher events.Publisher,
	logger *logging.Logger,
) *ProcessPaymentRequest {
	return &ProcessPaymentRequest{
		paymentRepository: paymentRepository,
		paymentGateway:    paymentGateway,
		eventPublisher:    eventPublisher,
		logger:            logger,
	}
}

// Execute executes the process payment request use case
func (uc *ProcessPaymentRequest) Execute(ctx context.Context, cmd *ProcessPaymentRequestCommand) (*ProcessPaymentRequestResponse, error) {
	if cmd.OrderID == "" {
		return nil, faults.Validationf("payment request missing orderId")
	}
	if cmd.CustomerID == "" {
		return nil, faults.Validationf("payment request missing customerId")
	}
	if !cmd.Amount.IsPositive() {
		return nil, faults.Validationf("payment request amount must be positive")
	}

	orderID := models.ID(cmd.OrderID)

	existing, err := uc.paymentRepository.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to check for existing payment"))
	}
	if existing != nil {
		// the fabric may redeliver; a second settlement for the same
		// order must never happen. A payment still PENDING was stored
		// but never reached the gateway, so redelivery resumes it.
		if existing.Status == domain.PaymentStatusPending {
			message, err := uc.settle(ctx, existing)
			if err != nil {
				return nil, err
			}
			return &ProcessPaymentRequestResponse{
				PaymentID:     existing.ID.String(),
				OrderID:       existing.OrderID.String(),
				Status:        string(existing.Status),
				TransactionID: existing.TransactionID,
				Message:       message,
			}, nil
		}

		uc.logger.Warn(ctx, "payment_duplicate_request",
			"payment already exists for order",
			map[string]any{"order_id": cmd.OrderID, "payment_id": existing.ID.String(), "status": string(existing.Status)})
		return nil, faults.Conflictf("payment already exists for order %s", cmd.OrderID)
	}

	payment, err := domain.CreatePayment(orderID, models.ID(cmd.CustomerID),
		models.NewMoney(cmd.Amount, cmd.Currency), cmd.PaymentMethod)
	if err != nil {
		return nil, faults.Validation(errors.Wrap(err, "invalid payment request"))
	}

	if err := uc.paymentRepository.Save(ctx, payment); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to save payment"))
	}
	if err := uc.eventPublisher.Publish(ctx, payment.Events()...); err != nil {
		return nil, faults.Transient(errors.Wrap(err, "failed to publish payment initiated event"))
	}
	payment.ClearEvents()

	message, err := uc.settle(ctx, payment)
	if err != nil {
		return nil, err
	}

	return &ProcessPaymentRequestResponse{
		PaymentID:     payment.ID.String(),
		OrderID:       payment.OrderID.String(),
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		Message:       message,
	}, nil
}

// settle runs the gateway call and drives the payment to its final
// state, persisting and broadcasting the outcome. Shared with retries.
func (uc *ProcessPaymentRequest) settle(ctx context.Context, payment *domain.Payment) (string, error) {
	if err := payment.Process(); err != nil {
		return "", faults.Conflict(err)
	}

	var message string
	result, err := uc.paymentGateway.Charge(ctx, payment)
	switch {
	case err != nil:
		// a broken gateway call is still a final FAILED outcome; the
		// payment must not sit in PROCESSING forever
		message = err.Error()
		if failErr := payment.Fail(message); failErr != nil {
			return "", failErr
		}
		uc.logger.Error(ctx, "payment_gateway_error", "gateway call failed", err)
	case result.Approved:
		transactionID := result.TransactionID
		if transactionID == "" {
			transactionID = domain.GenerateTransactionID()
		}
		message = result.Message
		if err := payment.Complete(transactionID); err != nil {
			return "", err
		}
	default:
		message = result.Message
		if err := payment.Fail(message); err != nil {
			return "", err
		}
	}

	if err := uc.paymentRepository.Save(ctx, payment); err != nil {
		return "", faults.Transient(errors.Wrap(err, "failed to save payment outcome"))
	}

	response := events.NewEvent(payment.ID, events.PaymentResponseEvent, payment.ToResponseMessage(message)).
		WithCorrelationID(payment.OrderID)

	outbound := append(payment.Events(), response)
	if err := uc.eventPublisher.Publish(ctx, outbound...); err != nil {
		return "", faults.Transient(errors.Wrap(err, "failed to publish payment outcome"))
	}
	payment.ClearEvents()

	uc.logger.Info(ctx, "payment_settled", "settlement finished",
		map[string]any{"payment_id": payment.ID.String(), "order_id": payment.OrderID.String(), "status": string(payment.Status)})

	return message, nil
}
