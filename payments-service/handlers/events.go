package handlers

import (
	"context"

	"github.com/globalbooks/fulfillment-system/payments-service/application"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/pkg/errors"
)

// PaymentEventHandlers routes inbound saga events to the payment use cases.
type PaymentEventHandlers struct {
	processPaymentRequest *application.ProcessPaymentRequest
	logger                *logging.Logger
	routes                []eventRoute
}

type eventRoute struct {
	pattern events.Topic
	handle  func(ctx context.Context, event *events.Event) error
}

// NewPaymentEventHandlers creates new payment event handlers
func NewPaymentEventHandlers(
	processPaymentRequest *application.ProcessPaymentRequest,
	logger *logging.Logger,
) *PaymentEventHandlers {
	h := &PaymentEventHandlers{
		processPaymentRequest: processPaymentRequest,
		logger:                logger,
	}

	h.routes = []eventRoute{
		{events.Topic(events.PaymentRequestEvent), h.handlePaymentRequest},
	}

	return h
}

// HandlerID returns the unique identifier for this event handler
func (h *PaymentEventHandlers) HandlerID() string {
	return "payments-service-event-handler"
}

// Handle implements the events.EventHandler interface
func (h *PaymentEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	for _, route := range h.routes {
		if event.Topic.Matches(route.pattern) {
			return route.handle(ctx, event)
		}
	}

	h.logger.Warn(ctx, "event_unhandled", "no route for topic",
		map[string]any{"topic": event.Topic.String(), "event_id": event.ID.String()})
	return nil
}

func (h *PaymentEventHandlers) handlePaymentRequest(ctx context.Context, event *events.Event) error {
	var msg events.PaymentRequestMessage
	if err := event.UnmarshalPayload(&msg); err != nil {
		return faults.Validation(errors.Wrap(err, "malformed payment request payload"))
	}

	_, err := h.processPaymentRequest.Execute(ctx, &application.ProcessPaymentRequestCommand{
		OrderID:       msg.OrderID,
		CustomerID:    msg.CustomerID,
		Amount:        msg.Amount,
		Currency:      msg.Currency,
		PaymentMethod: msg.PaymentMethod,
	})
	return err
}
