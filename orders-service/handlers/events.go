package handlers

import (
	"context"

	"github.com/globalbooks/fulfillment-system/orders-service/application"
	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/pkg/errors"
)

// OrderEventHandlers routes inbound saga events to the orders use cases.
// Dispatch is a topic-pattern lookup; a topic matching no route is a
// typed unhandled case, logged and acknowledged.
type OrderEventHandlers struct {
	processPaymentResponse *application.ProcessPaymentResponse
	processShippingStatus  *application.ProcessShippingStatus
	logger                 *logging.Logger
	routes                 []eventRoute
}

type eventRoute struct {
	pattern events.Topic
	handle  func(ctx context.Context, event *events.Event) error
}

// NewOrderEventHandlers creates new order event handlers
func NewOrderEventHandlers(
	processPaymentResponse *application.ProcessPaymentResponse,
	processShippingStatus *application.ProcessShippingStatus,
	logger *logging.Logger,
) *OrderEventHandlers {
	h := &OrderEventHandlers{
		processPaymentResponse: processPaymentResponse,
		processShippingStatus:  processShippingStatus,
		logger:                 logger,
	}

	h.routes = []eventRoute{
		{events.Topic(events.PaymentResponseEvent), h.handlePaymentResponse},
		{events.ShippingStatusPattern, h.handleShippingStatus},
	}

	return h
}

// HandlerID returns the unique identifier for this event handler
func (h *OrderEventHandlers) HandlerID() string {
	return "orders-service-event-handler"
}

// Handle implements the events.EventHandler interface
func (h *OrderEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	for _, route := range h.routes {
		if event.Topic.Matches(route.pattern) {
			return route.handle(ctx, event)
		}
	}

	h.logger.Warn(ctx, "event_unhandled", "no route for topic",
		map[string]any{"topic": event.Topic.String(), "event_id": event.ID.String()})
	return nil
}

func (h *OrderEventHandlers) handlePaymentResponse(ctx context.Context, event *events.Event) error {
	var msg events.PaymentResponseMessage
	if err := event.UnmarshalPayload(&msg); err != nil {
		return faults.Validation(errors.Wrap(err, "malformed payment response payload"))
	}

	return h.processPaymentResponse.Execute(ctx, &application.ProcessPaymentResponseCommand{
		PaymentID:     msg.PaymentID,
		OrderID:       msg.OrderID,
		Status:        msg.Status,
		TransactionID: msg.TransactionID,
		Message:       msg.Message,
		ProcessedAt:   msg.ProcessedAt,
	})
}

func (h *OrderEventHandlers) handleShippingStatus(ctx context.Context, event *events.Event) error {
	var msg events.ShippingStatusMessage
	if err := event.UnmarshalPayload(&msg); err != nil {
		return faults.Validation(errors.Wrap(err, "malformed shipping status payload"))
	}

	return h.processShippingStatus.Execute(ctx, &application.ProcessShippingStatusCommand{
		ShipmentID:     msg.ShipmentID,
		OrderID:        msg.OrderID,
		Status:         msg.Status,
		TrackingNumber: msg.TrackingNumber,
		Carrier:        msg.Carrier,
		Timestamp:      msg.Timestamp,
	})
}
