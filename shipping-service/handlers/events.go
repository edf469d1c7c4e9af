package handlers

import (
	"context"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shipping-service/application"
	"github.com/pkg/errors"
)

// ShipmentEventHandlers routes inbound saga events to the shipping use cases.
type ShipmentEventHandlers struct {
	processPaymentStatus *application.ProcessPaymentStatus
	logger               *logging.Logger
	routes               []eventRoute
}

type eventRoute struct {
	pattern events.Topic
	handle  func(ctx context.Context, event *events.Event) error
}

// NewShipmentEventHandlers creates new shipment event handlers
func NewShipmentEventHandlers(
	processPaymentStatus *application.ProcessPaymentStatus,
	logger *logging.Logger,
) *ShipmentEventHandlers {
	h := &ShipmentEventHandlers{
		processPaymentStatus: processPaymentStatus,
		logger:               logger,
	}

	h.routes = []eventRoute{
		{events.PaymentStatusPattern, h.handlePaymentStatus},
	}

	return h
}

// HandlerID returns the unique identifier for this event handler
func (h *ShipmentEventHandlers) HandlerID() string {
	return "shipping-service-event-handler"
}

// Handle implements the events.EventHandler interface
func (h *ShipmentEventHandlers) Handle(ctx context.Context, event *events.Event) error {
	for _, route := range h.routes {
		if event.Topic.Matches(route.pattern) {
			return route.handle(ctx, event)
		}
	}

	h.logger.Warn(ctx, "event_unhandled", "no route for topic",
		map[string]any{"topic": event.Topic.String(), "event_id": event.ID.String()})
	return nil
}

func (h *ShipmentEventHandlers) handlePaymentStatus(ctx context.Context, event *events.Event) error {
	var msg events.PaymentStatusMessage
	if err := event.UnmarshalPayload(&msg); err != nil {
		return faults.Validation(errors.Wrap(err, "malformed payment status payload"))
	}

	return h.processPaymentStatus.Execute(ctx, &application.ProcessPaymentStatusCommand{
		EventType:  msg.EventType,
		PaymentID:  msg.PaymentID,
		OrderID:    msg.OrderID,
		CustomerID: msg.CustomerID,
		Status:     msg.Status,
	})
}
