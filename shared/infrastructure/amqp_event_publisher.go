package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/globalbooks/fulfillment-system/shared/telemetry"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var _ events.Publisher = (*AMQPEventPublisher)(nil)

// amqpMessage is the wire envelope carried as the AMQP message body.
type amqpMessage struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Metadata      events.Metadata `json:"metadata"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// AMQPEventPublisher implements events.Publisher on the broker. The event
// topic is the routing key and its first segment selects the exchange.
type AMQPEventPublisher struct {
	client *AMQPClient
}

// NewAMQPEventPublisher creates a new AMQPEventPublisher
func NewAMQPEventPublisher(client *AMQPClient) *AMQPEventPublisher {
	return &AMQPEventPublisher{client: client}
}

// Publish publishes events to the broker, concurrently when given several.
func (p *AMQPEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	gr, ctx := errgroup.WithContext(ctx)

	for _, event := range evts {
		event := event
		gr.Go(func() error {
			return p.publishOne(ctx, event)
		})
	}

	return gr.Wait()
}

func (p *AMQPEventPublisher) publishOne(ctx context.Context, event *events.Event) error {
	payload, err := event.MarshalPayload()
	if err != nil {
		return errors.Wrap(err, "failed to marshal payload")
	}

	message := &amqpMessage{
		ID:            event.ID.String(),
		AggregateID:   event.AggregateID.String(),
		Topic:         event.Topic.String(),
		EventType:     event.EventType,
		Version:       event.Version,
		Metadata:      event.Metadata,
		Payload:       payload,
		Timestamp:     event.Timestamp,
		CorrelationID: event.CorrelationID.String(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	headers := amqp.Table{"topic": event.Topic.String()}
	for k, v := range event.Metadata {
		headers[k] = v
	}

	topic := event.Topic.String()
	exchange := ExchangeForTopic(topic)

	if err := p.client.PublishMessage(ctx, exchange, topic, body, headers); err != nil {
		return errors.Wrapf(err, "failed to publish %s", topic)
	}

	telemetry.RecordCounter(ctx, "saga_events_published_total", "Saga events published", 1,
		attribute.String("topic", topic),
		attribute.String("exchange", exchange),
	)

	return nil
}

// decodeAMQPMessage rebuilds the domain event from a delivery body.
func decodeAMQPMessage(body []byte) (*events.Event, error) {
	var message amqpMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal message envelope")
	}

	topic, err := events.NewTopic(message.Topic)
	if err != nil {
		return nil, errors.Wrap(err, "message envelope has no topic")
	}

	metadata := message.Metadata
	if metadata == nil {
		metadata = make(events.Metadata)
	}

	return &events.Event{
		ID:            models.ID(message.ID),
		AggregateID:   models.ID(message.AggregateID),
		Topic:         topic,
		EventType:     message.EventType,
		Version:       message.Version,
		Data:          message.Payload,
		Metadata:      metadata,
		Timestamp:     message.Timestamp,
		CorrelationID: models.ID(message.CorrelationID),
	}, nil
}
