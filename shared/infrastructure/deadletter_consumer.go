package infrastructure

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/globalbooks/fulfillment-system/shared/telemetry"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
)

// DeadLetterConsumer drains the shared dead letter queue into the store.
// It works on raw bodies, never on the decoded envelope: a message lands
// here precisely because something about it could not be processed, and
// this queue has no further dead letter path. A message is acknowledged
// only after the store write succeeds; store failures requeue.
type DeadLetterConsumer struct {
	client  *AMQPClient
	store   DeadLetterStore
	logger  *logging.Logger
	cancel  context.CancelFunc
	running atomic.Bool
	mux     sync.Mutex
	done    sync.WaitGroup
}

// NewDeadLetterConsumer creates a new DeadLetterConsumer
func NewDeadLetterConsumer(client *AMQPClient, store DeadLetterStore, logger *logging.Logger) *DeadLetterConsumer {
	return &DeadLetterConsumer{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Start begins draining the dead letter queue in the background.
func (c *DeadLetterConsumer) Start(ctx context.Context) error {
	if c.running.Load() {
		return nil
	}

	c.mux.Lock()
	defer c.mux.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running.Store(true)

	c.done.Add(1)
	go c.run(ctx)

	return nil
}

// Stop cancels consumption and waits for the loop to exit.
func (c *DeadLetterConsumer) Stop(ctx context.Context) error {
	if !c.running.Load() {
		return nil
	}

	c.mux.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mux.Unlock()

	finished := make(chan struct{})
	go func() {
		c.done.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.running.Store(false)
	return nil
}

func (c *DeadLetterConsumer) run(ctx context.Context) {
	defer c.done.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ch, err := c.client.NewConsumerChannel(1)
		if err != nil {
			c.logger.Error(ctx, "dlq_channel_failed", "could not open dead letter channel", err)
			c.sleep(ctx, 2*time.Second)
			continue
		}

		deliveries, err := ch.Consume(OrderDeadLetterQueue, "", false, false, false, false, nil)
		if err != nil {
			c.logger.Error(ctx, "dlq_consume_failed", "could not consume dead letter queue", err)
			ch.Close()
			c.sleep(ctx, 2*time.Second)
			continue
		}

		for delivery := range deliveries {
			c.handleDelivery(ctx, delivery)
		}
		ch.Close()
	}
}

func (c *DeadLetterConsumer) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	letter := &DeadLetter{
		ID:         deadLetterID(delivery),
		Queue:      firstDeathQueue(delivery),
		RoutingKey: delivery.RoutingKey,
		Exchange:   delivery.Exchange,
		Body:       json.RawMessage(delivery.Body),
		Headers:    map[string]any(delivery.Headers),
		Reason:     deathReason(delivery),
		DeadAt:     time.Now().UTC(),
	}

	if err := c.store.Save(ctx, letter); err != nil {
		// keep the message on the queue until the store recovers
		c.logger.Error(ctx, "dlq_store_failed", "could not persist dead letter", err)
		if nackErr := delivery.Nack(false, true); nackErr != nil {
			c.logger.Error(ctx, "dlq_settle_failed", "could not requeue dead letter", nackErr)
		}
		c.sleep(ctx, time.Second)
		return
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.Error(ctx, "dlq_settle_failed", "could not acknowledge dead letter", err)
		return
	}

	c.logger.Warn(ctx, "dead_letter_stored", "message stored for manual reconciliation",
		map[string]any{
			"id":          letter.ID.String(),
			"queue":       letter.Queue,
			"routing_key": letter.RoutingKey,
			"reason":      letter.Reason,
		})

	telemetry.RecordCounter(ctx, "saga_events_dead_lettered_total", "Saga events dead lettered", 1,
		attribute.String("queue", letter.Queue),
		attribute.String("reason", letter.Reason),
	)
}

func (c *DeadLetterConsumer) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// deadLetterID prefers the original envelope id so a redelivered store is
// idempotent. Falls back to a fresh UUID for bodies that never were
// envelopes.
func deadLetterID(delivery amqp.Delivery) models.ID {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(delivery.Body, &envelope); err == nil && envelope.ID != "" {
		return models.ID(envelope.ID)
	}
	if delivery.MessageId != "" {
		return models.ID(delivery.MessageId)
	}
	return models.GenerateUUID()
}

func firstDeathQueue(delivery amqp.Delivery) string {
	if v, ok := delivery.Headers["x-first-death-queue"].(string); ok {
		return v
	}
	return ""
}

func deathReason(delivery amqp.Delivery) string {
	if v, ok := delivery.Headers["x-first-death-reason"].(string); ok {
		return v
	}
	return "unknown"
}
