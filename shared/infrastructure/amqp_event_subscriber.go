package infrastructure

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/events"
	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/globalbooks/fulfillment-system/shared/telemetry"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
)

// ackDecision is the disposition of one delivery after handling.
type ackDecision int

const (
	ackMessage     ackDecision = iota // done, or conflict logged as handled
	rejectMessage                     // unprocessable, dead letter now
	requeueMessage                    // transient, retry until queue TTL
)

// decideAck maps a handler error to a delivery disposition. Only transient
// failures requeue; unclassified errors are treated as transient so the
// queue TTL bounds them and nothing is dropped without dead lettering.
func decideAck(err error) ackDecision {
	switch {
	case err == nil:
		return ackMessage
	case faults.IsConflict(err):
		return ackMessage
	case faults.IsValidation(err):
		return rejectMessage
	default:
		return requeueMessage
	}
}

func (d ackDecision) String() string {
	switch d {
	case rejectMessage:
		return "reject"
	case requeueMessage:
		return "requeue"
	default:
		return "ack"
	}
}

// AMQPEventSubscriber consumes one queue and feeds a worker pool. Workers
// acknowledge per message according to the error taxonomy.
type AMQPEventSubscriber struct {
	client   *AMQPClient
	queue    string
	handler  events.EventHandler
	logger   *logging.Logger
	options  *amqpSubscriberOptions
	cancel   context.CancelFunc
	running  atomic.Bool
	mux      sync.Mutex
	finished sync.WaitGroup
}

type amqpSubscriberOptions struct {
	workers          int
	prefetch         int
	reconnectBackoff time.Duration
}

type AMQPSubscriberOption func(*amqpSubscriberOptions)

func WithWorkers(workers int) AMQPSubscriberOption {
	return func(o *amqpSubscriberOptions) {
		o.workers = workers
	}
}

func WithPrefetch(prefetch int) AMQPSubscriberOption {
	return func(o *amqpSubscriberOptions) {
		o.prefetch = prefetch
	}
}

// NewAMQPEventSubscriber creates a subscriber bound to one queue.
func NewAMQPEventSubscriber(
	client *AMQPClient,
	queue string,
	handler events.EventHandler,
	logger *logging.Logger,
	opts ...AMQPSubscriberOption,
) *AMQPEventSubscriber {
	options := &amqpSubscriberOptions{
		workers:          5,
		prefetch:         10,
		reconnectBackoff: 2 * time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &AMQPEventSubscriber{
		client:  client,
		queue:   queue,
		handler: handler,
		logger:  logger,
		options: options,
	}
}

// Start begins consuming. It returns immediately; consumption continues in
// the background until Stop or context cancellation.
func (s *AMQPEventSubscriber) Start(ctx context.Context) error {
	if s.running.Load() {
		return nil
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running.Store(true)

	s.finished.Add(1)
	go s.run(ctx)

	return nil
}

// Stop cancels consumption and waits for in-flight handlers to return.
func (s *AMQPEventSubscriber) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	s.mux.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mux.Unlock()

	done := make(chan struct{})
	go func() {
		s.finished.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.running.Store(false)
	return nil
}

// run re-establishes the consume channel whenever the broker connection is
// lost. The client reconnect watcher restores the connection underneath.
func (s *AMQPEventSubscriber) run(ctx context.Context) {
	defer s.finished.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ch, err := s.client.NewConsumerChannel(s.options.prefetch)
		if err != nil {
			s.logger.Error(ctx, "consumer_channel_failed", "could not open consumer channel for "+s.queue, err)
			s.sleep(ctx, s.options.reconnectBackoff)
			continue
		}

		deliveries, err := ch.Consume(s.queue, "", false, false, false, false, nil)
		if err != nil {
			s.logger.Error(ctx, "consume_failed", "could not start consuming "+s.queue, err)
			ch.Close()
			s.sleep(ctx, s.options.reconnectBackoff)
			continue
		}

		var workers sync.WaitGroup
		for i := 0; i < s.options.workers; i++ {
			workers.Add(1)
			go func() {
				defer workers.Done()
				for delivery := range deliveries {
					s.handleDelivery(ctx, delivery)
				}
			}()
		}

		// deliveries closes on channel/connection loss; workers drain then exit
		workers.Wait()
		ch.Close()
	}
}

func (s *AMQPEventSubscriber) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	ctx, span := telemetry.StartSpan(ctx, "consume "+s.queue)
	defer span.End()

	event, err := decodeAMQPMessage(delivery.Body)
	if err != nil {
		// unparseable body, reject straight to the dead letter queue
		s.logger.Error(ctx, "message_rejected", "malformed message on "+s.queue, err)
		s.settle(ctx, delivery, rejectMessage)
		return
	}

	if event.CorrelationID != "" {
		ctx = logging.WithCorrelationID(ctx, event.CorrelationID.String())
	}

	handleErr := s.handler.Handle(ctx, event)
	decision := decideAck(handleErr)

	if handleErr != nil {
		switch decision {
		case ackMessage:
			s.logger.Warn(ctx, "message_conflict", "conflicting message acknowledged on "+s.queue,
				map[string]any{"topic": event.Topic.String(), "error": handleErr.Error()})
		case rejectMessage:
			s.logger.Error(ctx, "message_rejected", "unprocessable message on "+s.queue, handleErr)
		case requeueMessage:
			s.logger.Error(ctx, "message_requeued", "transient failure on "+s.queue, handleErr)
		}
	}

	s.settle(ctx, delivery, decision)
}

func (s *AMQPEventSubscriber) settle(ctx context.Context, delivery amqp.Delivery, decision ackDecision) {
	var err error
	switch decision {
	case ackMessage:
		err = delivery.Ack(false)
	case rejectMessage:
		err = delivery.Nack(false, false)
	case requeueMessage:
		err = delivery.Nack(false, true)
	}
	if err != nil {
		s.logger.Error(ctx, "settle_failed", "could not settle delivery on "+s.queue, err)
	}

	telemetry.RecordCounter(ctx, "saga_events_consumed_total", "Saga events consumed", 1,
		attribute.String("queue", s.queue),
		attribute.String("outcome", decision.String()),
	)
}

func (s *AMQPEventSubscriber) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
