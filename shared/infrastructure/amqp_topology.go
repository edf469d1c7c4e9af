package infrastructure

import (
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchanges. All topic-typed and durable.
const (
	OrderExchange      = "order"
	PaymentExchange    = "payment"
	ShippingExchange   = "shipping"
	DeadLetterExchange = "dlx"
)

// Queues. All durable, all dead-lettering to dlx/order.dead except the
// dead letter queue itself.
const (
	OrderCreatedQueue    = "order.created.queue"
	OrderStatusQueue     = "order.status.queue"
	PaymentRequestQueue  = "payment.request.queue"
	PaymentResponseQueue = "payment.response.queue"
	PaymentStatusQueue   = "payment.status.queue"
	ShippingStatusQueue  = "shipping.status.queue"
	OrderDeadLetterQueue = "order.dlq"
)

const DeadLetterRoutingKey = "order.dead"

// Queue TTLs bound the redelivery window of a failing message before it
// dead letters. Values in milliseconds per the AMQP x-message-ttl argument.
const (
	paymentRequestTTLMillis = 5 * 60 * 1000
	paymentStatusTTLMillis  = 10 * 60 * 1000
)

type queueSpec struct {
	name     string
	exchange string
	binding  string
	args     amqp.Table
}

func deadLetterArgs(ttlMillis int32) amqp.Table {
	args := amqp.Table{
		"x-dead-letter-exchange":    DeadLetterExchange,
		"x-dead-letter-routing-key": DeadLetterRoutingKey,
	}
	if ttlMillis > 0 {
		args["x-message-ttl"] = ttlMillis
	}
	return args
}

var topology = []queueSpec{
	{OrderCreatedQueue, OrderExchange, "order.created", deadLetterArgs(0)},
	{OrderStatusQueue, OrderExchange, "order.status", deadLetterArgs(0)},
	{PaymentRequestQueue, PaymentExchange, "payment.request", deadLetterArgs(paymentRequestTTLMillis)},
	{PaymentResponseQueue, PaymentExchange, "payment.response", deadLetterArgs(0)},
	{PaymentStatusQueue, PaymentExchange, "payment.status.*", deadLetterArgs(paymentStatusTTLMillis)},
	{ShippingStatusQueue, ShippingExchange, "shipping.status.*", deadLetterArgs(0)},
	{OrderDeadLetterQueue, DeadLetterExchange, DeadLetterRoutingKey, nil},
}

// DeclareTopology declares the saga exchanges, queues and bindings.
// Declarations are idempotent so every service ensures the full topology
// on connect and after every reconnect.
func DeclareTopology(ch *amqp.Channel) error {
	for _, exchange := range []string{OrderExchange, PaymentExchange, ShippingExchange, DeadLetterExchange} {
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}

	for _, q := range topology {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return err
		}
		if err := ch.QueueBind(q.name, q.binding, q.exchange, false, nil); err != nil {
			return err
		}
	}

	return nil
}

// ExchangeForTopic maps a routing topic to the exchange it is published
// on. The first topic segment names the exchange, except the dead letter
// routing key which belongs to dlx.
func ExchangeForTopic(topic string) string {
	if topic == DeadLetterRoutingKey {
		return DeadLetterExchange
	}
	if i := strings.IndexByte(topic, '.'); i > 0 {
		return topic[:i]
	}
	return topic
}
