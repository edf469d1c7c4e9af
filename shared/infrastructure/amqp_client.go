package infrastructure

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/globalbooks/fulfillment-system/shared/logging"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPClient is a resilient broker connector with auto-reconnect and
// topology setup. Every connect re-declares the full saga topology.
type AMQPClient struct {
	url    string
	logger *logging.Logger
	logCtx context.Context

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	closed    chan struct{}
	reconnect chan struct{}
}

// ConnectAMQP establishes the connection and starts a background watcher
// that reconnects on failures with exponential backoff.
func ConnectAMQP(ctx context.Context, url string, logger *logging.Logger) (*AMQPClient, error) {
	client := &AMQPClient{
		url:       url,
		logger:    logger,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	if err := client.connectOnce(ctx); err != nil {
		return nil, err
	}

	go client.watch()

	return client, nil
}

// NewConsumerChannel returns a fresh channel with prefetch applied.
func (c *AMQPClient) NewConsumerChannel(prefetch int) (*amqp.Channel, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, errors.New("amqp: connection is not ready")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			return nil, err
		}
	}

	return ch, nil
}

// PublishMessage publishes a persistent JSON message.
func (c *AMQPClient) PublishMessage(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error {
	c.mu.RLock()
	ch := c.pubChan
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("amqp: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("amqp: publish channel is not open")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return ch.PublishWithContext(ctx,
		exchange, routingKey, false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Headers:      headers,
			Timestamp:    time.Now(),
			Body:         body,
		})
}

// Ping verifies broker reachability with a raw TCP dial.
func (c *AMQPClient) Ping(timeout time.Duration) error {
	c.mu.RLock()
	conn := c.conn
	url := c.url
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("amqp: no connection")
	}

	u, err := amqp.ParseURI(url)
	if err != nil {
		return errors.Wrap(err, "amqp: bad url")
	}
	addr := net.JoinHostPort(u.Host, fmt.Sprintf("%d", u.Port))

	d := net.Dialer{Timeout: timeout}
	conn2, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}

	_ = conn2.Close()
	return nil
}

// Close stops the watcher and closes AMQP resources.
func (c *AMQPClient) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	c.mu.Lock()
	if c.pubChan != nil {
		_ = c.pubChan.Close()
		c.pubChan = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *AMQPClient) connectOnce(ctx context.Context) error {
	start := time.Now().UTC()

	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := DeclareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	if c.pubChan != nil {
		_ = c.pubChan.Close()
	}
	c.pubChan = ch
	c.mu.Unlock()

	go func() {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-c.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}

		select {
		case c.reconnect <- struct{}{}:
		default:
		}
	}()

	c.logger.Info(ctx, "amqp_connected",
		"connected to broker and declared saga topology",
		map[string]any{"duration_ms": time.Since(start).Milliseconds()})

	return nil
}

func (c *AMQPClient) watch() {
	backoff := time.Second
	for {
		select {
		case <-c.closed:
			return
		case <-c.reconnect:
			for {
				select {
				case <-c.closed:
					return
				default:
				}

				ctx, cancel := context.WithTimeout(c.logCtx, 30*time.Second)
				err := c.connectOnce(ctx)
				cancel()

				if err == nil {
					backoff = time.Second
					c.logger.Info(c.logCtx, "amqp_reconnected", "reconnected and re-ensured topology", nil)
					break
				}

				c.logger.Error(c.logCtx, "amqp_reconnect_failed", "broker reconnect failed", err)

				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
				}
			}
		}
	}
}
