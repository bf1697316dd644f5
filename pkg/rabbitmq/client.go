package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"

	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
)

// channel is the slice of *amqp.Channel the client relies on, narrowed to an
// interface so consumers and producers can run against a fake in tests.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// Client owns one connection and one channel to the broker. Services treat a
// missing broker as degraded rather than fatal, so Publish reports success as
// a bool instead of an error the caller would have to classify.
type Client struct {
	conn *amqp.Connection
	ch   channel
	logg *logger.Logger
}

// Connect dials the broker and opens the client channel.
func Connect(cfg config.RabbitMQConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat: time.Duration(cfg.Heartbeat) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	client := &Client{conn: conn, ch: ch, logg: logg}
	go client.watchClose()
	return client, nil
}

func (c *Client) watchClose() {
	closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	if err := <-closed; err != nil {
		c.logg.Error(context.Background(), "rabbitmq connection closed", err)
	}
}

// DeclareQueue declares a durable queue, creating it if absent.
func (c *Client) DeclareQueue(name string) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("rabbitmq channel not available")
	}
	if _, err := c.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", name, err)
	}
	return nil
}

// Publish sends a persistent message to the named queue via the default
// exchange. []byte payloads go out as-is so republished deliveries keep their
// original bytes; anything else is JSON encoded. Returns false when the
// channel is absent or the publish fails, with the failure logged.
func (c *Client) Publish(ctx context.Context, queue string, message any, headers amqp.Table) bool {
	if c == nil || c.ch == nil {
		if c != nil && c.logg != nil {
			c.logg.Warn(c.logg.WithQueue(ctx, queue), "publish skipped, rabbitmq channel not available")
		}
		return false
	}

	var body []byte
	switch m := message.(type) {
	case []byte:
		body = m
	case json.RawMessage:
		body = m
	default:
		encoded, err := json.Marshal(message)
		if err != nil {
			c.logg.Error(c.logg.WithQueue(ctx, queue), "failed to encode message", err)
			return false
		}
		body = encoded
	}

	err := c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		c.logg.Error(c.logg.WithQueue(ctx, queue), "failed to publish message", err)
		return false
	}
	return true
}

// Close releases the channel and connection.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.ch != nil {
		err = multierr.Append(err, c.ch.Close())
	}
	if c.conn != nil {
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}
