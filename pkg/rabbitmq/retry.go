package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/metrics"
)

const (
	defaultMaxRetries  = 3
	defaultCallTimeout = 30 * time.Second
	defaultPrefetch    = 1

	// DLQSuffix names the dead letter queue derived from a primary queue.
	DLQSuffix = ".dlq"
)

// RetryOptions tunes a RetryConsumer. Zero values fall back to defaults.
type RetryOptions struct {
	MaxRetries  int
	DLQName     string
	CallTimeout time.Duration
	Prefetch    int
	Metrics     *metrics.ConsumerMetrics
}

// RetryConsumer wraps a Handler with header-based retries. A failed delivery
// is republished to its own queue with an incremented attempt counter until
// the attempt budget runs out, then routed to the dead letter queue. The
// original delivery is acked after every republish, so the broker never
// redelivers a message this consumer has already dealt with.
type RetryConsumer struct {
	client      *Client
	queue       string
	dlq         string
	handler     Handler
	maxRetries  int
	callTimeout time.Duration
	prefetch    int
	metrics     *metrics.ConsumerMetrics
	logg        *logger.Logger
}

// NewRetryConsumer builds a consumer for the named queue.
func NewRetryConsumer(client *Client, queue string, handler Handler, opts RetryOptions, logg *logger.Logger) (*RetryConsumer, error) {
	if client == nil {
		return nil, fmt.Errorf("rabbitmq client required")
	}
	if queue == "" {
		return nil, fmt.Errorf("queue name required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.DLQName == "" {
		opts.DLQName = queue + DLQSuffix
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = defaultPrefetch
	}
	return &RetryConsumer{
		client:      client,
		queue:       queue,
		dlq:         opts.DLQName,
		handler:     handler,
		maxRetries:  opts.MaxRetries,
		callTimeout: opts.CallTimeout,
		prefetch:    opts.Prefetch,
		metrics:     opts.Metrics,
		logg:        logg,
	}, nil
}

// Run declares the queue and its DLQ, then consumes until the context is
// canceled or the delivery stream closes.
func (c *RetryConsumer) Run(ctx context.Context) error {
	if err := c.client.DeclareQueue(c.queue); err != nil {
		return err
	}
	if err := c.client.DeclareQueue(c.dlq); err != nil {
		return err
	}
	if err := c.client.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("setting qos: %w", err)
	}

	msgs, err := c.client.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", c.queue, err)
	}

	c.logg.Info(c.logg.WithQueue(ctx, c.queue), "consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery stream for %s closed", c.queue)
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *RetryConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	attempt := RetryCountFrom(d.Headers)
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"queue":       c.queue,
		"retry_count": attempt,
	})

	start := time.Now()
	hctx, cancel := context.WithTimeout(logCtx, c.callTimeout)
	err := c.handler.Handle(hctx, d)
	cancel()
	c.metrics.ObserveDuration(c.queue, time.Since(start))

	if err == nil {
		// The handler settled the delivery itself.
		c.metrics.IncProcessed(c.queue)
		return
	}

	if attempt < c.maxRetries-1 {
		headers := amqp.Table{
			HeaderRetryCount:    int32(attempt + 1),
			HeaderOriginalQueue: c.queue,
		}
		if !c.client.Publish(logCtx, c.queue, d.Body, headers) {
			// Leave the delivery unacked so the broker redelivers it once the
			// channel recovers.
			c.logg.Error(logCtx, "retry republish failed, leaving delivery unacked", err)
			return
		}
		c.metrics.IncRetried(c.queue)
		c.logg.Warn(logCtx, fmt.Sprintf("handler failed, scheduled attempt %d of %d: %v", attempt+2, c.maxRetries, err))
	} else {
		headers := amqp.Table{
			HeaderRetryCount:    int32(attempt),
			HeaderOriginalQueue: c.queue,
			HeaderFailedReason:  err.Error(),
			HeaderFailedAt:      time.Now().UTC().Format(time.RFC3339),
		}
		if !c.client.Publish(logCtx, c.dlq, d.Body, headers) {
			c.logg.Error(logCtx, "dead letter republish failed, leaving delivery unacked", err)
			return
		}
		c.metrics.IncDeadLettered(c.queue)
		c.logg.Error(c.logg.WithField(logCtx, "dlq", c.dlq), "retries exhausted, message dead lettered", err)
	}

	if ackErr := d.Ack(false); ackErr != nil {
		c.logg.Error(logCtx, "failed to ack delivery after republish", ackErr)
	}
}
