package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
)

// Producer enqueues order intents for asynchronous fulfillment. Submit
// returns as soon as the broker accepts the message; the caller learns
// "accepted", never "completed".
type Producer struct {
	client queuePublisher
	queue  string
	logg   *logger.Logger
}

// NewProducer builds an intake producer for the given queue.
func NewProducer(client queuePublisher, queue string, logg *logger.Logger) (*Producer, error) {
	if client == nil {
		return nil, fmt.Errorf("queue client required")
	}
	if queue == "" {
		return nil, fmt.Errorf("queue name required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Producer{client: client, queue: queue, logg: logg}, nil
}

// Submit constructs an OrderIntent with a server-assigned timestamp and
// publishes it. A declined publish surfaces as a retryable dependency error.
func (p *Producer) Submit(ctx context.Context, userID uuid.UUID, items []OrderIntentItem, totalAmount float64) error {
	intent := OrderIntent{
		UserID:      userID.String(),
		Items:       items,
		TotalAmount: totalAmount,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	if !p.client.Publish(ctx, p.queue, intent, nil) {
		return pkgerrors.New(pkgerrors.CodeDependency, "order queue unavailable")
	}

	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"queue":   p.queue,
		"user_id": intent.UserID,
		"items":   len(items),
	}), "order intent accepted")
	return nil
}
