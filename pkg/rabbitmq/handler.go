package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes a single delivery. A nil return means the handler settled
// the message itself (ack or reject); an error hands the message back to the
// retry machinery.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, d amqp.Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, d amqp.Delivery) error {
	return f(ctx, d)
}

// JSONHandler decodes d.Body into T before calling the wrapped function. The
// raw delivery is still passed through so the function can settle the message.
type JSONHandler[T any] struct {
	HandleFunc func(ctx context.Context, msg T, d amqp.Delivery) error
}

func (h JSONHandler[T]) Handle(ctx context.Context, d amqp.Delivery) error {
	var v T
	if err := json.Unmarshal(d.Body, &v); err != nil {
		return err
	}
	return h.HandleFunc(ctx, v, d)
}
