package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
)

type stubPublisher struct {
	queue    string
	message  any
	declined bool
}

func (s *stubPublisher) Publish(_ context.Context, queue string, message any, _ amqp.Table) bool {
	s.queue = queue
	s.message = message
	return !s.declined
}

func TestSubmitPublishesIntentWithServerTimestamp(t *testing.T) {
	pub := &stubPublisher{}
	producer, err := NewProducer(pub, "order.process", testLogger())
	require.NoError(t, err)

	userID := uuid.New()
	before := time.Now().UTC().Add(-time.Second)
	err = producer.Submit(context.Background(), userID, []OrderIntentItem{{ProductID: uuid.NewString(), Quantity: 2}}, 25)
	require.NoError(t, err)

	require.Equal(t, "order.process", pub.queue)
	intent, ok := pub.message.(OrderIntent)
	require.True(t, ok)
	require.Equal(t, userID.String(), intent.UserID)
	require.InDelta(t, 25.0, intent.TotalAmount, 1e-9)

	stamped, err := time.Parse(time.RFC3339, intent.Timestamp)
	require.NoError(t, err)
	require.False(t, stamped.Before(before), "timestamp must be server-assigned")
}

func TestSubmitSurfacesQueueUnavailable(t *testing.T) {
	pub := &stubPublisher{declined: true}
	producer, err := NewProducer(pub, "order.process", testLogger())
	require.NoError(t, err)

	err = producer.Submit(context.Background(), uuid.New(), []OrderIntentItem{{ProductID: uuid.NewString(), Quantity: 1}}, 5)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestNewProducerValidatesInputs(t *testing.T) {
	if _, err := NewProducer(nil, "q", testLogger()); err == nil {
		t.Fatal("expected nil client to fail")
	}
	if _, err := NewProducer(&stubPublisher{}, "", testLogger()); err == nil {
		t.Fatal("expected empty queue to fail")
	}
	if _, err := NewProducer(&stubPublisher{}, "q", nil); err == nil {
		t.Fatal("expected nil logger to fail")
	}
}
