package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

func TestPublishEncodesStructsAsJSON(t *testing.T) {
	ch := &fakeChannel{}
	client := testClient(ch)

	ok := client.Publish(context.Background(), "notification.email", map[string]string{"userId": "u1"}, nil)

	require.True(t, ok)
	require.Len(t, ch.publishes, 1)
	require.JSONEq(t, `{"userId":"u1"}`, string(ch.publishes[0].body))
}

func TestPublishPassesRawBytesThrough(t *testing.T) {
	ch := &fakeChannel{}
	client := testClient(ch)
	body := []byte(`{"already":"encoded"}`)

	ok := client.Publish(context.Background(), "order.process", body, amqp.Table{HeaderRetryCount: int32(1)})

	require.True(t, ok)
	require.Len(t, ch.publishes, 1)
	require.Equal(t, body, ch.publishes[0].body)
	require.EqualValues(t, 1, ch.publishes[0].headers[HeaderRetryCount])
}

func TestPublishReturnsFalseWithoutChannel(t *testing.T) {
	client := &Client{logg: testLogger()}
	require.False(t, client.Publish(context.Background(), "order.process", []byte(`{}`), nil))

	var nilClient *Client
	require.False(t, nilClient.Publish(context.Background(), "order.process", []byte(`{}`), nil))
}

func TestPublishReturnsFalseOnBrokerError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("connection reset")}
	client := testClient(ch)

	require.False(t, client.Publish(context.Background(), "order.process", []byte(`{}`), nil))
}

func TestDeclareQueueRequiresChannel(t *testing.T) {
	client := &Client{logg: testLogger()}
	require.Error(t, client.DeclareQueue("order.process"))

	ch := &fakeChannel{}
	require.NoError(t, testClient(ch).DeclareQueue("order.process"))
	require.Equal(t, []string{"order.process"}, ch.declared)
}
