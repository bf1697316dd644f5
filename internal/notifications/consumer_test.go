package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/shopmesh/shopmesh-backend/pkg/enums"
)

type countingAck struct {
	acks  int
	nacks int
}

func (a *countingAck) Ack(_ uint64, _ bool) error { a.acks++; return nil }

func (a *countingAck) Nack(_ uint64, _ bool, _ bool) error { a.nacks++; return nil }

func (a *countingAck) Reject(_ uint64, _ bool) error { a.nacks++; return nil }

func delivery(body []byte, ack *countingAck) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestDeliveryHandlerRecordsAndAcks(t *testing.T) {
	repo := &stubNotificationRepo{}
	handler, err := NewDeliveryHandler(enums.NotificationChannelEmail, repo, testLogger())
	require.NoError(t, err)

	userID := uuid.New()
	ack := &countingAck{}
	body := wireMessage(t, Message{
		UserID:    userID.String(),
		Channel:   "email",
		Recipient: "a@example.com",
		Subject:   "Order confirmed",
		Body:      "Thanks",
	})

	err = handler.Handler().Handle(context.Background(), delivery(body, ack))
	require.NoError(t, err)
	require.Equal(t, 1, ack.acks)
	require.Equal(t, 0, ack.nacks)

	require.Len(t, repo.created, 1)
	record := repo.created[0]
	require.Equal(t, userID, record.UserID)
	require.Equal(t, enums.NotificationChannelEmail, record.Channel)
	require.Equal(t, enums.NotificationStatusSent, record.Status)
}

func TestDeliveryHandlerRaisesOnMalformedBody(t *testing.T) {
	handler, err := NewDeliveryHandler(enums.NotificationChannelSMS, &stubNotificationRepo{}, testLogger())
	require.NoError(t, err)

	ack := &countingAck{}
	err = handler.Handler().Handle(context.Background(), delivery([]byte("{not json"), ack))
	require.Error(t, err)
	require.Equal(t, 0, ack.acks, "message must stay with the retry wrapper")
}

func TestDeliveryHandlerRaisesOnBadUserID(t *testing.T) {
	handler, err := NewDeliveryHandler(enums.NotificationChannelEmail, &stubNotificationRepo{}, testLogger())
	require.NoError(t, err)

	body := wireMessage(t, Message{UserID: "u-1", Recipient: "a@example.com", Body: "x"})
	err = handler.Handler().Handle(context.Background(), delivery(body, &countingAck{}))
	require.Error(t, err)
}

func TestDeliveryHandlerRaisesOnAuditFailure(t *testing.T) {
	repo := &stubNotificationRepo{createErr: errors.New("db down")}
	handler, err := NewDeliveryHandler(enums.NotificationChannelEmail, repo, testLogger())
	require.NoError(t, err)

	ack := &countingAck{}
	body := wireMessage(t, Message{UserID: uuid.NewString(), Recipient: "a@example.com", Body: "x"})
	err = handler.Handler().Handle(context.Background(), delivery(body, ack))
	require.Error(t, err)
	require.Equal(t, 0, ack.acks)
}
