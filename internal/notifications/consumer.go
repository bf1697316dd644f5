package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/rabbitmq"
)

// DeliveryHandler consumes one notification queue. Actual transport (SMTP,
// SMS gateway) is out of scope; delivery is a structured log line plus an
// audit row. Malformed payloads and audit write failures are raised so the
// retry wrapper can requeue or dead-letter them.
type DeliveryHandler struct {
	channel enums.NotificationChannel
	repo    Repository
	logg    *logger.Logger
}

func NewDeliveryHandler(channel enums.NotificationChannel, repo Repository, logg *logger.Logger) (*DeliveryHandler, error) {
	if !channel.IsValid() {
		return nil, fmt.Errorf("unknown channel %q", channel)
	}
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &DeliveryHandler{channel: channel, repo: repo, logg: logg}, nil
}

// Handler adapts the typed handle method for the consumer wrapper.
func (h *DeliveryHandler) Handler() rabbitmq.Handler {
	return rabbitmq.JSONHandler[Message]{HandleFunc: h.handle}
}

func (h *DeliveryHandler) handle(ctx context.Context, msg Message, d amqp.Delivery) error {
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", msg.UserID, err)
	}
	if msg.Recipient == "" || msg.Body == "" {
		return fmt.Errorf("incomplete notification for user %s", msg.UserID)
	}

	ctx = h.logg.WithFields(ctx, map[string]any{
		"channel":   string(h.channel),
		"recipient": msg.Recipient,
		"user_id":   msg.UserID,
	})
	h.logg.Info(ctx, "delivering notification")

	record := &models.Notification{
		UserID:    userID,
		Channel:   h.channel,
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Status:    enums.NotificationStatusSent,
	}
	if _, err := h.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("recording notification: %w", err)
	}

	if err := d.Ack(false); err != nil {
		h.logg.Error(ctx, "acking notification delivery", err)
	}
	return nil
}
