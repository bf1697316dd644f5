package notifications

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/google/uuid"

	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
)

// SendInput is the HTTP request body for requesting a notification.
type SendInput struct {
	Channel   string `json:"channel" validate:"required,oneof=email sms"`
	Recipient string `json:"recipient" validate:"required"`
	Subject   string `json:"subject"`
	Body      string `json:"body" validate:"required"`
}

type queuePublisher interface {
	Publish(ctx context.Context, queue string, message any, headers amqp.Table) bool
}

// Service accepts notification requests over HTTP and enqueues them for the
// workers. Delivery is fire-and-forget; acceptance only means the message
// reached the broker.
type Service struct {
	client queuePublisher
	repo   Repository
	cfg    config.NotificationsConfig
	logg   *logger.Logger
}

func NewService(client queuePublisher, repo Repository, cfg config.NotificationsConfig, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("queue client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if cfg.EmailQueue == "" || cfg.SMSQueue == "" {
		return nil, fmt.Errorf("notification queues required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{client: client, repo: repo, cfg: cfg, logg: logg}, nil
}

// Send validates the request and publishes it to the channel's queue.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, input SendInput) error {
	channel, err := enums.ParseNotificationChannel(input.Channel)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown channel %q", input.Channel))
	}
	if input.Recipient == "" || input.Body == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient and body are required")
	}

	queue := s.cfg.EmailQueue
	if channel == enums.NotificationChannelSMS {
		queue = s.cfg.SMSQueue
	}

	msg := Message{
		UserID:    userID.String(),
		Channel:   string(channel),
		Recipient: input.Recipient,
		Subject:   input.Subject,
		Body:      input.Body,
	}
	if !s.client.Publish(ctx, queue, msg, nil) {
		return pkgerrors.New(pkgerrors.CodeDependency, "notification queue unavailable")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"queue": queue, "channel": string(channel)})
	s.logg.Info(ctx, "notification enqueued")
	return nil
}

// History returns the most recent delivery records for a user.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	records, err := s.repo.FindByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing notifications")
	}
	return records, nil
}
