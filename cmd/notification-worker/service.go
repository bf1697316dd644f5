package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	notifysvc "github.com/shopmesh/shopmesh-backend/internal/notifications"
	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/enums"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/metrics"
	"github.com/shopmesh/shopmesh-backend/pkg/rabbitmq"
)

type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Queue   *rabbitmq.Client
	Repo    notifysvc.Repository
	Metrics *metrics.ConsumerMetrics
}

// Service runs one retry consumer per notification channel.
type Service struct {
	logg      *logger.Logger
	consumers []*rabbitmq.RetryConsumer
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Queue == nil {
		return nil, errors.New("rabbitmq client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("notifications repository is required")
	}

	channels := []struct {
		channel enums.NotificationChannel
		queue   string
	}{
		{enums.NotificationChannelEmail, params.Config.Notifications.EmailQueue},
		{enums.NotificationChannelSMS, params.Config.Notifications.SMSQueue},
	}

	svc := &Service{logg: params.Logger}
	for _, c := range channels {
		handler, err := notifysvc.NewDeliveryHandler(c.channel, params.Repo, params.Logger)
		if err != nil {
			return nil, fmt.Errorf("building %s handler: %w", c.channel, err)
		}
		consumer, err := rabbitmq.NewRetryConsumer(
			params.Queue,
			c.queue,
			handler.Handler(),
			rabbitmq.RetryOptions{
				MaxRetries:  params.Config.Notifications.MaxRetries,
				CallTimeout: params.Config.Notifications.CallTimeout,
				Prefetch:    params.Config.RabbitMQ.Prefetch,
				Metrics:     params.Metrics,
			},
			params.Logger,
		)
		if err != nil {
			return nil, fmt.Errorf("building %s consumer: %w", c.channel, err)
		}
		svc.consumers = append(svc.consumers, consumer)
	}

	return svc, nil
}

// Run consumes both queues until the context is cancelled. A consumer failing
// stops its sibling as well; the supervisor restarts the whole process.
func (s *Service) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, consumer := range s.consumers {
		group.Go(func() error {
			return consumer.Run(ctx)
		})
	}
	return group.Wait()
}
