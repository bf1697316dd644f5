package main

import (
	"context"
	"errors"
	"fmt"

	ordersvc "github.com/shopmesh/shopmesh-backend/internal/orders"
	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/metrics"
	"github.com/shopmesh/shopmesh-backend/pkg/rabbitmq"
)

type ServiceParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	Queue   *rabbitmq.Client
	Orders  ordersvc.Repository
	Gateway ordersvc.ProductGateway
	Metrics *metrics.ConsumerMetrics
}

// Service runs the order fulfillment consumer.
type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	consumer *rabbitmq.RetryConsumer
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
	if params.Orders == nil {
		return nil, errors.New("orders repository is required")
	}
	if params.Gateway == nil {
		return nil, errors.New("product gateway is required")
	}

	handler, err := ordersvc.NewFulfillmentHandler(params.Gateway, params.Orders, params.Logger)
	if err != nil {
		return nil, fmt.Errorf("building fulfillment handler: %w", err)
	}

	consumer, err := rabbitmq.NewRetryConsumer(
		params.Queue,
		params.Config.Orders.Queue,
		handler,
		rabbitmq.RetryOptions{
			MaxRetries:  params.Config.Orders.MaxRetries,
			CallTimeout: params.Config.Orders.CallTimeout,
			Prefetch:    params.Config.RabbitMQ.Prefetch,
			Metrics:     params.Metrics,
		},
		params.Logger,
	)
	if err != nil {
		return nil, fmt.Errorf("building retry consumer: %w", err)
	}

	return &Service{cfg: params.Config, logg: params.Logger, consumer: consumer}, nil
}

// Run consumes until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithQueue(ctx, s.cfg.Orders.Queue)
	s.logg.Info(ctx, "order fulfillment consumer starting")
	return s.consumer.Run(ctx)
}
