package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	notifysvc "github.com/shopmesh/shopmesh-backend/internal/notifications"
	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/db"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/metrics"
	"github.com/shopmesh/shopmesh-backend/pkg/migrate"
	"github.com/shopmesh/shopmesh-backend/pkg/rabbitmq"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	queueClient, err := rabbitmq.Connect(cfg.RabbitMQ, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to connect to rabbitmq", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing rabbitmq", err)
		}
	}()

	service, err := NewService(ServiceParams{
		Config:  cfg,
		Logger:  logg,
		Queue:   queueClient,
		Repo:    notifysvc.NewRepository(dbClient.DB()),
		Metrics: metrics.NewConsumerMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting notification worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notification worker shutting down gracefully")
}
