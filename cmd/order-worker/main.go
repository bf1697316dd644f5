package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ordersvc "github.com/shopmesh/shopmesh-backend/internal/orders"
	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/db"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/metrics"
	"github.com/shopmesh/shopmesh-backend/pkg/migrate"
	"github.com/shopmesh/shopmesh-backend/pkg/rabbitmq"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "order-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "order-worker",
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

	// The worker cannot do anything without the broker, unlike the API.
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service, err := NewService(ServiceParams{
		Config:  cfg,
		Logger:  logg,
		Queue:   queueClient,
		Orders:  ordersvc.NewRepository(dbClient.DB()),
		Gateway: ordersvc.NewProductClient(cfg.Products),
		Metrics: metrics.NewConsumerMetrics(registry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	go serveOps(ctx, logg, registry)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "order worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "order worker shutting down gracefully")
}

// serveOps exposes /metrics and /healthz on a side listener.
func serveOps(ctx context.Context, logg *logger.Logger, registry *prometheus.Registry) {
	addr := os.Getenv("SHOPMESH_WORKER_OPS_ADDR")
	if addr == "" {
		addr = ":9091"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "ops listener stopped", err)
	}
}
