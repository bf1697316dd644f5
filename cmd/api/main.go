package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopmesh/shopmesh-backend/api/controllers"
	"github.com/shopmesh/shopmesh-backend/api/routes"
	cartsvc "github.com/shopmesh/shopmesh-backend/internal/cart"
	notifysvc "github.com/shopmesh/shopmesh-backend/internal/notifications"
	ordersvc "github.com/shopmesh/shopmesh-backend/internal/orders"
	paymentsvc "github.com/shopmesh/shopmesh-backend/internal/payments"
	productsvc "github.com/shopmesh/shopmesh-backend/internal/products"
	usersvc "github.com/shopmesh/shopmesh-backend/internal/users"
	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/db"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/migrate"
	"github.com/shopmesh/shopmesh-backend/pkg/rabbitmq"
	"github.com/shopmesh/shopmesh-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// The API keeps serving when the broker is down. Publishes return false
	// and order submission responds 503 until the broker comes back.
	queueClient, err := rabbitmq.Connect(cfg.RabbitMQ, logg)
	if err != nil {
		logg.Error(context.Background(), "rabbitmq unavailable, continuing degraded", err)
		queueClient = &rabbitmq.Client{}
	} else {
		defer func() {
			if err := queueClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing rabbitmq", err)
			}
		}()
		for _, queue := range []string{cfg.Orders.Queue, cfg.Notifications.EmailQueue, cfg.Notifications.SMSQueue} {
			if err := queueClient.DeclareQueue(queue); err != nil {
				logg.Error(context.Background(), "failed to declare queue "+queue, err)
				os.Exit(1)
			}
		}
	}

	svcs, err := buildServices(cfg, logg, dbClient, redisClient, queueClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, readiness, svcs),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	queueClient *rabbitmq.Client,
) (routes.Services, error) {
	users, err := usersvc.NewService(usersvc.NewRepository(dbClient.DB()), cfg.JWT, cfg.Password, logg)
	if err != nil {
		return routes.Services{}, err
	}

	products, err := productsvc.NewService(productsvc.NewRepository(dbClient.DB()), redisClient, cfg.Products.CacheTTL, logg)
	if err != nil {
		return routes.Services{}, err
	}

	cart, err := cartsvc.NewService(cartsvc.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return routes.Services{}, err
	}

	producer, err := ordersvc.NewProducer(queueClient, cfg.Orders.Queue, logg)
	if err != nil {
		return routes.Services{}, err
	}
	orders, err := ordersvc.NewService(ordersvc.NewRepository(dbClient.DB()), producer, logg)
	if err != nil {
		return routes.Services{}, err
	}

	payments, err := paymentsvc.NewService(paymentsvc.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return routes.Services{}, err
	}

	notifications, err := notifysvc.NewService(queueClient, notifysvc.NewRepository(dbClient.DB()), cfg.Notifications, logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Users:         users,
		Products:      products,
		Cart:          cart,
		Orders:        orders,
		Payments:      payments,
		Notifications: notifications,
	}, nil
}
