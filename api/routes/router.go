package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopmesh/shopmesh-backend/api/controllers"
	"github.com/shopmesh/shopmesh-backend/api/middleware"
	cartsvc "github.com/shopmesh/shopmesh-backend/internal/cart"
	notifysvc "github.com/shopmesh/shopmesh-backend/internal/notifications"
	ordersvc "github.com/shopmesh/shopmesh-backend/internal/orders"
	paymentsvc "github.com/shopmesh/shopmesh-backend/internal/payments"
	productsvc "github.com/shopmesh/shopmesh-backend/internal/products"
	usersvc "github.com/shopmesh/shopmesh-backend/internal/users"
	"github.com/shopmesh/shopmesh-backend/pkg/config"
	"github.com/shopmesh/shopmesh-backend/pkg/logger"
	"github.com/shopmesh/shopmesh-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Users         *usersvc.Service
	Products      *productsvc.Service
	Cart          *cartsvc.Service
	Orders        *ordersvc.Service
	Payments      *paymentsvc.Service
	Notifications *notifysvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	readiness map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness))
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).
			Post("/register", controllers.RegisterUser(svcs.Users, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
			Post("/login", controllers.LoginUser(svcs.Users, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/me", controllers.CurrentUser(svcs.Users, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(svcs.Products, logg))
		r.Get("/{productID}", controllers.GetProduct(svcs.Products, logg))

		// Called by the fulfillment worker, not end users.
		r.Put("/{productID}/deduct", controllers.DeductProductStock(svcs.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireAdmin(logg))
			r.Post("/", controllers.CreateProduct(svcs.Products, logg))
			r.Patch("/{productID}", controllers.UpdateProduct(svcs.Products, logg))
			r.Delete("/{productID}", controllers.DeleteProduct(svcs.Products, logg))
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/", controllers.GetCart(svcs.Cart, logg))
		r.Post("/items", controllers.AddCartItem(svcs.Cart, logg))
		r.Put("/items/{productID}", controllers.UpdateCartItem(svcs.Cart, logg))
		r.Delete("/items/{productID}", controllers.RemoveCartItem(svcs.Cart, logg))
		r.Delete("/", controllers.ClearCart(svcs.Cart, logg))
	})

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Post("/{userID}", controllers.SubmitOrder(svcs.Orders, logg))
		r.Get("/{userID}", controllers.ListOrders(svcs.Orders, logg))
		r.Get("/{userID}/{orderID}", controllers.GetOrder(svcs.Orders, logg))
	})

	// Status updates live under an admin prefix so the user-scoped order
	// wildcards above stay unambiguous.
	r.Route("/api/admin/v1/orders", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireAdmin(logg))
		r.Put("/{orderID}/status", controllers.SetOrderStatus(svcs.Orders, logg))
	})

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Post("/", controllers.CreatePayment(svcs.Payments, logg))
		r.Get("/{paymentID}", controllers.GetPayment(svcs.Payments, logg))
		r.Get("/order/{orderID}", controllers.ListOrderPayments(svcs.Payments, logg))
	})

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Post("/", controllers.SendNotification(svcs.Notifications, logg))
		r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
	})

	return r
}
