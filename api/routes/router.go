package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hoangtran-dev/shopora-backend/api/controllers"
	"github.com/hoangtran-dev/shopora-backend/api/middleware"
	authsvc "github.com/hoangtran-dev/shopora-backend/internal/auth"
	"github.com/hoangtran-dev/shopora-backend/internal/cart"
	"github.com/hoangtran-dev/shopora-backend/internal/catalog"
	checkoutsvc "github.com/hoangtran-dev/shopora-backend/internal/checkout"
	"github.com/hoangtran-dev/shopora-backend/internal/coupons"
	"github.com/hoangtran-dev/shopora-backend/internal/orders"
	"github.com/hoangtran-dev/shopora-backend/pkg/config"
	"github.com/hoangtran-dev/shopora-backend/pkg/db"
	"github.com/hoangtran-dev/shopora-backend/pkg/logger"
	"github.com/hoangtran-dev/shopora-backend/pkg/metrics"
	"github.com/hoangtran-dev/shopora-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *db.Client
	Redis        *redis.Client
	Registry     *prometheus.Registry
	HTTPMetrics  *metrics.HTTPMetrics
	AuthService  authsvc.Service
	Catalog      catalog.Service
	Cart         cart.Service
	Coupons      coupons.Service
	Checkout     checkoutsvc.Service
	Orders       orders.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
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
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg), middleware.Idempotency(deps.Redis, logg)).
			Post("/register", controllers.AuthRegister(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
			r.Get("/me", controllers.AuthProfile(deps.AuthService, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/{productID}", controllers.GetProduct(deps.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/coupons/validate", controllers.ValidateCoupon(deps.Coupons, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Get("/quote", controllers.CartQuote(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Put("/items", controllers.CartUpdateQuantity(deps.Cart, logg))
			r.Delete("/items/{productID}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.AdminCreateProduct(deps.Catalog, logg))
				r.Put("/{productID}", controllers.AdminUpdateProduct(deps.Catalog, logg))
				r.Delete("/{productID}", controllers.AdminDeactivateProduct(deps.Catalog, logg))
			})

			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", controllers.AdminListCoupons(deps.Coupons, logg))
				r.Post("/", controllers.AdminCreateCoupon(deps.Coupons, logg))
				r.Get("/{couponID}", controllers.AdminGetCoupon(deps.Coupons, logg))
				r.Put("/{couponID}", controllers.AdminUpdateCoupon(deps.Coupons, logg))
				r.Delete("/{couponID}", controllers.AdminDeleteCoupon(deps.Coupons, logg))
			})
		})
	})

	return r
}
