package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codehouse/bookshop/internal/auth"
	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/service"
	"github.com/codehouse/bookshop/internal/session"
	"github.com/codehouse/bookshop/pkg/health"
	"github.com/codehouse/bookshop/pkg/middleware"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Sessions   *session.Store
	Catalog    service.Catalog
	Cart       *service.CartService
	Checkout   *service.CheckoutCoordinator
	Auth       *service.AuthService
	Tokens     *auth.JWTManager
	Health     *health.Handler
	Logger     *slog.Logger
	ReqTimeout time.Duration
}

// NewRouter creates a chi router with all shop routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	timeout := deps.ReqTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(timeout))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("bookshop"))
	r.Use(middleware.Tracing("bookshop"))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(deps.Auth, deps.Logger)
	productHandler := NewProductHandler(deps.Catalog, deps.Sessions, deps.Logger)
	cartHandler := NewCartHandler(deps.Cart, deps.Logger)
	checkoutHandler := NewCheckoutHandler(deps.Checkout, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(OptionalAuth(deps.Tokens))

		r.Post("/auth/login", authHandler.Login)

		// Shopping routes are session-scoped; checkout redirects to the
		// listing, which delivers the session's flash messages.
		r.Group(func(r chi.Router) {
			r.Use(WithSession(deps.Sessions))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.List)
				r.Get("/{productID}", productHandler.Get)

				r.With(RequireRole(domain.RoleAdmin)).Post("/", productHandler.Create)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/items", cartHandler.AddItem)
				r.Delete("/items/{productID}/{variant}", cartHandler.RemoveItem)
			})

			r.Post("/checkout", checkoutHandler.Checkout)
		})
	})

	return r
}
