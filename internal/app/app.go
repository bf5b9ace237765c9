package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/codehouse/bookshop/internal/auth"
	"github.com/codehouse/bookshop/internal/config"
	"github.com/codehouse/bookshop/internal/event"
	"github.com/codehouse/bookshop/internal/gateway"
	handler "github.com/codehouse/bookshop/internal/handler/http"
	"github.com/codehouse/bookshop/internal/mailer"
	"github.com/codehouse/bookshop/internal/repository/postgres"
	"github.com/codehouse/bookshop/internal/service"
	"github.com/codehouse/bookshop/internal/session"
	"github.com/codehouse/bookshop/pkg/health"
	"github.com/codehouse/bookshop/pkg/tracing"
)

// App wires together all dependencies and runs the shop.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	rdb             *redis.Client
	publisher       event.Publisher
	sessions        *session.Store
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Tracing.
	tracingCfg := tracing.DefaultConfig("bookshop")
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tracingCfg.Enabled = cfg.TracingEnabled
	tracingShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	if err := postgres.RunMigrations(ctx, pool, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Redis product cache. Optional: without it every lookup hits the DB.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	}

	// Kafka producer. Optional: without brokers events are dropped.
	var publisher event.Publisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = event.NewProducer(event.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Mail sender.
	var sender mailer.Sender
	if cfg.SendGridAPIKey != "" {
		sender = mailer.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromAddr, logger)
	} else {
		sender = mailer.NewLogSender(logger)
	}
	logger.Info("mail sender initialized", slog.String("sender", sender.Name()))

	// Build the dependency graph.
	sessions := session.NewStore(cfg.SessionTTL, logger)

	productRepo := postgres.NewProductRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	catalog := service.NewCatalogService(productRepo, rdb, cfg.ProductCacheTTL, logger)
	cartService := service.NewCartService(sessions, catalog, publisher, logger)

	paymentClient := gateway.NewClient(gateway.Config{
		URL:        cfg.PaymentURL,
		Timeout:    cfg.PaymentTimeout,
		MaxRetries: cfg.PaymentMaxRetries,
	}, logger)
	checkout := service.NewCheckoutCoordinator(sessions, paymentClient, sender, publisher, cfg.CheckoutTimeout, logger)

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)
	authService := service.NewAuthService(userRepo, tokens, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if rdb != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	if producer, ok := publisher.(*event.Producer); ok {
		healthHandler.Register("kafka", producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterDeps{
		Sessions:   sessions,
		Catalog:    catalog,
		Cart:       cartService,
		Checkout:   checkout,
		Auth:       authService,
		Tokens:     tokens,
		Health:     healthHandler,
		Logger:     logger,
		ReqTimeout: cfg.RequestTimeout,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * cfg.CheckoutTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		rdb:             rdb,
		publisher:       publisher,
		sessions:        sessions,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and the session sweeper and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go a.sessions.Run(sweepCtx, a.cfg.SessionSweepInterval)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.pool.Close()

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
