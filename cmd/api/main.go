package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderdesk_backend/internal/admin"
	"orderdesk_backend/internal/distribution"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/eventstore"
	"orderdesk_backend/internal/gateway"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/internal/http/router"
	"orderdesk_backend/internal/orders"
	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	store := eventstore.NewPostgresStore(pool, log)

	// Cross-instance distribution channel. Without Redis the bus runs
	// single-instance: local dispatch still works, broadcasts go nowhere.
	var dist events.Distributor = events.NoopDistributor{}
	if cfg.RedisURL != "" {
		redisDist, err := distribution.NewRedisDistributor(cfg, cfg.BroadcastChannel, log)
		if err != nil {
			log.Error("failed to initialize distribution channel", "error", err)
			panic("failed to initialize distribution channel: " + err.Error())
		}
		dist = redisDist
		log.Info("redis distribution channel configured", "channel", cfg.BroadcastChannel)
	}

	bus := events.NewBus(store, dist, events.Options{
		Source:            cfg.EventSource,
		DefaultMaxRetries: cfg.DefaultMaxRetries,
		DefaultRetryDelay: cfg.DefaultRetryDelay,
	}, log)

	if err := withRetry(ctx, log, "event bus initialization", 5, 2*time.Second, func() error {
		return bus.Initialize(ctx)
	}); err != nil {
		log.Error("failed to initialize event bus", "error", err)
		panic("failed to initialize event bus: " + err.Error())
	}
	defer func() { _ = bus.Close() }()

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Modules (Composition Root)
	// ========================================================================

	ordersModule := orders.NewModule(bus, log)
	if err := ordersModule.RegisterHandlers(); err != nil {
		log.Error("failed to register order handlers", "error", err)
		panic("failed to register order handlers: " + err.Error())
	}

	gatewayModule := gateway.NewModule(bus, log)
	if err := gatewayModule.RegisterHandlers(); err != nil {
		log.Error("failed to register gateway handler", "error", err)
		panic("failed to register gateway handler: " + err.Error())
	}

	adminModule := admin.NewModule(bus, store, val, log)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		EventBus: bus,
		Modules:  []apphttp.Module{adminModule, gatewayModule},
	}

	engine := router.New(app)

	if _, err := bus.Publish(ctx, events.SystemStartup, map[string]any{
		"service": "orderdesk_backend",
	}, events.Metadata{}); err != nil {
		log.Warn("startup event publish failed", "error", err)
	}

	// ========================================================================
	// HTTP Server with graceful shutdown
	// ========================================================================

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := bus.Publish(shutdownCtx, events.SystemShutdown, map[string]any{
			"service": "orderdesk_backend",
		}, events.Metadata{}); err != nil {
			log.Warn("shutdown event publish failed", "error", err)
		}

		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(baseDelay * time.Duration(attempt)):
			}
		}
	}
	return lastErr
}
