package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderdesk_backend/internal/distribution"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/internal/eventstore"
	"orderdesk_backend/internal/orders"
	"orderdesk_backend/internal/scheduler"
	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/db"
	"orderdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	store := eventstore.NewPostgresStore(pool, log)

	// The reconciler re-publishes derived events through a worker-local bus
	// so cascades triggered here reach the other instances over Redis.
	var dist events.Distributor = events.NoopDistributor{}
	if cfg.RedisURL != "" {
		redisDist, err := distribution.NewRedisDistributor(cfg, cfg.BroadcastChannel, log)
		if err != nil {
			log.Error("failed to initialize distribution channel", "error", err)
			panic("failed to initialize distribution channel: " + err.Error())
		}
		dist = redisDist
	}

	bus := events.NewBus(store, dist, events.Options{
		Source:            events.SourceReconciler,
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

	ordersModule := orders.NewModule(bus, log)

	dispatcher, err := scheduler.NewReconcileDispatcher(cfg, log)
	if err != nil {
		log.Error("failed to initialize reconcile dispatcher", "error", err)
		panic("failed to initialize reconcile dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, store, ordersModule, log)
	if err != nil {
		log.Error("failed to initialize reconcile worker", "error", err)
		panic("failed to initialize reconcile worker: " + err.Error())
	}

	worker.Run(ctx)
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
