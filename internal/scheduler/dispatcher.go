package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// ReconcileDispatcher periodically enqueues reconciliation tasks so the
// worker sweeps the unprocessed backlog even when nothing else is running.
type ReconcileDispatcher struct {
	client    *asynq.Client
	queue     string
	interval  time.Duration
	batchSize int
	log       *logger.Logger
}

// NewReconcileDispatcher creates the periodic dispatcher.
func NewReconcileDispatcher(cfg config.SchedulerConfig, log *logger.Logger) (*ReconcileDispatcher, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.GetReconcileInterval()
	if interval <= 0 {
		interval = time.Minute
	}
	batchSize := cfg.GetReconcileBatchSize()
	if batchSize < 1 {
		batchSize = 50
	}

	return &ReconcileDispatcher{
		client:    asynq.NewClient(opt),
		queue:     queueName(cfg),
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}, nil
}

// Close releases the asynq client.
func (d *ReconcileDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Run enqueues one reconcile task per interval until ctx is cancelled.
func (d *ReconcileDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		task, err := NewEventsReconcileTask(EventsReconcilePayload{BatchSize: d.batchSize})
		if err != nil {
			d.log.Warn("reconcile task build failed", "error", err)
			continue
		}

		if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue)); err != nil {
			d.log.Warn("reconcile task enqueue failed", "error", err)
		}
	}
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(cfg config.RedisConfig) (asynq.RedisClientOpt, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if cfg.GetRedisTLSInsecure() {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if cfg.GetRedisTLSInsecure() {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
