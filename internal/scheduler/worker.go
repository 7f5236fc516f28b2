// Package scheduler provides the pull-based reconciliation pipeline: an
// asynq worker that sweeps unprocessed events out of the store and replays
// them through a sink, independently of the bus's live-dispatch retries.
package scheduler

import (
	"context"

	"orderdesk_backend/internal/events"
	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/metrics"

	"github.com/hibiken/asynq"
)

// ReconcileSink consumes one unprocessed event. A nil error marks the event
// processed; an error leaves it for the next pass (at-least-once).
type ReconcileSink interface {
	Reconcile(ctx context.Context, event *events.Event) error
}

// Worker runs the asynq server handling reconciliation tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	store  events.Store
	sink   ReconcileSink
	log    *logger.Logger
}

// NewWorker creates the reconciliation worker.
func NewWorker(cfg config.SchedulerConfig, store events.Store, sink ReconcileSink, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := queueName(cfg)
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		store:  store,
		sink:   sink,
		log:    log,
	}
	mux.HandleFunc(TaskEventsReconcile, w.handleReconcile)

	return w, nil
}

// handleReconcile processes one batch of unprocessed events. Sink failures
// are logged and retried on a later pass; they never fail the whole batch.
func (w *Worker) handleReconcile(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseEventsReconcilePayload(task)
	if err != nil {
		return err
	}

	batch, err := w.store.GetUnprocessedEvents(ctx, payload.BatchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	handled := 0
	for _, event := range batch {
		if err := w.sink.Reconcile(ctx, event); err != nil {
			w.log.Warn("reconcile sink failed",
				"event_id", event.ID.String(),
				"event_type", event.Type,
				"error", err,
			)
			continue
		}

		if err := w.store.MarkEventAsProcessed(ctx, event.ID); err != nil {
			w.log.DatabaseError("mark_event_processed", err)
			continue
		}
		handled++
		metrics.EventsReconciled.Inc()
	}

	w.log.Info("reconcile pass complete", "batch", len(batch), "handled", handled)
	return nil
}

// Run serves reconciliation tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("reconcile worker stopped", "error", err)
	}
}
