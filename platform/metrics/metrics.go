// Package metrics exposes Prometheus instrumentation for the event subsystem.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_events_published_total",
		Help: "Total number of events published, labelled by event type.",
	}, []string{"event_type"})

	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderdesk_publish_failures_total",
		Help: "Total number of publish calls rejected by the event store.",
	})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_handler_failures_total",
		Help: "Total number of subscriber handler failures, labelled by event type.",
	}, []string{"event_type"})

	RetriesScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderdesk_retries_scheduled_total",
		Help: "Total number of background retry loops scheduled.",
	})

	RetriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderdesk_retries_exhausted_total",
		Help: "Total number of retry loops that gave up after max attempts.",
	})

	BroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderdesk_broadcast_failures_total",
		Help: "Total number of failed cross-instance broadcast attempts.",
	})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderdesk_dispatch_duration_ms",
		Help:    "Synchronous dispatch latency per published event in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	EventsReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderdesk_events_reconciled_total",
		Help: "Total number of unprocessed events handled by the reconciler.",
	})
)
