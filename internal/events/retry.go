package events

import (
	"time"

	"orderdesk_backend/platform/metrics"
)

// scheduleRetry launches the background re-delivery loop for one failed
// subscriber and one event. Each loop is an independent tracked goroutine:
// retries for different subscribers of the same event run concurrently, and
// none of them ever blocks the publisher. MaxRetries counts total attempts,
// including the synchronous first delivery that already failed.
//
// Exhausted retries are logged and counted but not dead-lettered; events
// remain recoverable through the store's unprocessed queries.
func (b *DistributedBus) scheduleRetry(event *Event, sub *subscription, firstErr error) {
	metrics.RetriesScheduled.Inc()
	b.retryWG.Add(1)

	go func() {
		defer b.retryWG.Done()

		lastErr := firstErr
		for attempt := 2; attempt <= sub.opts.MaxRetries; attempt++ {
			timer := time.NewTimer(sub.opts.RetryDelay)
			select {
			case <-b.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			// Unsubscribed since the last attempt: abandon the loop.
			if !sub.active.Load() {
				b.log.Debug("retry abandoned, subscriber unsubscribed",
					"event_id", event.ID.String(),
					"subscriber_id", sub.id.String(),
				)
				return
			}

			err := b.invoke(b.ctx, sub, event)
			if err == nil {
				b.log.Info("retry succeeded",
					"event_id", event.ID.String(),
					"event_type", event.Type,
					"subscriber_id", sub.id.String(),
					"attempt", attempt,
				)
				return
			}

			lastErr = err
			metrics.HandlerFailures.WithLabelValues(event.Type).Inc()
			b.log.HandlerError(event.ID.String(), event.Type, sub.id.String(), attempt, err)
		}

		metrics.RetriesExhausted.Inc()
		b.log.RetryExhausted(event.ID.String(), event.Type, sub.id.String(), sub.opts.MaxRetries, lastErr)
	}()
}
