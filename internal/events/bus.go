package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/metrics"

	"github.com/google/uuid"
)

// Bus instance states. Publish and Subscribe fail fast until the bus has
// reached stateReady; a failed Initialize leaves it stateUninitialized.
const (
	stateUninitialized int32 = iota
	stateInitializing
	stateReady
)

// Health status values reported by HealthCheck.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus aggregates the sub-checks of the event subsystem.
type HealthStatus struct {
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
	Distributor bool   `json:"distributor"`
	EventStore  bool   `json:"eventStore"`
	Error       string `json:"error,omitempty"`
}

// Options configures bus-wide defaults.
type Options struct {
	// Source is stamped on events published without an explicit origin.
	Source string
	// DefaultMaxRetries is the total attempt budget for subscribers that
	// enable retry without naming one.
	DefaultMaxRetries int
	// DefaultRetryDelay is the pause between attempts when unset.
	DefaultRetryDelay time.Duration
}

type subscription struct {
	id        uuid.UUID
	eventType string
	handler   Handler
	opts      SubscribeOptions
	active    atomic.Bool
}

// DistributedBus is the publish/subscribe dispatcher. It owns the subscriber
// registry, persists every event through the Store before dispatch, invokes
// local subscribers synchronously with per-subscriber isolation, schedules
// background retries, and fans events out to other instances through the
// Distributor. Multiple bus instances are fully independent.
type DistributedBus struct {
	mu   sync.RWMutex
	subs map[string][]*subscription
	byID map[uuid.UUID]*subscription

	state atomic.Int32
	store Store
	dist  Distributor
	opts  Options
	log   *logger.Logger

	// instanceID tags broadcasts so the bus ignores its own.
	instanceID string

	// lifecycle context governs retry loops and the distributor feed.
	ctx     context.Context
	cancel  context.CancelFunc
	retryWG sync.WaitGroup
}

// NewBus creates an uninitialized bus. Initialize must succeed before
// Publish or Subscribe are usable.
func NewBus(store Store, dist Distributor, opts Options, log *logger.Logger) *DistributedBus {
	if opts.Source == "" {
		opts.Source = SourceAPI
	}
	if opts.DefaultMaxRetries < 1 {
		opts.DefaultMaxRetries = 3
	}
	if opts.DefaultRetryDelay <= 0 {
		opts.DefaultRetryDelay = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DistributedBus{
		subs:       make(map[string][]*subscription),
		byID:       make(map[uuid.UUID]*subscription),
		store:      store,
		dist:       dist,
		opts:       opts,
		log:        log,
		instanceID: uuid.New().String(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Initialize brings the store and the distribution channel up. The bus
// transitions to ready only when both succeed; any failure leaves it
// uninitialized and is returned to the caller.
func (b *DistributedBus) Initialize(ctx context.Context) error {
	if !b.state.CompareAndSwap(stateUninitialized, stateInitializing) {
		if b.state.Load() == stateReady {
			return nil
		}
		return fmt.Errorf("event bus initialization already in progress")
	}

	if err := b.store.Initialize(ctx); err != nil {
		b.state.Store(stateUninitialized)
		return fmt.Errorf("initialize event store: %w", err)
	}

	if err := b.dist.Start(b.ctx, b.handleRemote); err != nil {
		b.state.Store(stateUninitialized)
		return fmt.Errorf("start distribution channel: %w", err)
	}

	b.state.Store(stateReady)
	b.log.Info("event bus initialized", "instance_id", b.instanceID)
	return nil
}

// Close stops the distributor feed and drains all pending retry loops.
func (b *DistributedBus) Close() error {
	b.cancel()
	b.retryWG.Wait()
	b.state.Store(stateUninitialized)
	return b.dist.Close()
}

func (b *DistributedBus) ready() bool {
	return b.state.Load() == stateReady
}

// Publish implements Bus.
func (b *DistributedBus) Publish(ctx context.Context, eventType string, data map[string]any, meta Metadata) (*Event, error) {
	if !b.ready() {
		return nil, ErrNotInitialized
	}

	if meta.Source == "" {
		meta.Source = b.opts.Source
	}
	event := NewEvent(eventType, data, meta)

	// Persistence failure means the event never happened: no dispatch.
	if err := b.store.SaveEvent(ctx, event); err != nil {
		metrics.PublishFailures.Inc()
		return nil, fmt.Errorf("save event: %w", err)
	}
	metrics.EventsPublished.WithLabelValues(event.Type).Inc()

	start := time.Now()
	b.dispatch(ctx, event)
	metrics.DispatchDuration.Observe(float64(time.Since(start).Milliseconds()))

	// Best-effort fan-out to other instances. Local delivery already
	// happened; a dead channel must not fail the publish.
	if err := b.dist.Broadcast(ctx, Envelope{InstanceID: b.instanceID, Event: event}); err != nil {
		metrics.BroadcastFailures.Inc()
		b.log.Warn("event broadcast failed",
			"event_id", event.ID.String(),
			"event_type", event.Type,
			"error", err,
		)
	}

	return event, nil
}

// dispatch invokes every active subscriber for the event's type plus the
// wildcard subscribers, each isolated: one failure or panic neither stops
// the others nor reaches the publisher. Failed subscribers that asked for
// retries get an independent background loop.
func (b *DistributedBus) dispatch(ctx context.Context, event *Event) {
	for _, sub := range b.subscribersFor(event.Type) {
		if !sub.active.Load() {
			continue
		}

		if err := b.invoke(ctx, sub, event); err != nil {
			metrics.HandlerFailures.WithLabelValues(event.Type).Inc()
			b.log.HandlerError(event.ID.String(), event.Type, sub.id.String(), 1, err)

			if sub.opts.Retry {
				b.scheduleRetry(event, sub, err)
			}
		}
	}
}

// invoke runs one handler attempt, converting panics into errors so a
// misbehaving subscriber cannot take down the dispatch loop.
func (b *DistributedBus) invoke(ctx context.Context, sub *subscription, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler.Handle(ctx, event)
}

func (b *DistributedBus) subscribersFor(eventType string) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	typed := b.subs[eventType]
	wild := b.subs[WildcardType]
	if len(typed) == 0 && len(wild) == 0 {
		return nil
	}

	snapshot := make([]*subscription, 0, len(typed)+len(wild))
	snapshot = append(snapshot, typed...)
	snapshot = append(snapshot, wild...)
	return snapshot
}

// handleRemote dispatches events broadcast by other instances to local
// subscribers. The origin instance already persisted the event, so there is
// no store write here, and no re-broadcast.
func (b *DistributedBus) handleRemote(env Envelope) {
	if env.Event == nil || env.InstanceID == b.instanceID {
		return
	}
	b.dispatch(b.ctx, env.Event)
}

// Subscribe implements Bus.
func (b *DistributedBus) Subscribe(eventType string, handler Handler, opts SubscribeOptions) (uuid.UUID, error) {
	if !b.ready() {
		return uuid.Nil, ErrNotInitialized
	}
	if eventType == "" {
		return uuid.Nil, fmt.Errorf("event type is required")
	}
	if handler == nil {
		return uuid.Nil, fmt.Errorf("handler is required")
	}

	if opts.Retry {
		if opts.MaxRetries < 1 {
			opts.MaxRetries = b.opts.DefaultMaxRetries
		}
		if opts.RetryDelay <= 0 {
			opts.RetryDelay = b.opts.DefaultRetryDelay
		}
	}

	sub := &subscription{
		id:        uuid.New(),
		eventType: eventType,
		handler:   handler,
		opts:      opts,
	}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	b.byID[sub.id] = sub
	b.mu.Unlock()

	return sub.id, nil
}

// Unsubscribe implements Bus. Deactivation is checked at the top of every
// pending retry attempt, so in-flight retry loops for this subscriber stop
// at their next wake-up.
func (b *DistributedBus) Unsubscribe(id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.byID[id]
	if !ok {
		return ErrSubscriberNotFound
	}

	sub.active.Store(false)
	delete(b.byID, id)

	list := b.subs[sub.eventType]
	for i, item := range list {
		if item == sub {
			b.subs[sub.eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.eventType]) == 0 {
		delete(b.subs, sub.eventType)
	}

	return nil
}

// GetSubscribers implements Bus.
func (b *DistributedBus) GetSubscribers() []SubscriberInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	infos := make([]SubscriberInfo, 0, len(b.byID))
	for _, sub := range b.byID {
		infos = append(infos, SubscriberInfo{
			ID:        sub.id,
			EventType: sub.eventType,
			IsActive:  sub.active.Load(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].EventType != infos[j].EventType {
			return infos[i].EventType < infos[j].EventType
		}
		return infos[i].ID.String() < infos[j].ID.String()
	})
	return infos
}

// GetEventHistory implements Bus.
func (b *DistributedBus) GetEventHistory(ctx context.Context, eventType string, limit int) ([]*Event, error) {
	if limit < 1 {
		limit = 50
	}
	return b.store.GetEvents(ctx, eventType, limit, 0)
}

// HealthCheck implements Bus. The check itself never propagates a failure:
// errors and panics during sub-checks are captured into the result.
func (b *DistributedBus) HealthCheck(ctx context.Context) (status HealthStatus) {
	defer func() {
		if r := recover(); r != nil {
			status = HealthStatus{
				Status:      StatusUnhealthy,
				Initialized: b.ready(),
				Error:       fmt.Sprintf("health check panic: %v", r),
			}
		}
	}()

	status = HealthStatus{Initialized: b.ready()}

	if err := b.dist.HealthCheck(ctx); err != nil {
		status.Error = err.Error()
	} else {
		status.Distributor = true
	}

	if err := b.store.HealthCheck(ctx); err != nil {
		if status.Error == "" {
			status.Error = err.Error()
		}
	} else {
		status.EventStore = true
	}

	if status.Initialized && status.Distributor && status.EventStore {
		status.Status = StatusHealthy
	} else {
		status.Status = StatusUnhealthy
	}
	return status
}

// Compile-time check that DistributedBus implements Bus.
var _ Bus = (*DistributedBus)(nil)
