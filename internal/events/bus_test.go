package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"orderdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu          sync.Mutex
	initialized bool
	saved       []*Event
	failSave    bool
	failHealth  bool
}

func (s *fakeStore) Initialize(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *fakeStore) SaveEvent(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("write rejected")
	}
	s.saved = append(s.saved, event)
	return nil
}

func (s *fakeStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func (s *fakeStore) GetEvent(context.Context, uuid.UUID) (*Event, error) {
	return nil, ErrEventNotFound
}

func (s *fakeStore) GetEvents(_ context.Context, eventType string, limit, offset int) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*Event
	for i := len(s.saved) - 1; i >= 0; i-- {
		if eventType == "" || s.saved[i].Type == eventType {
			matched = append(matched, s.saved[i])
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *fakeStore) GetEventsByCorrelationID(context.Context, string) ([]*Event, error) {
	return nil, nil
}

func (s *fakeStore) GetEventsByDateRange(context.Context, time.Time, time.Time, string) ([]*Event, error) {
	return nil, nil
}

func (s *fakeStore) GetUnprocessedEvents(context.Context, int) ([]*Event, error) {
	return nil, nil
}

func (s *fakeStore) MarkEventAsProcessed(context.Context, uuid.UUID) error { return nil }

func (s *fakeStore) GetEventStats(context.Context) (Stats, error) { return Stats{}, nil }

func (s *fakeStore) HealthCheck(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failHealth {
		return errors.New("store unreachable")
	}
	return nil
}

type fakeDistributor struct {
	mu            sync.Mutex
	deliver       func(Envelope)
	broadcasts    []Envelope
	failStart     bool
	failBroadcast bool
	failHealth    bool
}

func (d *fakeDistributor) Start(_ context.Context, deliver func(Envelope)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failStart {
		return errors.New("channel down")
	}
	d.deliver = deliver
	return nil
}

func (d *fakeDistributor) Broadcast(_ context.Context, env Envelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failBroadcast {
		return errors.New("channel down")
	}
	d.broadcasts = append(d.broadcasts, env)
	return nil
}

func (d *fakeDistributor) broadcastCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.broadcasts)
}

func (d *fakeDistributor) inject(env Envelope) {
	d.mu.Lock()
	deliver := d.deliver
	d.mu.Unlock()
	deliver(env)
}

func (d *fakeDistributor) HealthCheck(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failHealth {
		return errors.New("channel down")
	}
	return nil
}

func (d *fakeDistributor) Close() error { return nil }

func newTestBus(t *testing.T, store *fakeStore, dist *fakeDistributor) *DistributedBus {
	t.Helper()
	bus := NewBus(store, dist, Options{
		DefaultMaxRetries: 3,
		DefaultRetryDelay: time.Millisecond,
	}, logger.New("development"))
	if err := bus.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestPublishBeforeInitializeIsRejected(t *testing.T) {
	store := &fakeStore{}
	bus := NewBus(store, &fakeDistributor{}, Options{}, logger.New("development"))

	_, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{})
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if store.savedCount() != 0 {
		t.Fatalf("expected no store write before initialization, got %d", store.savedCount())
	}

	_, err = bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error { return nil }), SubscribeOptions{})
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized from Subscribe, got %v", err)
	}
}

func TestInitializeFailureLeavesBusUnusable(t *testing.T) {
	store := &fakeStore{}
	bus := NewBus(store, &fakeDistributor{failStart: true}, Options{}, logger.New("development"))

	if err := bus.Initialize(context.Background()); err == nil {
		t.Fatal("expected Initialize to fail when the distribution channel is down")
	}
	if _, err := bus.Publish(context.Background(), OrderCreated, nil, Metadata{}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized after failed Initialize, got %v", err)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})
	if err := bus.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize returned error: %v", err)
	}
}

func TestPublishDeliversToSubscriberAndPersists(t *testing.T) {
	store := &fakeStore{}
	dist := &fakeDistributor{}
	bus := newTestBus(t, store, dist)

	var received *Event
	_, err := bus.Subscribe(OrderCreated, HandlerFunc(func(_ context.Context, e *Event) error {
		received = e
		return nil
	}), SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	data := map[string]any{"orderId": "o-1", "items": []any{map[string]any{"productId": "p-1", "quantity": 2}}}
	event, err := bus.Publish(context.Background(), OrderCreated, data, Metadata{UserID: "u-1"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if received == nil {
		t.Fatal("subscriber was not invoked")
	}
	if received.ID != event.ID {
		t.Fatalf("subscriber got event %s, published %s", received.ID, event.ID)
	}
	if event.Metadata.CorrelationID != event.ID.String() {
		t.Fatalf("expected correlation id to default to the event id, got %q", event.Metadata.CorrelationID)
	}
	if event.Metadata.Source != SourceAPI {
		t.Fatalf("expected default source %q, got %q", SourceAPI, event.Metadata.Source)
	}
	if event.Metadata.Version != MetadataVersion {
		t.Fatalf("expected metadata version %q, got %q", MetadataVersion, event.Metadata.Version)
	}
	if store.savedCount() != 1 {
		t.Fatalf("expected one persisted event, got %d", store.savedCount())
	}
	if dist.broadcastCount() != 1 {
		t.Fatalf("expected one broadcast, got %d", dist.broadcastCount())
	}
}

func TestPublishFailsWhenStoreWriteFails(t *testing.T) {
	store := &fakeStore{failSave: true}
	bus := newTestBus(t, store, &fakeDistributor{})

	invoked := 0
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		invoked++
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err == nil {
		t.Fatal("expected Publish to fail when persistence fails")
	}
	if invoked != 0 {
		t.Fatalf("expected no dispatch after failed persistence, handler ran %d times", invoked)
	}
}

func TestBroadcastFailureDoesNotFailPublish(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{failBroadcast: true})

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error on broadcast failure: %v", err)
	}
}

func TestSubscriberFailureDoesNotReachPublisherOrOtherSubscribers(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	second := 0
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		return errors.New("boom")
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		second++
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if second != 1 {
		t.Fatalf("expected the healthy subscriber to run once, got %d", second)
	}
}

func TestSubscriberPanicIsContained(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	second := 0
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		panic("handler exploded")
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		second++
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error after handler panic: %v", err)
	}
	if second != 1 {
		t.Fatalf("expected the healthy subscriber to run once, got %d", second)
	}
}

func TestWildcardSubscriberReceivesEveryType(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	var types []string
	if _, err := bus.Subscribe(WildcardType, HandlerFunc(func(_ context.Context, e *Event) error {
		types = append(types, e.Type)
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	for _, eventType := range []string{OrderCreated, UserCreated, InventoryLowStock} {
		if _, err := bus.Publish(context.Background(), eventType, map[string]any{}, Metadata{}); err != nil {
			t.Fatalf("Publish(%s) returned error: %v", eventType, err)
		}
	}

	if len(types) != 3 {
		t.Fatalf("expected wildcard subscriber to see 3 events, got %d", len(types))
	}
}

func TestSubscribeRejectsInvalidArguments(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	if _, err := bus.Subscribe("", HandlerFunc(func(context.Context, *Event) error { return nil }), SubscribeOptions{}); err == nil {
		t.Fatal("expected Subscribe to reject an empty event type")
	}
	if _, err := bus.Subscribe(OrderCreated, nil, SubscribeOptions{}); err == nil {
		t.Fatal("expected Subscribe to reject a nil handler")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	count := 0
	id, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		count++
		return nil
	}), SubscribeOptions{})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := bus.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe returned error: %v", err)
	}
	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-2"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if count != 1 {
		t.Fatalf("expected exactly one delivery before unsubscribe, got %d", count)
	}
	if err := bus.Unsubscribe(id); !errors.Is(err, ErrSubscriberNotFound) {
		t.Fatalf("expected ErrSubscriberNotFound on repeated unsubscribe, got %v", err)
	}
}

func TestRetrySucceedsWithinBudget(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	var attempts atomic.Int32
	done := make(chan struct{})
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		n := attempts.Add(1)
		if n < 3 {
			return fmt.Errorf("attempt %d failed", n)
		}
		close(done)
		return nil
	}), SubscribeOptions{Retry: true, MaxRetries: 3, RetryDelay: time.Millisecond}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not reach the succeeding attempt in time")
	}
	// Give a potential stray extra attempt time to show up.
	time.Sleep(20 * time.Millisecond)
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	var attempts atomic.Int32
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		attempts.Add(1)
		return errors.New("always failing")
	}), SubscribeOptions{Retry: true, MaxRetries: 2, RetryDelay: time.Millisecond}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for attempts.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 attempts, got %d", attempts.Load())
		case <-time.After(time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)
	if got := attempts.Load(); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
}

func TestNonRetrySubscriberFailsOnce(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	var attempts atomic.Int32
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		attempts.Add(1)
		return errors.New("always failing")
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected a single attempt without retry, got %d", got)
	}
}

func TestUnsubscribeAbandonsPendingRetries(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	var attempts atomic.Int32
	id, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		attempts.Add(1)
		return errors.New("always failing")
	}), SubscribeOptions{Retry: true, MaxRetries: 10, RetryDelay: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := bus.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe returned error: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected retries to stop after unsubscribe, got %d attempts", got)
	}
}

func TestConcurrentPublishesAllPersistAndDeliver(t *testing.T) {
	store := &fakeStore{}
	bus := newTestBus(t, store, &fakeDistributor{})

	var delivered atomic.Int32
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		delivered.Add(1)
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": fmt.Sprintf("o-%d", i)}, Metadata{})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Publish returned error: %v", err)
		}
	}
	if store.savedCount() != n {
		t.Fatalf("expected %d persisted events, got %d", n, store.savedCount())
	}
	if got := delivered.Load(); got != n {
		t.Fatalf("expected %d deliveries, got %d", n, got)
	}
}

func TestRemoteEnvelopeIsDispatchedWithoutPersisting(t *testing.T) {
	store := &fakeStore{}
	dist := &fakeDistributor{}
	bus := newTestBus(t, store, dist)

	received := 0
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		received++
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	remote := NewEvent(OrderCreated, map[string]any{"orderId": "o-remote"}, Metadata{Source: SourceMicroservice})
	dist.inject(Envelope{InstanceID: "other-instance", Event: remote})

	if received != 1 {
		t.Fatalf("expected one delivery from a remote envelope, got %d", received)
	}
	if store.savedCount() != 0 {
		t.Fatalf("expected remote events not to be re-persisted, got %d writes", store.savedCount())
	}
}

func TestOwnBroadcastIsIgnored(t *testing.T) {
	dist := &fakeDistributor{}
	bus := newTestBus(t, &fakeStore{}, dist)

	received := 0
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(context.Context, *Event) error {
		received++
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	event := NewEvent(OrderCreated, map[string]any{"orderId": "o-1"}, Metadata{})
	dist.inject(Envelope{InstanceID: bus.instanceID, Event: event})

	if received != 0 {
		t.Fatalf("expected own broadcast to be skipped, got %d deliveries", received)
	}
}

func TestDispatchMatchesTypeExactly(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	var orderEvents []*Event
	inventoryEvents := 0
	if _, err := bus.Subscribe(OrderCreated, HandlerFunc(func(_ context.Context, e *Event) error {
		orderEvents = append(orderEvents, e)
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if _, err := bus.Subscribe(InventoryUpdated, HandlerFunc(func(context.Context, *Event) error {
		inventoryEvents++
		return nil
	}), SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{
		"orderId": "o1",
		"items":   []any{map[string]any{"productId": "p1", "quantity": 2}},
	}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if len(orderEvents) != 1 {
		t.Fatalf("expected exactly one delivery to the order subscriber, got %d", len(orderEvents))
	}
	if orderEvents[0].Data["orderId"] != "o1" {
		t.Fatalf("expected orderId o1, got %v", orderEvents[0].Data["orderId"])
	}
	if inventoryEvents != 0 {
		t.Fatalf("expected no delivery to the inventory subscriber, got %d", inventoryEvents)
	}
}

func TestGetSubscribersListsRegistrations(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})

	noop := HandlerFunc(func(context.Context, *Event) error { return nil })
	if _, err := bus.Subscribe(UserCreated, noop, SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if _, err := bus.Subscribe(OrderCreated, noop, SubscribeOptions{}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	subs := bus.GetSubscribers()
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(subs))
	}
	if subs[0].EventType != OrderCreated || subs[1].EventType != UserCreated {
		t.Fatalf("expected subscribers sorted by type, got %s then %s", subs[0].EventType, subs[1].EventType)
	}
	for _, sub := range subs {
		if !sub.IsActive {
			t.Fatalf("expected subscriber %s to be active", sub.ID)
		}
	}
}

func TestHealthCheckReportsSubsystemFailures(t *testing.T) {
	store := &fakeStore{}
	dist := &fakeDistributor{}
	bus := newTestBus(t, store, dist)

	status := bus.HealthCheck(context.Background())
	if status.Status != StatusHealthy {
		t.Fatalf("expected healthy status, got %q (%s)", status.Status, status.Error)
	}

	dist.mu.Lock()
	dist.failHealth = true
	dist.mu.Unlock()

	status = bus.HealthCheck(context.Background())
	if status.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy status when the channel is down, got %q", status.Status)
	}
	if !status.EventStore || status.Distributor {
		t.Fatalf("expected store healthy and distributor unhealthy, got %+v", status)
	}
	if status.Error == "" {
		t.Fatal("expected the failure reason to be reported")
	}
}

type panickyStore struct {
	fakeStore
}

func (s *panickyStore) HealthCheck(context.Context) error {
	panic("probe exploded")
}

func TestHealthCheckCapturesPanics(t *testing.T) {
	bus := newTestBus(t, &fakeStore{}, &fakeDistributor{})
	bus.store = &panickyStore{}

	status := bus.HealthCheck(context.Background())
	if status.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy status after a panicking probe, got %q", status.Status)
	}
	if status.Error == "" {
		t.Fatal("expected the panic to be captured into the error field")
	}
}

func TestGetEventHistoryUsesStore(t *testing.T) {
	store := &fakeStore{}
	bus := newTestBus(t, store, &fakeDistributor{})

	for i := 0; i < 3; i++ {
		if _, err := bus.Publish(context.Background(), OrderCreated, map[string]any{"orderId": fmt.Sprintf("o-%d", i)}, Metadata{}); err != nil {
			t.Fatalf("Publish returned error: %v", err)
		}
	}
	if _, err := bus.Publish(context.Background(), UserCreated, map[string]any{"userId": "u-1", "email": "u@example.com"}, Metadata{}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	history, err := bus.GetEventHistory(context.Background(), OrderCreated, 2)
	if err != nil {
		t.Fatalf("GetEventHistory returned error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 events, got %d", len(history))
	}
	for _, e := range history {
		if e.Type != OrderCreated {
			t.Fatalf("expected only %s events, got %s", OrderCreated, e.Type)
		}
	}
}
