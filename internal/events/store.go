package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors shared by the bus and the store implementations.
var (
	// ErrNotInitialized is returned by Publish and Subscribe before
	// Initialize has completed successfully.
	ErrNotInitialized = errors.New("event bus not initialized")

	// ErrStoreNotInitialized is returned by store operations invoked before
	// a successful Initialize.
	ErrStoreNotInitialized = errors.New("event store not initialized")

	// ErrEventNotFound is returned when an event id does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrSubscriberNotFound is returned by Unsubscribe for unknown ids.
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// StatusCounts splits the event population by the processed flag.
type StatusCounts struct {
	Processed   int64 `json:"processed"`
	Unprocessed int64 `json:"unprocessed"`
}

// Stats is the aggregate view of the event log.
type Stats struct {
	TotalEvents    int64            `json:"totalEvents"`
	EventsByType   map[string]int64 `json:"eventsByType"`
	EventsByStatus StatusCounts     `json:"eventsByStatus"`
	RecentEvents   []*Event         `json:"recentEvents"`
}

// Store is the append-only, queryable log of every published event. The bus
// persists through it before dispatching; pull-based consumers query it for
// history, replay, and at-least-once reconciliation.
//
// Implementations must support concurrent appends and reads. The only
// ordering guarantee required is that an event is retrievable once its
// SaveEvent call has returned.
type Store interface {
	// Initialize performs idempotent setup (connects, ensures schema and
	// indexes). Every other method fails with ErrStoreNotInitialized until
	// Initialize has succeeded.
	Initialize(ctx context.Context) error

	// SaveEvent appends one event. It never mutates existing records.
	SaveEvent(ctx context.Context, event *Event) error

	// GetEvent returns the event with the given id, or ErrEventNotFound.
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)

	// GetEvents returns a page of events, most recent first, optionally
	// filtered by type (empty string means all types).
	GetEvents(ctx context.Context, eventType string, limit, offset int) ([]*Event, error)

	// GetEventsByCorrelationID returns every event sharing a correlation
	// root, ordered by creation time ascending.
	GetEventsByCorrelationID(ctx context.Context, correlationID string) ([]*Event, error)

	// GetEventsByDateRange returns events created within [start, end],
	// most recent first, optionally filtered by type.
	GetEventsByDateRange(ctx context.Context, start, end time.Time, eventType string) ([]*Event, error)

	// GetUnprocessedEvents returns events not yet marked processed, oldest
	// first, for pull-based consumers.
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*Event, error)

	// MarkEventAsProcessed flips the processed flag for one event.
	MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error

	// GetEventStats aggregates totals, per-type counts, processed status,
	// and the most recent events.
	GetEventStats(ctx context.Context) (Stats, error)

	// HealthCheck is a lightweight connectivity probe.
	HealthCheck(ctx context.Context) error
}
