// Package events provides the event bus infrastructure for decoupled,
// event-driven communication between modules: the schema of recognized
// event types, the metadata envelope, the publish/subscribe dispatcher with
// background retries, and the ports to the event store and the
// cross-instance distribution channel.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is the immutable unit of record. ID, Type, Data, and Metadata are
// fixed at publish time; only the Processed flag changes afterwards, and
// only through the store's MarkEventAsProcessed.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Metadata  Metadata       `json:"metadata"`
	Processed bool           `json:"processed"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewEvent constructs a full event from a publish call: fresh id, normalized
// metadata, and the correlation id defaulted to the event's own id so that a
// root event is its own correlation root.
func NewEvent(eventType string, data map[string]any, partial Metadata) *Event {
	id := uuid.New()

	meta := BuildMetadata(partial)
	if meta.CorrelationID == "" {
		meta.CorrelationID = id.String()
	}

	return &Event{
		ID:        id,
		Type:      eventType,
		Data:      data,
		Metadata:  meta,
		CreatedAt: meta.Timestamp,
	}
}

// Clone returns a copy whose Data and Metadata maps are independent of the
// original, so a caller mutating its event cannot reach the copy.
func (e *Event) Clone() *Event {
	out := *e
	out.Metadata = e.Metadata.Clone()
	if e.Data != nil {
		out.Data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			out.Data[k] = v
		}
	}
	return &out
}

// Handler processes events delivered by the bus. Implementations must be
// safe for concurrent invocation: retries for different events may overlap.
type Handler interface {
	Handle(ctx context.Context, event *Event) error
}

// HandlerFunc is an adapter to allow ordinary functions to be used as handlers.
type HandlerFunc func(ctx context.Context, event *Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// SubscribeOptions controls delivery semantics for one subscriber.
type SubscribeOptions struct {
	// Retry schedules background re-delivery when the handler fails.
	Retry bool
	// MaxRetries is the total number of attempts including the first
	// delivery. Zero means the bus default.
	MaxRetries int
	// RetryDelay is the pause before each re-attempt. Zero means the bus
	// default.
	RetryDelay time.Duration
}

// SubscriberInfo describes a registered subscriber for operational tooling.
type SubscriberInfo struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"eventType"`
	IsActive  bool      `json:"isActive"`
}

// Bus is the interface modules use to publish and subscribe to domain events.
type Bus interface {
	// Publish persists the event, dispatches it synchronously to all local
	// subscribers of the type (and wildcard subscribers), schedules retries
	// for failed subscribers that asked for them, and broadcasts the event
	// to other instances. It returns the fully constructed event without
	// waiting for retries.
	Publish(ctx context.Context, eventType string, data map[string]any, meta Metadata) (*Event, error)

	// Subscribe registers a handler for one event type (or WildcardType)
	// and returns the id used to unsubscribe.
	Subscribe(eventType string, handler Handler, opts SubscribeOptions) (uuid.UUID, error)

	// Unsubscribe removes a subscriber. Retry attempts not yet executed for
	// that subscriber are abandoned.
	Unsubscribe(id uuid.UUID) error

	// GetSubscribers lists the current registry.
	GetSubscribers() []SubscriberInfo

	// GetEventHistory returns recent events of a type from the store.
	GetEventHistory(ctx context.Context, eventType string, limit int) ([]*Event, error)

	// HealthCheck aggregates bus, store, and distribution channel health.
	HealthCheck(ctx context.Context) HealthStatus
}
