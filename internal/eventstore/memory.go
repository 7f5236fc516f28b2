package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"orderdesk_backend/internal/events"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory event log. It honours the same contract as
// PostgresStore (append-only, initialize-before-use, concurrent reads and
// writes) and backs tests and database-less development setups.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	log         []*events.Event
	byID        map[uuid.UUID]*events.Event
}

// NewMemoryStore creates an uninitialized in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Initialize implements events.Store.
func (s *MemoryStore) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		s.byID = make(map[uuid.UUID]*events.Event)
		s.initialized = true
	}
	return nil
}

// SaveEvent implements events.Store. The stored record is a copy: later
// mutation of the caller's event does not rewrite history.
func (s *MemoryStore) SaveEvent(_ context.Context, event *events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return events.ErrStoreNotInitialized
	}

	stored := event.Clone()
	s.log = append(s.log, stored)
	s.byID[stored.ID] = stored
	return nil
}

// GetEvent implements events.Store.
func (s *MemoryStore) GetEvent(_ context.Context, id uuid.UUID) (*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, events.ErrStoreNotInitialized
	}

	event, ok := s.byID[id]
	if !ok {
		return nil, events.ErrEventNotFound
	}
	return event.Clone(), nil
}

// GetEvents implements events.Store.
func (s *MemoryStore) GetEvents(_ context.Context, eventType string, limit, offset int) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, events.ErrStoreNotInitialized
	}
	limit, offset = normalizePage(limit, offset)

	matched := s.filter(func(e *events.Event) bool {
		return eventType == "" || e.Type == eventType
	})
	reverseEvents(matched)

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// GetEventsByCorrelationID implements events.Store.
func (s *MemoryStore) GetEventsByCorrelationID(_ context.Context, correlationID string) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, events.ErrStoreNotInitialized
	}

	return s.filter(func(e *events.Event) bool {
		return e.Metadata.CorrelationID == correlationID
	}), nil
}

// GetEventsByDateRange implements events.Store.
func (s *MemoryStore) GetEventsByDateRange(_ context.Context, start, end time.Time, eventType string) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, events.ErrStoreNotInitialized
	}

	matched := s.filter(func(e *events.Event) bool {
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			return false
		}
		return eventType == "" || e.Type == eventType
	})
	reverseEvents(matched)
	return matched, nil
}

// GetUnprocessedEvents implements events.Store.
func (s *MemoryStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, events.ErrStoreNotInitialized
	}
	if limit < 1 {
		limit = 50
	}

	matched := s.filter(func(e *events.Event) bool {
		return !e.Processed
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// MarkEventAsProcessed implements events.Store.
func (s *MemoryStore) MarkEventAsProcessed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return events.ErrStoreNotInitialized
	}

	event, ok := s.byID[id]
	if !ok {
		return events.ErrEventNotFound
	}
	event.Processed = true
	return nil
}

// GetEventStats implements events.Store.
func (s *MemoryStore) GetEventStats(_ context.Context) (events.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := events.Stats{EventsByType: make(map[string]int64)}
	if !s.initialized {
		return stats, events.ErrStoreNotInitialized
	}

	for _, event := range s.log {
		stats.TotalEvents++
		stats.EventsByType[event.Type]++
		if event.Processed {
			stats.EventsByStatus.Processed++
		} else {
			stats.EventsByStatus.Unprocessed++
		}
	}

	recent := s.filter(func(*events.Event) bool { return true })
	reverseEvents(recent)
	if len(recent) > 10 {
		recent = recent[:10]
	}
	stats.RecentEvents = recent

	return stats, nil
}

// HealthCheck implements events.Store.
func (s *MemoryStore) HealthCheck(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return events.ErrStoreNotInitialized
	}
	return nil
}

// filter returns copies of matching events in creation order. Insertion
// order is the tiebreak for identical timestamps, which keeps pagination
// stable under concurrent appends.
func (s *MemoryStore) filter(keep func(*events.Event) bool) []*events.Event {
	var matched []*events.Event
	for _, event := range s.log {
		if keep(event) {
			matched = append(matched, event.Clone())
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched
}

func reverseEvents(list []*events.Event) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}

// Compile-time check that MemoryStore implements events.Store.
var _ events.Store = (*MemoryStore)(nil)
