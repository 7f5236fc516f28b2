// Package service provides the business logic of the administrative event
// surface: paginated queries, correlation chains, replay, and health.
package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"orderdesk_backend/internal/admin/transport"
	"orderdesk_backend/internal/events"
	"orderdesk_backend/platform/apperr"
	"orderdesk_backend/platform/logger"

	"github.com/google/uuid"
)

const defaultPageSize = 20

// Service exposes the event log and the bus registry for debugging,
// monitoring, and administrative replay.
type Service struct {
	bus   events.Bus
	store events.Store
	log   *logger.Logger
}

// New creates a new admin service.
func New(bus events.Bus, store events.Store, log *logger.Logger) *Service {
	return &Service{bus: bus, store: store, log: log}
}

// ListEvents returns one page of events, most recent first. hasMore follows
// the page-is-full convention: a final page of exactly `limit` items reports
// one more page that turns out empty.
func (s *Service) ListEvents(ctx context.Context, req transport.ListEventsRequest) (transport.EventListResponse, error) {
	if req.Type != "" && !events.IsValidType(req.Type) {
		return transport.EventListResponse{}, apperr.Validation("unknown event type: " + req.Type)
	}

	page, limit := normalizePage(req.Page, req.Limit)
	offset := (page - 1) * limit

	items, err := s.store.GetEvents(ctx, req.Type, limit, offset)
	if err != nil {
		return transport.EventListResponse{}, mapStoreErr(err, "admin.ListEvents")
	}

	return transport.EventListResponse{
		Items:   toResponses(items),
		Page:    page,
		Limit:   limit,
		HasMore: len(items) == limit,
	}, nil
}

// GetEvent returns one event by id.
func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (transport.EventResponse, error) {
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return transport.EventResponse{}, mapStoreErr(err, "admin.GetEvent")
	}
	return toResponse(event), nil
}

// GetEventsByCorrelationID returns the causal chain for one correlation
// root, ordered by creation time.
func (s *Service) GetEventsByCorrelationID(ctx context.Context, correlationID string) (transport.CorrelationResponse, error) {
	items, err := s.store.GetEventsByCorrelationID(ctx, correlationID)
	if err != nil {
		return transport.CorrelationResponse{}, mapStoreErr(err, "admin.GetEventsByCorrelationID")
	}
	return transport.CorrelationResponse{
		CorrelationID: correlationID,
		Items:         toResponses(items),
	}, nil
}

// GetEventsByDateRange returns events created within [start, end].
func (s *Service) GetEventsByDateRange(ctx context.Context, req transport.DateRangeRequest) ([]transport.EventResponse, error) {
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return nil, apperr.Validation("start must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return nil, apperr.Validation("end must be an RFC 3339 timestamp")
	}
	if end.Before(start) {
		return nil, apperr.Validation("end must not precede start")
	}
	if req.Type != "" && !events.IsValidType(req.Type) {
		return nil, apperr.Validation("unknown event type: " + req.Type)
	}

	items, err := s.store.GetEventsByDateRange(ctx, start, end, req.Type)
	if err != nil {
		return nil, mapStoreErr(err, "admin.GetEventsByDateRange")
	}
	return toResponses(items), nil
}

// GetUnprocessedEvents returns the oldest events not yet marked processed.
func (s *Service) GetUnprocessedEvents(ctx context.Context, limit int) ([]transport.EventResponse, error) {
	items, err := s.store.GetUnprocessedEvents(ctx, limit)
	if err != nil {
		return nil, mapStoreErr(err, "admin.GetUnprocessedEvents")
	}
	return toResponses(items), nil
}

// MarkEventAsProcessed flips one event's processed flag.
func (s *Service) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	if err := s.store.MarkEventAsProcessed(ctx, id); err != nil {
		return mapStoreErr(err, "admin.MarkEventAsProcessed")
	}
	return nil
}

// GetEventStats aggregates the event log.
func (s *Service) GetEventStats(ctx context.Context) (transport.StatsResponse, error) {
	stats, err := s.store.GetEventStats(ctx)
	if err != nil {
		return transport.StatsResponse{}, mapStoreErr(err, "admin.GetEventStats")
	}
	return transport.StatsResponse{
		TotalEvents:    stats.TotalEvents,
		EventsByType:   stats.EventsByType,
		EventsByStatus: stats.EventsByStatus,
		RecentEvents:   toResponses(stats.RecentEvents),
	}, nil
}

// ReplayEvent re-publishes an existing event's type and data as a brand-new
// event: fresh id, source "replay", causation pointing at the original, and
// the original's correlation root carried over so the chain stays connected.
func (s *Service) ReplayEvent(ctx context.Context, id uuid.UUID) (transport.EventResponse, error) {
	original, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return transport.EventResponse{}, mapStoreErr(err, "admin.ReplayEvent")
	}

	// Advisory: stored events may predate schema changes. Flag drift but
	// replay anyway; the operator asked for this exact event back.
	if ok, problems := events.ValidateData(original.Type, original.Data); !ok {
		s.log.Warn("replaying event with schema drift",
			"event_id", original.ID.String(),
			"event_type", original.Type,
			"problems", strings.Join(problems, "; "),
		)
	}

	replayed, err := s.bus.Publish(ctx, original.Type, original.Data, events.Metadata{
		Source:        events.SourceReplay,
		CorrelationID: original.Metadata.CorrelationID,
		CausationID:   original.ID.String(),
		UserID:        original.Metadata.UserID,
	})
	if err != nil {
		return transport.EventResponse{}, mapBusErr(err, "admin.ReplayEvent")
	}

	s.log.Info("event replayed",
		"original_id", original.ID.String(),
		"replay_id", replayed.ID.String(),
		"event_type", replayed.Type,
	)
	return toResponse(replayed), nil
}

// GetSubscribers lists the bus registry.
func (s *Service) GetSubscribers() transport.SubscriberListResponse {
	return transport.SubscriberListResponse{Items: s.bus.GetSubscribers()}
}

// GetEventTypes lists the closed type enumeration.
func (s *Service) GetEventTypes() transport.TypesResponse {
	types := events.KnownTypes()
	sort.Strings(types)
	return transport.TypesResponse{Types: types}
}

// GetSystemHealth aggregates bus, store, and channel health.
func (s *Service) GetSystemHealth(ctx context.Context) events.HealthStatus {
	return s.bus.HealthCheck(ctx)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	return page, limit
}

func mapStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, events.ErrEventNotFound):
		return apperr.NotFound("event not found").WithOp(op)
	case errors.Is(err, events.ErrStoreNotInitialized):
		return apperr.Unavailable("event store not initialized").WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "event store query failed", err).WithOp(op)
	}
}

func mapBusErr(err error, op string) error {
	if errors.Is(err, events.ErrNotInitialized) {
		return apperr.Unavailable("event bus not initialized").WithOp(op)
	}
	return apperr.Wrap(apperr.KindInternal, "event publish failed", err).WithOp(op)
}

func toResponse(event *events.Event) transport.EventResponse {
	return transport.EventResponse{
		ID:        event.ID,
		Type:      event.Type,
		Data:      event.Data,
		Metadata:  event.Metadata,
		Processed: event.Processed,
		CreatedAt: event.CreatedAt.Format(time.RFC3339Nano),
	}
}

func toResponses(items []*events.Event) []transport.EventResponse {
	responses := make([]transport.EventResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toResponse(item))
	}
	return responses
}
