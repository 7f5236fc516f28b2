package transport

import (
	"orderdesk_backend/internal/events"

	"github.com/google/uuid"
)

// ListEventsRequest contains filters for the paginated event list.
type ListEventsRequest struct {
	Type  string `form:"type" validate:"omitempty,min=1"`
	Page  int    `form:"page" validate:"omitempty,min=1"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

// DateRangeRequest contains the bounds for a date-range query.
type DateRangeRequest struct {
	Start string `form:"start" validate:"required"`
	End   string `form:"end" validate:"required"`
	Type  string `form:"type" validate:"omitempty,min=1"`
}

// UnprocessedRequest bounds the unprocessed batch size.
type UnprocessedRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}

// EventResponse represents one event in API responses.
type EventResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Data      map[string]any  `json:"data"`
	Metadata  events.Metadata `json:"metadata"`
	Processed bool            `json:"processed"`
	CreatedAt string          `json:"createdAt"`
}

// EventListResponse wraps a paginated list of events.
type EventListResponse struct {
	Items   []EventResponse `json:"items"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	HasMore bool            `json:"hasMore"`
}

// CorrelationResponse wraps an ordered causal chain of events.
type CorrelationResponse struct {
	CorrelationID string          `json:"correlationId"`
	Items         []EventResponse `json:"items"`
}

// StatsResponse mirrors the store's aggregate view.
type StatsResponse struct {
	TotalEvents    int64               `json:"totalEvents"`
	EventsByType   map[string]int64    `json:"eventsByType"`
	EventsByStatus events.StatusCounts `json:"eventsByStatus"`
	RecentEvents   []EventResponse     `json:"recentEvents"`
}

// SubscriberListResponse wraps the current subscriber registry.
type SubscriberListResponse struct {
	Items []events.SubscriberInfo `json:"items"`
}

// TypesResponse lists the closed event type enumeration.
type TypesResponse struct {
	Types []string `json:"types"`
}
