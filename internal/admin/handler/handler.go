package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderdesk_backend/internal/admin/service"
	"orderdesk_backend/internal/admin/transport"
	"orderdesk_backend/platform/httpkit"
	"orderdesk_backend/platform/validator"
)

// Handler handles HTTP requests for the administrative event surface.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid event ID"
)

// New creates a new admin events handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListEvents retrieves a page of events, optionally filtered by type.
// GET /api/v1/admin/events
func (h *Handler) ListEvents(c *gin.Context) {
	var req transport.ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ListEvents(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetEvent retrieves one event by id.
// GET /api/v1/admin/events/:id
func (h *Handler) GetEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetEvent(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetEventsByCorrelationID retrieves the causal chain of a correlation root.
// GET /api/v1/admin/events/correlation/:correlationId
func (h *Handler) GetEventsByCorrelationID(c *gin.Context) {
	correlationID := c.Param("correlationId")
	if correlationID == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.GetEventsByCorrelationID(c.Request.Context(), correlationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetEventsByDateRange retrieves events created within a time window.
// GET /api/v1/admin/events/range
func (h *Handler) GetEventsByDateRange(c *gin.Context) {
	var req transport.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.GetEventsByDateRange(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

// GetUnprocessedEvents retrieves the oldest unprocessed events.
// GET /api/v1/admin/events/unprocessed
func (h *Handler) GetUnprocessedEvents(c *gin.Context) {
	var req transport.UnprocessedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.GetUnprocessedEvents(c.Request.Context(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

// MarkEventAsProcessed marks one event processed.
// POST /api/v1/admin/events/:id/processed
func (h *Handler) MarkEventAsProcessed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.MarkEventAsProcessed(c.Request.Context(), id)) {
		return
	}
	httpkit.OK(c, gin.H{"id": id, "processed": true})
}

// GetEventStats retrieves aggregate statistics of the event log.
// GET /api/v1/admin/events/stats
func (h *Handler) GetEventStats(c *gin.Context) {
	result, err := h.svc.GetEventStats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ReplayEvent re-publishes an existing event as a new one.
// POST /api/v1/admin/events/:id/replay
func (h *Handler) ReplayEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.ReplayEvent(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GetSubscribers lists the current bus registry.
// GET /api/v1/admin/events/subscribers
func (h *Handler) GetSubscribers(c *gin.Context) {
	httpkit.OK(c, h.svc.GetSubscribers())
}

// GetEventTypes lists the recognized event types.
// GET /api/v1/admin/events/types
func (h *Handler) GetEventTypes(c *gin.Context) {
	httpkit.OK(c, h.svc.GetEventTypes())
}

// GetSystemHealth reports the aggregate event system health.
// GET /api/v1/admin/events/health
func (h *Handler) GetSystemHealth(c *gin.Context) {
	status := h.svc.GetSystemHealth(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	httpkit.JSON(c, code, status)
}
