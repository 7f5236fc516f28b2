// Package admin provides the administrative event surface module: the
// pull-based query API over the event log plus replay and introspection.
package admin

import (
	"orderdesk_backend/internal/admin/handler"
	"orderdesk_backend/internal/admin/service"
	"orderdesk_backend/internal/events"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/platform/logger"
	"orderdesk_backend/platform/validator"
)

// Module is the admin events module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the admin module.
func NewModule(bus events.Bus, store events.Store, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(bus, store, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "admin"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts admin event routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/events")

	group.GET("", m.handler.ListEvents)
	group.GET("/stats", m.handler.GetEventStats)
	group.GET("/types", m.handler.GetEventTypes)
	group.GET("/health", m.handler.GetSystemHealth)
	group.GET("/subscribers", m.handler.GetSubscribers)
	group.GET("/unprocessed", m.handler.GetUnprocessedEvents)
	group.GET("/range", m.handler.GetEventsByDateRange)
	group.GET("/correlation/:correlationId", m.handler.GetEventsByCorrelationID)
	group.GET("/:id", m.handler.GetEvent)
	group.POST("/:id/processed", m.handler.MarkEventAsProcessed)
	group.POST("/:id/replay", ctx.ReplayRateLimiter.RateLimit(), m.handler.ReplayEvent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
