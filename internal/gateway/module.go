package gateway

import (
	"context"
	"fmt"

	"orderdesk_backend/internal/events"
	apphttp "orderdesk_backend/internal/http"
	"orderdesk_backend/platform/logger"
)

// Module is the SSE gateway module implementing http.Module.
type Module struct {
	service *Service
	bus     events.Bus
}

// NewModule creates the gateway module.
func NewModule(bus events.Bus, log *logger.Logger) *Module {
	return &Module{
		service: New(log),
		bus:     bus,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "gateway"
}

// RegisterHandlers subscribes the gateway to every event type. Fan-out to
// connected clients is non-blocking, so no retry semantics are requested.
func (m *Module) RegisterHandlers() error {
	_, err := m.bus.Subscribe(events.WildcardType, events.HandlerFunc(
		func(_ context.Context, event *events.Event) error {
			m.service.Fanout(event)
			return nil
		},
	), events.SubscribeOptions{})
	if err != nil {
		return fmt.Errorf("subscribe gateway: %w", err)
	}
	return nil
}

// RegisterRoutes mounts the stream endpoint on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/events/stream", m.service.Stream)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
