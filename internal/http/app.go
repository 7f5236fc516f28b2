// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"orderdesk_backend/internal/events"
	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/logger"
)

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the HTTP router configuration.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// EventBus is the event bus, used for the aggregate health endpoint.
	EventBus events.Bus
	// Modules contains all HTTP-facing modules.
	Modules []Module
}
