// Package http provides HTTP server infrastructure including the Module interface
// that all HTTP-facing modules must implement for route registration.
package http

import (
	"orderdesk_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a component that can register its HTTP routes.
// Each module implements this interface to encapsulate its own route setup,
// keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	// The RouterContext provides access to shared middleware and configuration.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
// This avoids passing many parameters to each module's RegisterRoutes method.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Admin is the admin route group under /api/v1/admin.
	Admin *gin.RouterGroup
	// ReplayRateLimiter is the stricter rate limiter for replay routes.
	ReplayRateLimiter *httpkit.ReplayRateLimiter
}
