package routes

import (
	"net/http"

	"github.com/costnav/healthcare-cost-navigator/internal/api/handlers"
	"github.com/costnav/healthcare-cost-navigator/internal/api/middleware"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	providerHandler *handlers.ProviderHandler
	askHandler      *handlers.AskHandler
	statsHandler    *handlers.StatsHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	providerHandler *handlers.ProviderHandler,
	askHandler *handlers.AskHandler,
	statsHandler *handlers.StatsHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		providerHandler: providerHandler,
		askHandler:      askHandler,
		statsHandler:    statsHandler,
		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.statsHandler.Health)
	r.mux.HandleFunc("GET /stats", r.statsHandler.Stats)

	r.mux.HandleFunc("GET /providers", r.providerHandler.SearchProviders)

	r.mux.HandleFunc("POST /ask", r.askHandler.Ask)
	r.mux.HandleFunc("GET /ask/examples", r.askHandler.Examples)

	// Middleware applies in reverse order (last wraps first).
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	return handler
}
