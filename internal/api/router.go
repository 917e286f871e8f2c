package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	apiContext "hiveroadmap/internal/api/context"
	"hiveroadmap/internal/api/handlers"
	"hiveroadmap/internal/api/middleware"
	"hiveroadmap/internal/pkg/errors"
)

type Dependencies struct {
	RoadmapHandler *handlers.RoadmapHandler
	WebhookHandler *handlers.WebhookHandler
	HealthHandler  *handlers.HealthHandler
	MetricsHandler *handlers.MetricsHandler
	RateLimiter    *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panicked")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
	}

	// Operational endpoints
	router.GET("/health", chain(deps.HealthHandler.Check, middleware.InstrumentPath("/health")))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	// Middleware references
	rl := deps.RateLimiter
	api := func(path string, handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
		mws := append([]func(http.HandlerFunc) http.HandlerFunc{
			middleware.InstrumentPath(path),
			rl.RateLimit(middleware.GroupGlobal),
		}, middlewares...)
		return chain(handler, mws...)
	}

	// Roadmap
	rh := deps.RoadmapHandler
	router.GET("/api/v1/roadmap/organization", api("/api/v1/roadmap/organization", rh.GetOrganization))
	router.GET("/api/v1/roadmap/meta", api("/api/v1/roadmap/meta", rh.GetMeta))
	router.GET("/api/v1/roadmap/statuses", api("/api/v1/roadmap/statuses", rh.ListStatuses))
	router.GET("/api/v1/roadmap/status/:statusId/items", api("/api/v1/roadmap/status/:statusId/items", rh.GetStatusItems))
	router.GET("/api/v1/roadmap/aggregate",
		api("/api/v1/roadmap/aggregate", rh.GetAggregate, rl.RateLimit(middleware.GroupRoadmap)))
	router.GET("/api/v1/roadmap/item/:id", api("/api/v1/roadmap/item/:id", rh.GetItem))
	router.GET("/api/v1/roadmap/slug/:slug", api("/api/v1/roadmap/slug/:slug", rh.GetSlugURL))

	// Webhooks
	wh := deps.WebhookHandler
	router.GET("/api/v1/webhooks", api("/api/v1/webhooks", wh.List))
	router.POST("/api/v1/webhooks",
		api("/api/v1/webhooks", wh.Create, rl.RateLimit(middleware.GroupWebhook)))
	router.GET("/api/v1/webhooks/:id", api("/api/v1/webhooks/:id", wh.Get))
	router.DELETE("/api/v1/webhooks/:id",
		api("/api/v1/webhooks/:id", wh.Delete, rl.RateLimit(middleware.GroupWebhook)))
	router.POST("/api/v1/webhooks/:id/test",
		api("/api/v1/webhooks/:id/test", wh.Test, rl.RateLimit(middleware.GroupWebhook)))
	router.GET("/api/v1/webhooks/:id/deliveries", api("/api/v1/webhooks/:id/deliveries", wh.ListDeliveries))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
