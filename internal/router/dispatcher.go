// Package router assembles the chi mux for each of the four pipeline
// services, wiring the ambient middleware stack around their HTTP surface
// (spec.md §6).
package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/connexus-ai/convo-redact/internal/handler"
	"github.com/connexus-ai/convo-redact/internal/middleware"
	"github.com/connexus-ai/convo-redact/internal/service"
)

// DispatcherDependencies holds everything the Dispatcher's router needs.
type DispatcherDependencies struct {
	Dispatcher  *service.Dispatcher
	BearerToken string
	Version     string
	Metrics     *middleware.Metrics
	MetricsReg  *prometheus.Registry
	Deps        map[string]handler.Pinger
}

// NewDispatcherRouter builds the Dispatcher's chi mux: POST /raw-utterances
// is the raw bus's push subscription delivery (spec.md §4.1).
func NewDispatcherRouter(deps *DispatcherDependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logging)
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/healthz", handler.Health(deps.Deps, deps.Version))
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(deps.BearerToken))
		r.Post("/raw-utterances", handler.RawUtterances(deps.Dispatcher))
	})

	r.NotFound(handler.NotFound)
	return r
}
