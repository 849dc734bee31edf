package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/connexus-ai/convo-redact/internal/handler"
	"github.com/connexus-ai/convo-redact/internal/middleware"
	"github.com/connexus-ai/convo-redact/internal/service"
)

// UploaderDependencies holds everything the Uploader's router needs.
type UploaderDependencies struct {
	Uploader    *service.Uploader
	BearerToken string
	Version     string
	Metrics     *middleware.Metrics
	MetricsReg  *prometheus.Registry
	Deps        map[string]handler.Pinger
}

// NewUploaderRouter builds the Uploader's chi mux: the archival bucket's
// object-created trigger (spec.md §4.4, §6).
func NewUploaderRouter(deps *UploaderDependencies) *chi.Mux {
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
		r.Post("/object-created", handler.ObjectCreated(deps.Uploader))
	})

	r.NotFound(handler.NotFound)
	return r
}
