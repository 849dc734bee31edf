package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/connexus-ai/convo-redact/internal/handler"
	"github.com/connexus-ai/convo-redact/internal/middleware"
	"github.com/connexus-ai/convo-redact/internal/service"
)

// RedactorDependencies holds everything the Redactor's router needs.
type RedactorDependencies struct {
	Redactor    *service.Redactor
	BearerToken string
	Version     string
	Metrics     *middleware.Metrics
	MetricsReg  *prometheus.Registry
	Deps        map[string]handler.Pinger
}

// NewRedactorRouter builds the Redactor's chi mux: the two role-specific
// endpoints consumed by the Dispatcher (spec.md §4.2, §6).
func NewRedactorRouter(deps *RedactorDependencies) *chi.Mux {
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
		r.Post("/handle-agent-utterance", handler.HandleAgentUtterance(deps.Redactor))
		r.Post("/handle-customer-utterance", handler.HandleCustomerUtterance(deps.Redactor))
	})

	r.NotFound(handler.NotFound)
	return r
}
