package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/connexus-ai/convo-redact/internal/handler"
	"github.com/connexus-ai/convo-redact/internal/middleware"
	"github.com/connexus-ai/convo-redact/internal/service"
)

// AggregatorDependencies holds everything the Aggregator's router needs.
type AggregatorDependencies struct {
	Aggregator  *service.Aggregator
	BearerToken string
	Version     string
	Metrics     *middleware.Metrics
	MetricsReg  *prometheus.Registry
	Deps        map[string]handler.Pinger
}

// NewAggregatorRouter builds the Aggregator's chi mux: the redacted and
// lifecycle bus's push subscription deliveries (spec.md §4.3, §6).
func NewAggregatorRouter(deps *AggregatorDependencies) *chi.Mux {
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
		r.Post("/redacted-transcripts", handler.RedactedTranscripts(deps.Aggregator))
		r.Post("/conversation-ended", handler.ConversationEnded(deps.Aggregator))
	})

	r.NotFound(handler.NotFound)
	return r
}
