// Package metrics provides Prometheus metrics export for the recommendation
// engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wellspring-io/wellspring/engine"
)

// Exporter implements the engine metrics sink on a Prometheus registry.
type Exporter struct {
	registry *prometheus.Registry

	interactions    *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	learningPasses  *prometheus.CounterVec
	learningLatency prometheus.Histogram
}

var _ engine.Metrics = (*Exporter)(nil)

// NewExporter creates an exporter. A nil registry creates a private one.
func NewExporter(registry *prometheus.Registry) *Exporter {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{
		registry: registry,
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wellspring_interactions_tracked_total",
			Help: "Interactions recorded by the engine.",
		}, []string{"type"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wellspring_recommendations_generated_total",
			Help: "Recommendations produced, by family.",
		}, []string{"family"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wellspring_adaptation_cache_hits_total",
			Help: "Adaptation cache lookups that found a live entry.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wellspring_adaptation_cache_misses_total",
			Help: "Adaptation cache lookups that missed or found an expired entry.",
		}),
		learningPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wellspring_learning_passes_total",
			Help: "Background learning passes, by outcome.",
		}, []string{"outcome"}),
		learningLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wellspring_learning_pass_duration_seconds",
			Help:    "Duration of background learning passes.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
	}

	registry.MustRegister(
		e.interactions,
		e.recommendations,
		e.cacheHits,
		e.cacheMisses,
		e.learningPasses,
		e.learningLatency,
	)
	return e
}

func (e *Exporter) InteractionTracked(interactionType string) {
	e.interactions.WithLabelValues(interactionType).Inc()
}

func (e *Exporter) RecommendationsGenerated(family string, count int) {
	e.recommendations.WithLabelValues(family).Add(float64(count))
}

func (e *Exporter) AdaptationCache(hit bool) {
	if hit {
		e.cacheHits.Inc()
	} else {
		e.cacheMisses.Inc()
	}
}

func (e *Exporter) LearningPass(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.learningPasses.WithLabelValues(outcome).Inc()
	e.learningLatency.Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving the registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
