package engine

import "time"

// Metrics receives engine observations. The default implementation discards
// everything; the metrics package provides a Prometheus-backed one.
type Metrics interface {
	InteractionTracked(interactionType string)
	RecommendationsGenerated(family string, count int)
	AdaptationCache(hit bool)
	LearningPass(duration time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) InteractionTracked(string)                {}
func (noopMetrics) RecommendationsGenerated(string, int)     {}
func (noopMetrics) AdaptationCache(bool)                     {}
func (noopMetrics) LearningPass(time.Duration, error)        {}

// NoopMetrics returns a Metrics sink that discards all observations.
func NoopMetrics() Metrics {
	return noopMetrics{}
}
