// Package metrics exposes Prometheus counters for the assistant engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/binbuddy/internal/assistant"
	"github.com/kalambet/binbuddy/internal/knowledge"
)

// Recorder owns a private registry so several engines (and tests) never
// collide on metric registration.
type Recorder struct {
	registry *prometheus.Registry

	replies       *prometheus.CounterVec
	escalations   *prometheus.CounterVec
	matchScore    prometheus.Histogram
	storeFailures *prometheus.CounterVec
}

// NewRecorder creates and registers all collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binbuddy_replies_total",
				Help: "Replies produced, by outcome and environment",
			},
			[]string{"outcome", "environment"},
		),
		escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binbuddy_escalations_total",
				Help: "Messages handed to human support, by topic",
			},
			[]string{"topic"},
		),
		matchScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "binbuddy_match_score",
				Help:    "Knowledge-base scores of answered messages",
				Buckets: []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.99, 1.0},
			},
		),
		storeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binbuddy_store_write_failures_total",
				Help: "Behavior store writes that failed and were skipped",
			},
			[]string{"op"},
		),
	}
	r.registry.MustRegister(
		r.replies,
		r.escalations,
		r.matchScore,
		r.storeFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveReply implements assistant.Observer.
func (r *Recorder) ObserveReply(env knowledge.Environment, reply assistant.Reply) {
	r.replies.WithLabelValues(string(reply.Outcome), string(env)).Inc()
	switch reply.Outcome {
	case assistant.Escalated:
		r.escalations.WithLabelValues(reply.Topic).Inc()
	case assistant.Answered:
		r.matchScore.Observe(reply.Score)
	}
}

// StoreWriteFailed matches the storage write-failure hook signature.
func (r *Recorder) StoreWriteFailed(op string, _ error) {
	r.storeFailures.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
