// Package metrics provides Prometheus metrics export for the AI core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports orchestration and query-engine metrics in Prometheus
// format. It implements orchestrator.Observer.
type Exporter struct {
	registry *prometheus.Registry

	// Provider orchestration metrics
	providerAttempts *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec

	// Question handling metrics
	questions       *prometheus.CounterVec
	questionLatency *prometheus.HistogramVec

	// Query engine metrics
	queryExecutions *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}
}

// NewExporter creates a new Prometheus metrics exporter.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.providerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "ai",
			Name:      "provider_attempts_total",
			Help:      "Total provider call attempts by outcome",
		},
		[]string{"provider", "outcome"},
	)

	e.fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "ai",
			Name:      "provider_fallbacks_total",
			Help:      "Total calls served by a non-primary provider",
		},
		[]string{"provider"},
	)

	e.questions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "ai",
			Name:      "questions_total",
			Help:      "Total questions handled by kind and status",
		},
		[]string{"kind", "mode", "status"},
	)

	e.questionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Subsystem: "ai",
			Name:      "question_latency_seconds",
			Help:      "End-to-end question latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"kind"},
	)

	e.queryExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Subsystem: "ai",
			Name:      "query_executions_total",
			Help:      "Total query-engine executions by aggregation and status",
		},
		[]string{"aggregation", "status"},
	)

	registry.MustRegister(
		e.providerAttempts,
		e.fallbacks,
		e.questions,
		e.questionLatency,
		e.queryExecutions,
	)

	return e
}

// RecordAttempt counts one provider call attempt.
func (e *Exporter) RecordAttempt(provider, outcome string) {
	e.providerAttempts.WithLabelValues(provider, outcome).Inc()
}

// RecordFallback counts a call served by a non-primary provider.
func (e *Exporter) RecordFallback(provider string) {
	e.fallbacks.WithLabelValues(provider).Inc()
}

// RecordQuestion counts one handled question and its latency.
func (e *Exporter) RecordQuestion(kind, mode, status string, duration time.Duration) {
	e.questions.WithLabelValues(kind, mode, status).Inc()
	e.questionLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordQueryExecution counts one query-engine execution.
func (e *Exporter) RecordQueryExecution(aggregation, status string) {
	e.queryExecutions.WithLabelValues(aggregation, status).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
