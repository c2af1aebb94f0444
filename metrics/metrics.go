// Package metrics exposes Prometheus collectors for the LLM client and the
// generation and validation pipelines.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service registers.
type Metrics struct {
	registry *prometheus.Registry

	llmCalls    *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec

	generationRuns     *prometheus.CounterVec
	generationSections *prometheus.CounterVec

	validations *prometheus.CounterVec
	violations  prometheus.Histogram
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		llmCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftforge",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls by provider, model, and outcome.",
		}, []string{"provider", "model", "outcome"}),
		llmDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "draftforge",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call latency by provider and model.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider", "model"}),
		generationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftforge",
			Subsystem: "generation",
			Name:      "runs_total",
			Help:      "Generation runs by outcome.",
		}, []string{"outcome"}),
		generationSections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftforge",
			Subsystem: "generation",
			Name:      "sections_total",
			Help:      "Generated sections by outcome.",
		}, []string{"outcome"}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draftforge",
			Subsystem: "validation",
			Name:      "checks_total",
			Help:      "Validation checks by outcome.",
		}, []string{"outcome"}),
		violations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "draftforge",
			Subsystem: "validation",
			Name:      "violations_per_check",
			Help:      "Violations reported per validation check.",
			Buckets:   []float64{0, 1, 2, 5, 10, 15},
		}),
	}
}

// ObserveCall implements llm.Recorder.
func (m *Metrics) ObserveCall(provider, modelName string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.llmCalls.WithLabelValues(provider, modelName, outcome).Inc()
	m.llmDuration.WithLabelValues(provider, modelName).Observe(duration.Seconds())
}

// ObserveGenerationRun records one finished generation run.
func (m *Metrics) ObserveGenerationRun(failed bool) {
	outcome := "complete"
	if failed {
		outcome = "error"
	}
	m.generationRuns.WithLabelValues(outcome).Inc()
}

// ObserveSection records one attempted section.
func (m *Metrics) ObserveSection(failed bool) {
	outcome := "complete"
	if failed {
		outcome = "error"
	}
	m.generationSections.WithLabelValues(outcome).Inc()
}

// ObserveValidation records one validation check.
func (m *Metrics) ObserveValidation(passed bool, violationCount int) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	m.validations.WithLabelValues(outcome).Inc()
	m.violations.Observe(float64(violationCount))
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
