// Package metrics provides Prometheus metrics export for the pipeline subsystems.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "automl"

// PrometheusExporter exports pipeline metrics in Prometheus format. It implements the
// Recorder interfaces of the generation, acquire and pipeline packages.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Generation metrics
	generationResults  *prometheus.CounterVec
	generationAttempts *prometheus.CounterVec

	// Dataset metrics
	acquisitions *prometheus.CounterVec
	tierFailures *prometheus.CounterVec

	// Pipeline metrics
	pipelineRuns   *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	pipelineActive prometheus.Gauge
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
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.generationResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_results_total",
			Help:      "Generation calls by the tier that produced the text",
		},
		[]string{"tier"},
	)

	e.generationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Individual backend invocations by outcome",
		},
		[]string{"backend", "outcome"},
	)

	e.acquisitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_acquisitions_total",
			Help:      "Dataset acquisitions by the tier that supplied the record",
		},
		[]string{"tier"},
	)

	e.tierFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_tier_failures_total",
			Help:      "Acquisition tiers that failed and were degraded past",
		},
		[]string{"tier"},
	)

	e.pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by status (ok, degraded, invalid)",
		},
		[]string{"status"},
	)

	e.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_seconds",
			Help:      "Pipeline stage latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)

	e.pipelineActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_active_runs",
			Help:      "Number of pipeline runs in flight",
		},
	)

	registry.MustRegister(
		e.generationResults,
		e.generationAttempts,
		e.acquisitions,
		e.tierFailures,
		e.pipelineRuns,
		e.stageLatency,
		e.pipelineActive,
	)

	return e
}

// RecordGenerationAttempt records one backend invocation.
func (e *PrometheusExporter) RecordGenerationAttempt(backend string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	e.generationAttempts.WithLabelValues(backend, outcome).Inc()
}

// RecordGenerationResult records the tier of a finished generation call.
func (e *PrometheusExporter) RecordGenerationResult(tier string) {
	e.generationResults.WithLabelValues(tier).Inc()
}

// RecordAcquisition records the tier that supplied a dataset.
func (e *PrometheusExporter) RecordAcquisition(tier string) {
	e.acquisitions.WithLabelValues(tier).Inc()
}

// RecordTierFailure records a failed acquisition tier.
func (e *PrometheusExporter) RecordTierFailure(tier string) {
	e.tierFailures.WithLabelValues(tier).Inc()
}

// RecordPipelineRun records a finished pipeline run.
func (e *PrometheusExporter) RecordPipelineRun(status string) {
	e.pipelineRuns.WithLabelValues(status).Inc()
}

// RecordStage records the latency of one pipeline stage.
func (e *PrometheusExporter) RecordStage(stage string, latency time.Duration) {
	e.stageLatency.WithLabelValues(stage).Observe(latency.Seconds())
}

// RunStarted increments the in-flight gauge; call RunFinished when done.
func (e *PrometheusExporter) RunStarted() {
	e.pipelineActive.Inc()
}

// RunFinished decrements the in-flight gauge.
func (e *PrometheusExporter) RunFinished() {
	e.pipelineActive.Dec()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
