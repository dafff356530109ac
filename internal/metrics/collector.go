// Package metrics provides internal Prometheus metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the pipeline's Prometheus metrics.
type Collector struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	repairIterations prometheus.Histogram

	completionsTotal   *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	tokensUsed         *prometheus.CounterVec

	violationsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the collectors under namespace on the default
// registry.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs by final status",
		},
		[]string{"status"},
	)

	c.runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	c.repairIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_repair_iterations",
			Help:      "Repair iterations consumed per run",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)

	c.completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_completions_total",
			Help:      "Total number of LLM completion calls",
		},
		[]string{"provider", "kind", "status"},
	)

	c.completionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_completion_duration_seconds",
			Help:      "LLM completion call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "kind"},
	)

	c.tokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "type"},
	)

	c.violationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_violations_total",
			Help:      "Violations found per checking stage and rule",
		},
		[]string{"stage", "rule", "severity"},
	)

	return c
}

// RecordRun records a finished pipeline run.
func (c *Collector) RecordRun(status string, iterations int, duration time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	c.repairIterations.Observe(float64(iterations))
}

// RecordCompletion records a single LLM call.
func (c *Collector) RecordCompletion(provider, kind, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.completionsTotal.WithLabelValues(provider, kind, status).Inc()
	c.completionDuration.WithLabelValues(provider, kind).Observe(duration.Seconds())
}

// RecordTokens records prompt and completion token usage.
func (c *Collector) RecordTokens(provider string, prompt, completion int) {
	if c == nil {
		return
	}
	c.tokensUsed.WithLabelValues(provider, "prompt").Add(float64(prompt))
	c.tokensUsed.WithLabelValues(provider, "completion").Add(float64(completion))
}

// RecordViolation counts one checking finding.
func (c *Collector) RecordViolation(stage, rule, severity string) {
	if c == nil {
		return
	}
	if rule == "" {
		rule = "structural"
	}
	c.violationsTotal.WithLabelValues(stage, rule, severity).Inc()
}
