// Package metrics exposes the runner's Prometheus instrumentation. This
// is purely observational: the registry is only served when a metrics
// address is configured, so the runner's single-process,
// no-network-service default (spec §5) is unaffected.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles the counters and histograms the runner loop updates
// at the same point each ledger entry is appended.
type Registry struct {
	TasksTotal       *prometheus.CounterVec
	AttemptDuration  *prometheus.HistogramVec
	registry         *prometheus.Registry
}

// New creates a fresh, unregistered-with-default Prometheus registry so
// multiple runner instances in the same test process don't collide on
// the global default registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		TasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrunner_tasks_total",
			Help: "Count of tasks by terminal classification.",
		}, []string{"status"}),
		AttemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskrunner_attempt_duration_seconds",
			Help:    "Duration of a single executor attempt.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"status"}),
	}
}

// Gatherer exposes the underlying registry for an HTTP /metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordDone increments the done counter and observes the attempt
// duration for a successful attempt.
func (r *Registry) RecordDone(durationSeconds float64) {
	r.TasksTotal.WithLabelValues("done").Inc()
	r.AttemptDuration.WithLabelValues("done").Observe(durationSeconds)
}

// RecordFailed increments the failed counter and observes the attempt
// duration for a retried (not yet blocked) failure.
func (r *Registry) RecordFailed(durationSeconds float64) {
	r.TasksTotal.WithLabelValues("failed").Inc()
	r.AttemptDuration.WithLabelValues("failed").Observe(durationSeconds)
}

// RecordBlocked increments the blocked counter and observes the attempt
// duration for the attempt that exhausted retries.
func (r *Registry) RecordBlocked(durationSeconds float64) {
	r.TasksTotal.WithLabelValues("blocked").Inc()
	r.AttemptDuration.WithLabelValues("blocked").Observe(durationSeconds)
}
