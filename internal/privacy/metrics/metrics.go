// Package metrics provides Prometheus instrumentation for privacy
// housekeeping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds privacy-related Prometheus collectors.
type Metrics struct {
	Sweeps         prometheus.Counter
	SweptArtifacts prometheus.Counter
	SweepErrors    prometheus.Counter
}

// New creates and registers privacy metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		Sweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_retention_sweeps_total",
			Help: "Retention sweeps executed.",
		}),
		SweptArtifacts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_retention_swept_artifacts_total",
			Help: "Artifacts removed by retention sweeps.",
		}),
		SweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_retention_sweep_errors_total",
			Help: "Artifacts a sweep failed to remove.",
		}),
	}
}

// IncrementSweeps records a completed sweep.
func (m *Metrics) IncrementSweeps() {
	if m != nil {
		m.Sweeps.Inc()
	}
}

// AddSweptArtifacts records removed artifacts.
func (m *Metrics) AddSweptArtifacts(n int) {
	if m != nil && n > 0 {
		m.SweptArtifacts.Add(float64(n))
	}
}

// AddSweepErrors records failed removals.
func (m *Metrics) AddSweepErrors(n int) {
	if m != nil && n > 0 {
		m.SweepErrors.Add(float64(n))
	}
}
