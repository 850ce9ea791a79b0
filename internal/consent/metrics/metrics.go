// Package metrics provides Prometheus instrumentation for the consent
// state machine and the withdrawal cascade.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds consent-related Prometheus collectors.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	Cascades        prometheus.Counter
	CascadeFailures prometheus.Counter
	CascadeItems    *prometheus.CounterVec
}

// New creates and registers consent metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_consent_transitions_total",
			Help: "Consent state transitions by from and to state.",
		}, []string{"from", "to"}),
		Cascades: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_consent_cascades_total",
			Help: "Withdrawal cascades executed.",
		}),
		CascadeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_consent_cascade_failures_total",
			Help: "Withdrawal cascades that did not fully complete.",
		}),
		CascadeItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_consent_cascade_items_total",
			Help: "Artifacts removed by cascades, by cleanup area.",
		}, []string{"area"}),
	}
}

// IncrementTransition records one consent state change.
func (m *Metrics) IncrementTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// IncrementCascade records one cascade run.
func (m *Metrics) IncrementCascade(failed bool) {
	if m == nil {
		return
	}
	m.Cascades.Inc()
	if failed {
		m.CascadeFailures.Inc()
	}
}

// AddCascadeItems records artifacts removed in one cleanup area.
func (m *Metrics) AddCascadeItems(area string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CascadeItems.WithLabelValues(area).Add(float64(n))
}
