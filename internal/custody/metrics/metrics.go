// Package metrics provides Prometheus instrumentation for clinic key
// custody.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds custody-related Prometheus collectors.
type Metrics struct {
	Generated  *prometheus.CounterVec
	Rotations  prometheus.Counter
	Accesses   *prometheus.CounterVec
	Recoveries prometheus.Counter
}

// New creates and registers custody metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		Generated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_clinic_keys_generated_total",
			Help: "Clinic keys generated, by key type.",
		}, []string{"key_type"}),
		Rotations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_clinic_key_rotations_total",
			Help: "Completed clinic key rotations.",
		}),
		Accesses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_clinic_key_accesses_total",
			Help: "Clinic private key access attempts, by outcome.",
		}, []string{"outcome"}),
		Recoveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_clinic_key_recoveries_total",
			Help: "Completed clinic key recovery procedures.",
		}),
	}
}

// IncrementGenerated records one generated clinic key.
func (m *Metrics) IncrementGenerated(keyType string) {
	if m != nil {
		m.Generated.WithLabelValues(keyType).Inc()
	}
}

// IncrementRotation records one completed rotation.
func (m *Metrics) IncrementRotation() {
	if m != nil {
		m.Rotations.Inc()
	}
}

// IncrementAccess records one access attempt.
func (m *Metrics) IncrementAccess(success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.Accesses.WithLabelValues(outcome).Inc()
}

// IncrementRecovery records one completed recovery procedure.
func (m *Metrics) IncrementRecovery() {
	if m != nil {
		m.Recoveries.Inc()
	}
}
