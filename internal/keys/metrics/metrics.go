package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for key lifecycle management.
type Metrics struct {
	// Completed rotations by purpose and reason
	Rotations *prometheus.CounterVec

	// Key material reads by purpose
	Accesses *prometheus.CounterVec

	// Keys provisioned from scratch by purpose
	Provisioned *prometheus.CounterVec

	// Retired keys removed by the retention sweep
	Swept prometheus.Counter

	// Hazards detected by kind and recoveries completed
	HazardsDetected  *prometheus.CounterVec
	HazardRecoveries prometheus.Counter
}

// New creates a new Metrics instance with all key lifecycle metrics registered.
func New() *Metrics {
	return &Metrics{
		Rotations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_key_rotations_total",
			Help: "Total key rotations by purpose and reason",
		}, []string{"purpose", "reason"}),

		Accesses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_key_accesses_total",
			Help: "Total key material reads by purpose",
		}, []string{"purpose"}),

		Provisioned: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_keys_provisioned_total",
			Help: "Total keys provisioned from scratch by purpose",
		}, []string{"purpose"}),

		Swept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_keys_swept_total",
			Help: "Total retired keys removed after retention expiry",
		}),

		HazardsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_keystore_hazards_total",
			Help: "Total keystore hazards detected by kind",
		}, []string{"kind"}),

		HazardRecoveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_keystore_hazard_recoveries_total",
			Help: "Total completed hazard recovery procedures",
		}),
	}
}

// IncrementRotation records a completed rotation.
func (m *Metrics) IncrementRotation(purpose, reason string) {
	if m != nil {
		m.Rotations.WithLabelValues(purpose, reason).Inc()
	}
}

// IncrementAccess records a key material read.
func (m *Metrics) IncrementAccess(purpose string) {
	if m != nil {
		m.Accesses.WithLabelValues(purpose).Inc()
	}
}

// IncrementProvisioned records a from-scratch provisioning.
func (m *Metrics) IncrementProvisioned(purpose string) {
	if m != nil {
		m.Provisioned.WithLabelValues(purpose).Inc()
	}
}

// AddSwept records keys removed by a retention sweep.
func (m *Metrics) AddSwept(n int) {
	if m != nil && n > 0 {
		m.Swept.Add(float64(n))
	}
}

// IncrementHazard records a detected hazard.
func (m *Metrics) IncrementHazard(kind string) {
	if m != nil {
		m.HazardsDetected.WithLabelValues(kind).Inc()
	}
}

// IncrementHazardRecovery records a completed recovery procedure.
func (m *Metrics) IncrementHazardRecovery() {
	if m != nil {
		m.HazardRecoveries.Inc()
	}
}
