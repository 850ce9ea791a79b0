// Package metrics provides Prometheus instrumentation for the audit
// export pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds export-related Prometheus collectors.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
	Buffered  prometheus.Gauge
	Dropped   prometheus.Counter
}

// New creates and registers export metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_audit_export_published_total",
			Help: "Audit events shipped to the clinic topic.",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_audit_export_failures_total",
			Help: "Publish attempts that failed and were re-buffered.",
		}),
		Buffered: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "charak_audit_export_buffered",
			Help: "Events waiting in the export ring buffer.",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_audit_export_dropped_total",
			Help: "Events dropped from the full ring buffer during broker outage.",
		}),
	}
}

// IncrementPublished records n shipped events.
func (m *Metrics) IncrementPublished(n int) {
	if m != nil && n > 0 {
		m.Published.Add(float64(n))
	}
}

// IncrementFailures records a failed publish attempt.
func (m *Metrics) IncrementFailures() {
	if m != nil {
		m.Failures.Inc()
	}
}

// SetBuffered records the ring buffer depth.
func (m *Metrics) SetBuffered(n int) {
	if m != nil {
		m.Buffered.Set(float64(n))
	}
}

// AddDropped records events lost to the bounded buffer.
func (m *Metrics) AddDropped(n int64) {
	if m != nil && n > 0 {
		m.Dropped.Add(float64(n))
	}
}
