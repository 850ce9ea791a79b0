// Package metrics provides Prometheus instrumentation for ephemeral
// session purging.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds purge-related Prometheus collectors.
type Metrics struct {
	Sessions   prometheus.Counter
	CleanEnds  prometheus.Counter
	Abandoned  prometheus.Counter
	ForcePurge prometheus.Counter
}

// New creates and registers purge metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		Sessions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_ephemeral_sessions_total",
			Help: "Ephemeral sessions started.",
		}),
		CleanEnds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_ephemeral_clean_ends_total",
			Help: "Ephemeral sessions ended cleanly with buffer purge.",
		}),
		Abandoned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_ephemeral_abandoned_total",
			Help: "Abandoned sessions detected and cleaned up at startup.",
		}),
		ForcePurge: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_ephemeral_force_purges_total",
			Help: "Manual force purges of the live buffer.",
		}),
	}
}

// IncrementSessions records a session start.
func (m *Metrics) IncrementSessions() {
	if m != nil {
		m.Sessions.Inc()
	}
}

// IncrementCleanEnds records a clean session end.
func (m *Metrics) IncrementCleanEnds() {
	if m != nil {
		m.CleanEnds.Inc()
	}
}

// IncrementAbandoned records an abandoned-session cleanup.
func (m *Metrics) IncrementAbandoned() {
	if m != nil {
		m.Abandoned.Inc()
	}
}

// IncrementForcePurge records a manual purge.
func (m *Metrics) IncrementForcePurge() {
	if m != nil {
		m.ForcePurge.Inc()
	}
}
