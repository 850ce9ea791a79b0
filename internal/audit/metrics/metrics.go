package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit chain.
type Metrics struct {
	// Appended events by type and actor
	EventsAppended *prometheus.CounterVec

	// Failed appends by reason ("serialize", "io", "keys")
	AppendFailures *prometheus.CounterVec

	// Append latency including chain MAC computation
	AppendLatency prometheus.Histogram

	// Verification runs and the breaks they found
	Verifications prometheus.Counter
	ChainBreaks   prometheus.Counter
}

// New creates a new Metrics instance with all audit chain metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_audit_events_total",
			Help: "Total audit events appended to the hash chain by type and actor",
		}, []string{"event", "actor"}),

		AppendFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charak_audit_append_failures_total",
			Help: "Total audit append failures by reason",
		}, []string{"reason"}),

		AppendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "charak_audit_append_duration_seconds",
			Help:    "Duration of chained audit appends including MAC computation",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		Verifications: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_audit_verifications_total",
			Help: "Total chain verification runs",
		}),

		ChainBreaks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charak_audit_chain_breaks_total",
			Help: "Total chain breaks found across verification runs",
		}),
	}
}

// IncrementAppended records a successfully chained event.
func (m *Metrics) IncrementAppended(event, actor string) {
	if m != nil {
		m.EventsAppended.WithLabelValues(event, actor).Inc()
	}
}

// IncrementAppendFailure records a failed append by reason.
func (m *Metrics) IncrementAppendFailure(reason string) {
	if m != nil {
		m.AppendFailures.WithLabelValues(reason).Inc()
	}
}

// ObserveAppendLatency records the duration of one append.
func (m *Metrics) ObserveAppendLatency(d time.Duration) {
	if m != nil {
		m.AppendLatency.Observe(d.Seconds())
	}
}

// IncrementVerification records a verification run and its break count.
func (m *Metrics) IncrementVerification(breaks int) {
	if m != nil {
		m.Verifications.Inc()
		m.ChainBreaks.Add(float64(breaks))
	}
}
