package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AccessMetrics records search decisions and store behaviour.
// A nil *AccessMetrics is valid and records nothing.
type AccessMetrics struct {
	decisions      *prometheus.CounterVec
	conflicts      *prometheus.CounterVec
	ledgerFailures prometheus.Counter
	duration       prometheus.Histogram
}

func NewAccessMetrics(reg prometheus.Registerer) *AccessMetrics {
	if reg == nil {
		return &AccessMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "search_decisions_total",
		Help: "Search access decisions by outcome, tier and reason.",
	}, []string{"outcome", "tier", "reason"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_conflicts_total",
		Help: "Concurrent-update conflicts on atomic store primitives.",
	}, []string{"op"})
	ledgerFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_write_failures_total",
		Help: "Usage records that could not be persisted.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_duration_seconds",
		Help:    "End-to-end duration of search requests.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(decisions, conflicts, ledgerFailures, duration)
	return &AccessMetrics{
		decisions:      decisions,
		conflicts:      conflicts,
		ledgerFailures: ledgerFailures,
		duration:       duration,
	}
}

func (m *AccessMetrics) IncDecision(outcome, tier, reason string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(outcome), normalizeLabel(tier), normalizeLabel(reason)).Inc()
}

func (m *AccessMetrics) IncConflict(op string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(op)).Inc()
}

func (m *AccessMetrics) IncLedgerFailure() {
	if m == nil || m.ledgerFailures == nil {
		return
	}
	m.ledgerFailures.Inc()
}

func (m *AccessMetrics) ObserveDuration(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
