package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AccessMetrics records access decisions and scanner heartbeats. A nil
// *AccessMetrics, or one built with a nil registerer, is a no-op.
type AccessMetrics struct {
	decisions  *prometheus.CounterVec
	duration   prometheus.Histogram
	heartbeats *prometheus.CounterVec
	pruned     prometheus.Counter
}

// New registers the access metrics on the provided registerer.
func New(reg prometheus.Registerer) *AccessMetrics {
	if reg == nil {
		return &AccessMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tagwarden_access_decisions_total",
		Help: "Access decisions by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tagwarden_access_decision_duration_seconds",
		Help:    "Time spent deciding and recording an access check.",
		Buckets: prometheus.DefBuckets,
	})
	heartbeats := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tagwarden_heartbeats_total",
		Help: "Scanner heartbeats by whether the scanner was registered.",
	}, []string{"known"})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tagwarden_heartbeat_pruned_total",
		Help: "Heartbeat rows deleted by the retention pruner.",
	})
	reg.MustRegister(decisions, duration, heartbeats, pruned)
	return &AccessMetrics{
		decisions:  decisions,
		duration:   duration,
		heartbeats: heartbeats,
		pruned:     pruned,
	}
}

// ObserveDecision counts one decision and records how long it took.
func (m *AccessMetrics) ObserveDecision(outcome string, took time.Duration) {
	if m == nil || m.decisions == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.decisions.WithLabelValues(outcome).Inc()
	m.duration.Observe(took.Seconds())
}

func (m *AccessMetrics) IncHeartbeat(known bool) {
	if m == nil || m.heartbeats == nil {
		return
	}
	m.heartbeats.WithLabelValues(strconv.FormatBool(known)).Inc()
}

func (m *AccessMetrics) AddPruned(n int64) {
	if m == nil || m.pruned == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}
