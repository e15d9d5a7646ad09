package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcomes.
const (
	OutcomeResolved  = "resolved"
	OutcomeAbstained = "abstained"
	OutcomeError     = "error"
)

// ResolutionMetrics counts price resolution attempts per resolver.
type ResolutionMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewResolutionMetrics(reg prometheus.Registerer) *ResolutionMetrics {
	if reg == nil {
		return &ResolutionMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pricing",
		Name:      "resolutions_total",
		Help:      "Price resolution attempts by resolver and outcome.",
	}, []string{"resolver", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pricing",
		Name:      "resolution_duration_seconds",
		Help:      "Time spent in a single resolver.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"resolver"})
	reg.MustRegister(attempts, duration)
	return &ResolutionMetrics{attempts: attempts, duration: duration}
}

// Observe records one resolver call.
func (m *ResolutionMetrics) Observe(resolver, outcome string, duration time.Duration) {
	if m == nil || m.attempts == nil {
		return
	}
	resolver = normalizeLabel(resolver)
	m.attempts.WithLabelValues(resolver, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(resolver).Observe(duration.Seconds())
}
