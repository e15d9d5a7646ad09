package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pricelist"

// Sweep outcomes.
const (
	SweepSucceeded = "succeeded"
	SweepFailed    = "failed"
)

// CronJobMetrics tracks the maintenance sweeps run by the cron worker.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	affected    *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// NewCronJobMetrics registers the sweep series on reg. A nil registerer yields a no-op collector.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "sweeps_total",
			Help:      "Maintenance sweeps by job and outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one sweep.",
			Buckets:   []float64{.01, .05, .25, 1, 5, 30, 120},
		}, []string{"job"}),
		affected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "swept_records_total",
			Help:      "Files or rows changed by sweeps.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cron",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sweep.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.runs, m.duration, m.affected, m.lastSuccess)
	return m
}

// Observe records one finished sweep.
func (c *CronJobMetrics) Observe(job string, took time.Duration, affected int, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	if affected > 0 {
		c.affected.WithLabelValues(job).Add(float64(affected))
	}
	if err != nil {
		c.runs.WithLabelValues(job, SweepFailed).Inc()
		return
	}
	c.runs.WithLabelValues(job, SweepSucceeded).Inc()
	c.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
