package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics tracks import pipeline step invocations and row outcomes.
type ImportMetrics struct {
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	rows         *prometheus.CounterVec
	jobs         *prometheus.CounterVec
}

// NewImportMetrics registers the import metrics on reg. A nil registerer yields a no-op recorder.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	stepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "step_duration_seconds",
		Help:      "Duration of a single import step invocation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"step"})
	stepFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "step_failures_total",
		Help:      "Import step invocations that aborted the job.",
	}, []string{"step"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Imported rows by outcome.",
	}, []string{"outcome"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "import",
		Name:      "jobs_total",
		Help:      "Import jobs that reached a terminal status.",
	}, []string{"status"})
	reg.MustRegister(stepDuration, stepFailures, rows, jobs)
	return &ImportMetrics{
		stepDuration: stepDuration,
		stepFailures: stepFailures,
		rows:         rows,
		jobs:         jobs,
	}
}

func (m *ImportMetrics) ObserveStep(step string, duration time.Duration) {
	if m == nil || m.stepDuration == nil {
		return
	}
	m.stepDuration.WithLabelValues(normalizeLabel(step)).Observe(duration.Seconds())
}

func (m *ImportMetrics) IncStepFailure(step string) {
	if m == nil || m.stepFailures == nil {
		return
	}
	m.stepFailures.WithLabelValues(normalizeLabel(step)).Inc()
}

// AddRows adds n rows with the given outcome (created, updated, skipped).
func (m *ImportMetrics) AddRows(outcome string, n int) {
	if m == nil || m.rows == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

func (m *ImportMetrics) IncJob(status string) {
	if m == nil || m.jobs == nil {
		return
	}
	m.jobs.WithLabelValues(normalizeLabel(status)).Inc()
}
