package jobmetrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes recorded in the status label.
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusSkipped  = "skipped"
	StatusCanceled = "canceled"
)

// Metrics exposes Prometheus collectors for ledger background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	ensured  *prometheus.CounterVec
	targets  *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer, or against the
// default Prometheus registerer once when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker instruments a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts a tracker for job. A nil Metrics yields a tracker that
// records nothing.
func (m *Metrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// Targets records how many tenants the run covers.
func (t *Tracker) Targets(n int) {
	if t == nil || t.metrics == nil {
		return
	}
	t.metrics.targets.WithLabelValues(t.job).Observe(float64(n))
}

// End records the duration and outcome of the run and returns err as is.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := Classify(err)
	if status == StatusFailure {
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Classify maps a handler error to a run status. Errors wrapping
// asynq.SkipRetry are skipped, cancellations are canceled.
func Classify(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, asynq.SkipRetry):
		return StatusSkipped
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	default:
		return StatusFailure
	}
}

// AddEnsured counts system accounts confirmed by a job, split by account type.
func (m *Metrics) AddEnsured(accountType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ensured.WithLabelValues(accountType).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_total",
			Help: "Ledger job runs by task type and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_failures_total",
			Help: "Ledger job runs that failed and will be retried.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_job_duration_seconds",
			Help:    "Duration in seconds of ledger job runs.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		ensured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_system_accounts_ensured_total",
			Help: "System accounts ensured by background jobs, grouped by account type.",
		}, []string{"type"}),
		targets: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_job_targets",
			Help:    "Tenants covered by one job run.",
			Buckets: []float64{1, 5, 10, 50, 100, 500},
		}, []string{"job"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.ensured, m.targets)
	return m
}
