package worker

import (
	"biaswatch/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job names used as metric labels.
const (
	JobIngest   = "ingest"
	JobAnalysis = "analysis"
)

// Metrics are the worker's Prometheus metrics.
type Metrics struct {
	*config.ConfigMetrics

	JobRunsTotal          *prometheus.CounterVec
	JobDurationSeconds    *prometheus.HistogramVec
	JobLastSuccess        *prometheus.GaugeVec
	ArticlesIngestedTotal prometheus.Counter
	ArticlesAnalyzedTotal *prometheus.CounterVec
}

// NewMetrics registers the worker metrics with reg (nil means the default registerer).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		JobRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Scheduled job runs by job and status (started/success/failure)",
		}, []string{"job", "status"}),

		JobDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Scheduled job duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 180, 300, 900, 1800},
		}, []string{"job"}),

		JobLastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run by job",
		}, []string{"job"}),

		ArticlesIngestedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "worker_articles_ingested_total",
			Help: "New articles stored by scheduled ingestion",
		}),

		ArticlesAnalyzedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_articles_analyzed_total",
			Help: "Articles processed by scheduled analysis by result (success/failure)",
		}, []string{"result"}),
	}
}

// RecordJobRun counts a run of job with status.
func (m *Metrics) RecordJobRun(job, status string) {
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes the duration of job.
func (m *Metrics) RecordJobDuration(job string, seconds float64) {
	m.JobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordLastSuccess sets the last success timestamp of job to now.
func (m *Metrics) RecordLastSuccess(job string) {
	m.JobLastSuccess.WithLabelValues(job).SetToCurrentTime()
}
