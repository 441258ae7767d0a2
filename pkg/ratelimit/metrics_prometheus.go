package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements RateLimitMetrics using Prometheus.
type PrometheusMetrics struct {
	// requestsTotal tracks throttle checks by policy and status ("allowed" or "denied").
	requestsTotal *prometheus.CounterVec

	// checkDuration tracks the duration of throttle checks.
	checkDuration *prometheus.HistogramVec

	// activeKeys tracks the number of tracked caller keys per policy.
	activeKeys *prometheus.GaugeVec

	// evictionsTotal tracks removed windows per policy.
	evictionsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates the throttle metrics and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry(); production passes prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_rate_limit_requests_total",
				Help: "Total throttle checks by policy and status",
			},
			[]string{"policy", "status"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_rate_limit_check_duration_seconds",
				Help:    "Duration of throttle checks",
				Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"policy"},
		),
		activeKeys: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_rate_limit_active_keys",
				Help: "Current number of tracked caller keys by policy",
			},
			[]string{"policy"},
		),
		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_rate_limit_evictions_total",
				Help: "Total number of removed throttle windows by policy",
			},
			[]string{"policy"},
		),
	}
	reg.MustRegister(m.requestsTotal, m.checkDuration, m.activeKeys, m.evictionsTotal)
	return m
}

func (m *PrometheusMetrics) RecordAllowed(policy string) {
	m.requestsTotal.WithLabelValues(policy, "allowed").Inc()
}

func (m *PrometheusMetrics) RecordDenied(policy string) {
	m.requestsTotal.WithLabelValues(policy, "denied").Inc()
}

func (m *PrometheusMetrics) RecordCheckDuration(policy string, duration time.Duration) {
	m.checkDuration.WithLabelValues(policy).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) SetActiveKeys(policy string, count int) {
	m.activeKeys.WithLabelValues(policy).Set(float64(count))
}

func (m *PrometheusMetrics) RecordEviction(policy string, count int) {
	m.evictionsTotal.WithLabelValues(policy).Add(float64(count))
}
