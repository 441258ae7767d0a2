package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// authRequestsTotal counts bearer checks by result (success, missing, expired, invalid).
	authRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Bearer token checks by result",
		},
		[]string{"result"},
	)

	authCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_check_duration_seconds",
			Help:    "Bearer token validation duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)
)

// RecordAuthRequest records one bearer check.
func RecordAuthRequest(result string) {
	authRequestsTotal.WithLabelValues(result).Inc()
}

// RecordAuthCheckDuration records how long token validation took.
func RecordAuthCheckDuration(d time.Duration) {
	authCheckDuration.Observe(d.Seconds())
}
