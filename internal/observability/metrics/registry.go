// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
		[]string{"method", "path", "status"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)
)

// Ingestion metrics
var (
	// IngestArticlesTotal counts candidate articles by category and outcome (new, duplicate)
	IngestArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_articles_total",
			Help: "Articles seen by ingestion, by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	// IngestSourceErrorsTotal counts per-source fetch failures
	IngestSourceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_source_errors_total",
			Help: "Feed sources that could not be fetched",
		},
		[]string{"category", "source"},
	)

	// IngestCategoryDuration measures a full category ingestion
	IngestCategoryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_category_duration_seconds",
			Help:    "Time taken to ingest one category",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"category"},
	)

	// IngestRunsTotal counts ingestion runs by scope (category, global) and status
	IngestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Ingestion runs by scope and status",
		},
		[]string{"scope", "status"},
	)
)

// Analysis metrics
var (
	// AnalysisArticlesTotal counts analyzed articles by status (success, failure)
	AnalysisArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_articles_total",
			Help: "Articles processed by the analysis scheduler",
		},
		[]string{"status"},
	)

	// AnalysisDuration measures a single article analysis including the AI call
	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Time taken to analyze one article",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		},
	)

	// AnalysisBatchDuration measures a full analysis batch
	AnalysisBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_batch_duration_seconds",
			Help:    "Time taken to run one analysis batch",
			Buckets: []float64{1, 5, 15, 30, 60, 90, 120, 170},
		},
	)

	// AITokensTotal counts tokens billed by the AI provider
	AITokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Tokens consumed by AI analysis calls",
		},
		[]string{"provider", "direction"},
	)

	// PreviewImagesTotal counts preview image lookups by result (feed, page, none)
	PreviewImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_images_total",
			Help: "Preview image resolution by source",
		},
		[]string{"result"},
	)
)

// Search and storage metrics
var (
	// SearchRequestsTotal counts searches by the waterfall level that answered
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Searches by answering level (1, 2, fallback)",
		},
		[]string{"level"},
	)

	// ArticlesTotal tracks the number of stored articles
	ArticlesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_total",
			Help: "Total number of articles in the database",
		},
	)

	// ArticlesUnanalyzed tracks the analysis backlog
	ArticlesUnanalyzed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_unanalyzed",
			Help: "Articles waiting for analysis",
		},
	)

	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}
