package metrics

import (
	"time"
)

// RecordCategoryIngest records the outcome of one category ingestion.
func RecordCategoryIngest(category string, duration time.Duration, newArticles, duplicates int) {
	IngestCategoryDuration.WithLabelValues(category).Observe(duration.Seconds())
	if newArticles > 0 {
		IngestArticlesTotal.WithLabelValues(category, "new").Add(float64(newArticles))
	}
	if duplicates > 0 {
		IngestArticlesTotal.WithLabelValues(category, "duplicate").Add(float64(duplicates))
	}
}

// RecordSourceError records a feed source that failed during ingestion.
func RecordSourceError(category, source string) {
	IngestSourceErrorsTotal.WithLabelValues(category, source).Inc()
}

// RecordIngestRun records an ingestion run. Scope is "category" or "global".
func RecordIngestRun(scope string, success bool) {
	IngestRunsTotal.WithLabelValues(scope, statusLabel(success)).Inc()
}

// RecordArticleAnalyzed records the result of analyzing one article.
func RecordArticleAnalyzed(success bool, duration time.Duration) {
	AnalysisArticlesTotal.WithLabelValues(statusLabel(success)).Inc()
	AnalysisDuration.Observe(duration.Seconds())
}

// RecordAnalysisBatch records the duration of an analysis batch.
func RecordAnalysisBatch(duration time.Duration) {
	AnalysisBatchDuration.Observe(duration.Seconds())
}

// RecordTokens records tokens billed for one AI call.
func RecordTokens(provider string, input, output int64) {
	if input > 0 {
		AITokensTotal.WithLabelValues(provider, "input").Add(float64(input))
	}
	if output > 0 {
		AITokensTotal.WithLabelValues(provider, "output").Add(float64(output))
	}
}

// RecordPreviewImage records where a preview image came from: "feed", "page" or "none".
func RecordPreviewImage(result string) {
	PreviewImagesTotal.WithLabelValues(result).Inc()
}

// RecordSearch records the waterfall level that answered a search.
func RecordSearch(level string) {
	SearchRequestsTotal.WithLabelValues(level).Inc()
}

// UpdateArticleCounts updates the stored-article gauges.
func UpdateArticleCounts(total, unanalyzed int64) {
	ArticlesTotal.Set(float64(total))
	ArticlesUnanalyzed.Set(float64(unanalyzed))
}

// RecordDBQuery records the duration of a database operation.
// Operation should describe the query type (e.g., "find_existing_urls", "bulk_insert").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
