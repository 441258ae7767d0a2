// Package metrics provides the Prometheus metrics of the aggregator.
//
// Metrics are registered with the default registry through promauto and
// exposed on /metrics:
//   - HTTP request metrics (count, duration, response size)
//   - ingestion (articles by outcome, source errors, category duration)
//   - analysis (per-article outcomes, batch duration, AI tokens, preview images)
//   - search levels and storage gauges
//
// Example usage:
//
//	start := time.Now()
//	// ... ingest a category ...
//	metrics.RecordCategoryIngest("deportes", time.Since(start), 6, 4)
package metrics
