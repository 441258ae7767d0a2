package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/observability/metrics"
	"biaswatch/internal/observability/tracing"
	"biaswatch/internal/pkg/settle"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultCategoryConcurrency bounds how many categories are ingested at once.
const DefaultCategoryConcurrency = 2

// CategoryRunner ingests a single category. *CategoryIngestor implements it.
type CategoryRunner interface {
	IngestCategory(ctx context.Context, category entity.Category, pageSize int) (Result, error)
}

// GlobalIngestor runs a category ingestion for every known category.
type GlobalIngestor struct {
	runner      CategoryRunner
	categories  []entity.Category
	concurrency int
	status      *StatusTracker
	logger      *slog.Logger
}

// NewGlobalIngestor creates a GlobalIngestor over entity.AllCategories.
// status may be nil.
func NewGlobalIngestor(runner CategoryRunner, concurrency int, status *StatusTracker) *GlobalIngestor {
	if concurrency <= 0 {
		concurrency = DefaultCategoryConcurrency
	}
	return &GlobalIngestor{
		runner:      runner,
		categories:  entity.AllCategories(),
		concurrency: concurrency,
		status:      status,
		logger:      slog.Default(),
	}
}

// IngestAll ingests every category. A category that fails or panics is
// recorded in its own slot with Errors incremented; the others still run.
// There is no overall deadline beyond ctx.
func (g *GlobalIngestor) IngestAll(ctx context.Context, pageSize int) (Summary, error) {
	start := time.Now()
	if err := ValidatePageSize(pageSize); err != nil {
		return Summary{}, err
	}

	ctx, span := tracing.StartSpan(ctx, "ingest.all",
		attribute.Int("categories", len(g.categories)),
		attribute.Int("page_size", pageSize))
	defer span.End()

	outcomes := settle.All(ctx, g.categories, g.concurrency, func(ctx context.Context, c entity.Category) (Result, error) {
		return g.runner.IngestCategory(ctx, c, pageSize)
	})

	summary := Summary{
		Processed:       len(g.categories),
		CategoryResults: make(map[entity.Category]Result, len(g.categories)),
	}
	for i, o := range outcomes {
		category := g.categories[i]
		res := o.Value
		if o.Err != nil {
			res.Category = category
			res.Errors++
			res.Error = o.Err.Error()
			g.logger.Error("category ingestion failed",
				slog.String("category", string(category)),
				slog.Any("error", o.Err))
		}
		summary.CategoryResults[category] = res
		summary.Errors += res.Errors
		summary.TotalNewArticles += res.NewArticles
		summary.TotalDuplicates += res.Duplicates
	}
	summary.DurationMs = time.Since(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("new_articles", summary.TotalNewArticles),
		attribute.Int("errors", summary.Errors))
	metrics.RecordIngestRun("global", true)
	if g.status != nil {
		g.status.RecordGlobal(summary, time.Now())
	}

	g.logger.Info("global ingestion completed",
		slog.Int("processed", summary.Processed),
		slog.Int("new_articles", summary.TotalNewArticles),
		slog.Int("duplicates", summary.TotalDuplicates),
		slog.Int("errors", summary.Errors),
		slog.Duration("duration", time.Since(start)))

	return summary, nil
}

// String renders a one-line summary for CLI output.
func (s Summary) String() string {
	return fmt.Sprintf("processed=%d new=%d duplicates=%d errors=%d",
		s.Processed, s.TotalNewArticles, s.TotalDuplicates, s.Errors)
}
