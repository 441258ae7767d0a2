package worker

import (
	"context"
	"log/slog"
	"time"

	"biaswatch/internal/handler/http/respond"
	"biaswatch/internal/usecase/analysis"
	"biaswatch/internal/usecase/ingest"
)

// GlobalIngestor ingests every category. *ingest.GlobalIngestor implements it.
type GlobalIngestor interface {
	IngestAll(ctx context.Context, pageSize int) (ingest.Summary, error)
}

// BatchAnalyzer analyzes pending articles. *analysis.Scheduler implements it.
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, limit int) (analysis.Outcome, error)
}

// Jobs are the scheduled units of work.
type Jobs struct {
	Ingestor GlobalIngestor
	Analyzer BatchAnalyzer
	Config   Config
	Metrics  *Metrics
	Logger   *slog.Logger
}

// RunIngest runs one global ingestion. Per-category failures are part of
// the summary; the run only fails when ingestion itself returns an error.
func (j *Jobs) RunIngest(ctx context.Context) {
	start := time.Now()
	logger := j.logger().With(slog.String("job", JobIngest))
	j.Metrics.RecordJobRun(JobIngest, "started")
	logger.Info("ingestion started", slog.Int("page_size", j.Config.PageSize))

	summary, err := j.Ingestor.IngestAll(ctx, j.Config.PageSize)
	j.Metrics.RecordJobDuration(JobIngest, time.Since(start).Seconds())
	if err != nil {
		j.Metrics.RecordJobRun(JobIngest, "failure")
		logger.Error("ingestion failed", slog.String("error", respond.SanitizeError(err)))
		return
	}

	j.Metrics.RecordJobRun(JobIngest, "success")
	j.Metrics.RecordLastSuccess(JobIngest)
	j.Metrics.ArticlesIngestedTotal.Add(float64(summary.TotalNewArticles))

	logger.Info("ingestion completed",
		slog.Int("categories", summary.Processed),
		slog.Int("category_errors", summary.Errors),
		slog.Int("new_articles", summary.TotalNewArticles),
		slog.Int("duplicates", summary.TotalDuplicates),
		slog.Duration("duration", time.Since(start)))
}

// RunAnalysis runs one analysis batch.
func (j *Jobs) RunAnalysis(ctx context.Context) {
	start := time.Now()
	logger := j.logger().With(slog.String("job", JobAnalysis))
	j.Metrics.RecordJobRun(JobAnalysis, "started")

	out, err := j.Analyzer.AnalyzeBatch(ctx, j.Config.AnalysisLimit)
	j.Metrics.RecordJobDuration(JobAnalysis, time.Since(start).Seconds())
	if err != nil {
		j.Metrics.RecordJobRun(JobAnalysis, "failure")
		logger.Error("analysis batch failed", slog.String("error", respond.SanitizeError(err)))
		return
	}

	j.Metrics.RecordJobRun(JobAnalysis, "success")
	j.Metrics.RecordLastSuccess(JobAnalysis)
	j.Metrics.ArticlesAnalyzedTotal.WithLabelValues("success").Add(float64(out.Successful))
	j.Metrics.ArticlesAnalyzedTotal.WithLabelValues("failure").Add(float64(out.Failed))

	if out.Selected == 0 {
		logger.Debug("nothing to analyze")
		return
	}
	logger.Info("analysis batch completed",
		slog.Int("selected", out.Selected),
		slog.Int("successful", out.Successful),
		slog.Int("failed", out.Failed),
		slog.Int64("input_tokens", out.Tokens.Input),
		slog.Int64("output_tokens", out.Tokens.Output),
		slog.Duration("duration", time.Since(start)))
}

func (j *Jobs) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
