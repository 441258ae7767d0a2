package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"biaswatch/internal/usecase/analysis"
	"biaswatch/internal/usecase/ingest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type stubIngestor struct {
	gotPageSize int
	summary     ingest.Summary
	err         error
}

func (s *stubIngestor) IngestAll(_ context.Context, pageSize int) (ingest.Summary, error) {
	s.gotPageSize = pageSize
	return s.summary, s.err
}

type stubAnalyzer struct {
	gotLimit int
	out      analysis.Outcome
	err      error
}

func (s *stubAnalyzer) AnalyzeBatch(_ context.Context, limit int) (analysis.Outcome, error) {
	s.gotLimit = limit
	return s.out, s.err
}

func newJobs(t *testing.T, ing GlobalIngestor, an BatchAnalyzer) (*Jobs, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return &Jobs{
		Ingestor: ing,
		Analyzer: an,
		Config:   DefaultConfig(),
		Metrics:  NewMetrics(prometheus.NewRegistry()),
		Logger:   slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}, &buf
}

func TestRunIngest_Success(t *testing.T) {
	ing := &stubIngestor{summary: ingest.Summary{Processed: 9, Errors: 1, TotalNewArticles: 37, TotalDuplicates: 12}}
	jobs, logs := newJobs(t, ing, nil)

	jobs.RunIngest(context.Background())

	assert.Equal(t, 20, ing.gotPageSize)
	assert.Equal(t, float64(1), testutil.ToFloat64(jobs.Metrics.JobRunsTotal.WithLabelValues(JobIngest, "started")))
	assert.Equal(t, float64(1), testutil.ToFloat64(jobs.Metrics.JobRunsTotal.WithLabelValues(JobIngest, "success")))
	assert.Equal(t, float64(37), testutil.ToFloat64(jobs.Metrics.ArticlesIngestedTotal))
	assert.Greater(t, testutil.ToFloat64(jobs.Metrics.JobLastSuccess.WithLabelValues(JobIngest)), float64(0))
	assert.Contains(t, logs.String(), `"new_articles":37`)
	assert.Contains(t, logs.String(), `"category_errors":1`)
}

func TestRunIngest_Failure(t *testing.T) {
	ing := &stubIngestor{err: errors.New("list sources: postgres://app:s3cret@db/news refused")}
	jobs, logs := newJobs(t, ing, nil)

	jobs.RunIngest(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(jobs.Metrics.JobRunsTotal.WithLabelValues(JobIngest, "failure")))
	assert.Equal(t, float64(0), testutil.ToFloat64(jobs.Metrics.JobRunsTotal.WithLabelValues(JobIngest, "success")))
	assert.Equal(t, float64(0), testutil.ToFloat64(jobs.Metrics.JobLastSuccess.WithLabelValues(JobIngest)))
	assert.Contains(t, logs.String(), "ingestion failed")
	assert.NotContains(t, logs.String(), "s3cret")
}

func TestRunAnalysis_Success(t *testing.T) {
	an := &stubAnalyzer{out: analysis.Outcome{
		Selected:   5,
		Successful: 4,
		Failed:     1,
		Tokens:     analysis.Usage{Input: 5000, Output: 1200},
	}}
	jobs, logs := newJobs(t, nil, an)

	jobs.RunAnalysis(context.Background())

	assert.Equal(t, 10, an.gotLimit)
	assert.Equal(t, float64(4), testutil.ToFloat64(jobs.Metrics.ArticlesAnalyzedTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(jobs.Metrics.ArticlesAnalyzedTotal.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(jobs.Metrics.JobRunsTotal.WithLabelValues(JobAnalysis, "success")))
	assert.Contains(t, logs.String(), `"input_tokens":5000`)
}

func TestRunAnalysis_EmptyBatch(t *testing.T) {
	jobs, logs := newJobs(t, nil, &stubAnalyzer{})

	jobs.RunAnalysis(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(jobs.Metrics.JobRunsTotal.WithLabelValues(JobAnalysis, "success")))
	assert.Contains(t, logs.String(), "nothing to analyze")
	assert.NotContains(t, logs.String(), "analysis batch completed")
}

func TestRunAnalysis_Failure(t *testing.T) {
	jobs, _ := newJobs(t, nil, &stubAnalyzer{err: errors.New("select unanalyzed: timeout")})

	jobs.RunAnalysis(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(jobs.Metrics.JobRunsTotal.WithLabelValues(JobAnalysis, "failure")))
	assert.Equal(t, float64(0), testutil.ToFloat64(jobs.Metrics.ArticlesAnalyzedTotal.WithLabelValues("success")))
}
