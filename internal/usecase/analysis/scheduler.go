package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/observability/metrics"
	"biaswatch/internal/observability/tracing"
	"biaswatch/internal/pkg/settle"
	"biaswatch/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// Failure identifies an article that could not be analyzed.
type Failure struct {
	ArticleID string `json:"articleId"`
	Reason    string `json:"reason"`
}

// Outcome is the result of one batch. Failed articles keep analyzed_at NULL
// and are selected again by a later batch.
type Outcome struct {
	Selected   int       `json:"selected"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Failures   []Failure `json:"failures"`
	Tokens     Usage     `json:"tokens"`
	DurationMs int64     `json:"durationMs"`
}

// StatusRecorder stores the latest outcome for status reporting.
type StatusRecorder interface {
	RecordAnalysis(outcome any, at time.Time)
}

// Scheduler analyzes batches of unanalyzed articles.
//
// There is no claim step: two batches started at the same time may select
// the same rows and analyze them twice. The last update wins.
type Scheduler struct {
	articles repository.ArticleRepository
	analyzer Analyzer
	provider string
	pipeline *Pipeline
	cfg      Config
	limiter  *rate.Limiter

	markdown HTMLConverter
	content  ContentFetcher
	metadata MetadataSource
	status   StatusRecorder

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPipeline replaces the default parsing pipeline.
func WithPipeline(p *Pipeline) Option {
	return func(s *Scheduler) { s.pipeline = p }
}

// WithMarkdown converts feed HTML descriptions before they are sent.
func WithMarkdown(c HTMLConverter) Option {
	return func(s *Scheduler) { s.markdown = c }
}

// WithContentFetcher enables page text enhancement for short descriptions.
func WithContentFetcher(f ContentFetcher) Option {
	return func(s *Scheduler) { s.content = f }
}

// WithMetadata enables preview image lookup for articles without one.
func WithMetadata(m MetadataSource) Option {
	return func(s *Scheduler) { s.metadata = m }
}

// WithStatus records every outcome in r.
func WithStatus(r StatusRecorder) Option {
	return func(s *Scheduler) { s.status = r }
}

// WithClock overrides the analyzed_at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates a Scheduler. Concurrency is clamped to [3, 5].
func NewScheduler(articles repository.ArticleRepository, analyzer Analyzer, cfg Config, opts ...Option) *Scheduler {
	cfg.Concurrency = ClampConcurrency(cfg.Concurrency)
	if cfg.ContentThreshold <= 0 {
		cfg.ContentThreshold = DefaultContentThreshold
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}

	s := &Scheduler{
		articles: articles,
		analyzer: analyzer,
		provider: "unknown",
		pipeline: NewPipeline(nil),
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, cfg.Concurrency),
		now:      time.Now,
		logger:   slog.Default(),
	}
	if named, ok := analyzer.(interface{ Name() string }); ok {
		s.provider = named.Name()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeBatch analyzes up to limit unanalyzed articles, oldest fetched first.
//
// Each article is independent: a failed call, a malformed reply or a failed
// update is recorded in Outcome.Failures and the rest of the batch continues.
// Only an invalid limit or a failure to select the batch returns an error.
func (s *Scheduler) AnalyzeBatch(ctx context.Context, limit int) (out Outcome, err error) {
	if err := ValidateLimit(limit); err != nil {
		return Outcome{}, err
	}

	ctx, span := tracing.StartSpan(ctx, "analysis.AnalyzeBatch", attribute.Int("analysis.limit", limit))
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	articles, err := s.articles.FindUnanalyzed(ctx, limit)
	if err != nil {
		return Outcome{}, fmt.Errorf("select unanalyzed articles: %w", err)
	}

	out = Outcome{Selected: len(articles), Failures: []Failure{}}
	if len(articles) == 0 {
		s.finish(ctx, &out, start)
		return out, nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	results := settle.All(batchCtx, articles, s.cfg.Concurrency, s.analyzeOne)
	for i, r := range results {
		out.Tokens.Input += r.Value.Input
		out.Tokens.Output += r.Value.Output
		if r.OK() {
			out.Successful++
			continue
		}
		out.Failed++
		out.Failures = append(out.Failures, Failure{
			ArticleID: articles[i].ID,
			Reason:    failureReason(r.Err),
		})
		s.logger.WarnContext(ctx, "article analysis failed",
			slog.String("article_id", articles[i].ID),
			slog.String("url", articles[i].URL),
			slog.String("error", firstLine(r.Err.Error())))
	}

	span.SetAttributes(
		attribute.Int("analysis.selected", out.Selected),
		attribute.Int("analysis.successful", out.Successful),
		attribute.Int("analysis.failed", out.Failed),
	)
	s.finish(ctx, &out, start)
	return out, nil
}

func (s *Scheduler) finish(ctx context.Context, out *Outcome, start time.Time) {
	duration := time.Since(start)
	out.DurationMs = duration.Milliseconds()
	metrics.RecordAnalysisBatch(duration)
	if s.status != nil {
		s.status.RecordAnalysis(*out, s.now())
	}
	s.logger.InfoContext(ctx, "analysis batch completed",
		slog.Int("selected", out.Selected),
		slog.Int("successful", out.Successful),
		slog.Int("failed", out.Failed),
		slog.Int64("input_tokens", out.Tokens.Input),
		slog.Int64("output_tokens", out.Tokens.Output),
		slog.Int64("duration_ms", out.DurationMs))
}

// analyzeOne analyzes a single article and writes the result.
// The returned usage is meaningful even when err is non-nil.
func (s *Scheduler) analyzeOne(ctx context.Context, a *entity.Article) (usage Usage, err error) {
	start := time.Now()
	defer func() { metrics.RecordArticleAnalyzed(err == nil, time.Since(start)) }()

	if err := s.limiter.Wait(ctx); err != nil {
		return Usage{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	input := s.buildInput(ctx, a)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	resp, err := s.analyzer.Analyze(callCtx, input)
	cancel()
	if err != nil {
		return Usage{}, fmt.Errorf("analyze: %w", err)
	}
	usage = resp.Usage
	metrics.RecordTokens(s.provider, usage.Input, usage.Output)

	parsed, err := s.pipeline.Parse(resp.Body)
	if err != nil {
		return usage, err
	}

	update := entity.AnalysisUpdate{
		Summary:    parsed.Summary,
		BiasScore:  parsed.BiasScore,
		Analysis:   parsed,
		URLToImage: s.previewImage(ctx, a),
		AnalyzedAt: s.now(),
	}
	if err := s.articles.UpdateAnalysis(ctx, a.ID, update); err != nil {
		return usage, fmt.Errorf("update analysis: %w", err)
	}
	return usage, nil
}

// failureReason condenses an error for the API response.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout: " + firstLine(err.Error())
	case errors.Is(err, settle.ErrPanic):
		return "internal error"
	default:
		return firstLine(err.Error())
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
