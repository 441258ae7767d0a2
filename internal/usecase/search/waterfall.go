// Package search answers news searches with a three-level waterfall:
// stored articles, then a bounded live re-ingestion, then an external
// search suggestion.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/observability/metrics"
	"biaswatch/internal/observability/tracing"
	"biaswatch/internal/pkg/settle"
	"biaswatch/internal/repository"
	"biaswatch/internal/usecase/ingest"
	"biaswatch/pkg/config"

	"go.opentelemetry.io/otel/attribute"
)

// Query and limit bounds.
const (
	MinQueryLength = 2
	MaxQueryLength = 200
	DefaultLimit   = 20
	MinLimit       = 1
	MaxLimit       = 50
)

var (
	// ErrInvalidQuery indicates a query that is empty, too short or too long.
	ErrInvalidQuery = errors.New("invalid search query")
	// ErrInvalidLimit indicates a limit outside [MinLimit, MaxLimit].
	ErrInvalidLimit = errors.New("invalid search limit")
)

// Config controls the re-ingestion level and the fallback link.
type Config struct {
	MaxCategories    int
	ReingestTimeout  time.Duration
	ReingestPageSize int
	FallbackURL      string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxCategories:    2,
		ReingestTimeout:  8 * time.Second,
		ReingestPageSize: ingest.DefaultPageSize,
		FallbackURL:      "https://news.google.com/search",
	}
}

// LoadConfigFromEnv reads SEARCH_* variables on top of DefaultConfig.
func LoadConfigFromEnv() Config {
	d := DefaultConfig()
	return Config{
		MaxCategories:    config.GetEnvIntInRange("SEARCH_MAX_CATEGORIES", d.MaxCategories, 1, len(entity.AllCategories())),
		ReingestTimeout:  config.GetEnvDuration("SEARCH_REINGEST_TIMEOUT", d.ReingestTimeout),
		ReingestPageSize: config.GetEnvIntInRange("SEARCH_REINGEST_PAGE_SIZE", d.ReingestPageSize, ingest.MinPageSize, ingest.MaxPageSize),
		FallbackURL:      config.GetEnvString("SEARCH_FALLBACK_URL", d.FallbackURL),
	}
}

// Waterfall implements the three search levels.
type Waterfall struct {
	articles repository.ArticleRepository
	ingestor ingest.CategoryRunner
	cfg      Config
	logger   *slog.Logger
}

// NewWaterfall creates a Waterfall. A nil ingestor disables level 2.
func NewWaterfall(articles repository.ArticleRepository, ingestor ingest.CategoryRunner, cfg Config, logger *slog.Logger) *Waterfall {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxCategories < 1 {
		cfg.MaxCategories = 1
	}
	return &Waterfall{articles: articles, ingestor: ingestor, cfg: cfg, logger: logger}
}

// Search runs the waterfall. Only invalid input or a failing first lookup
// returns an error; an unanswered query ends at the fallback level.
func (w *Waterfall) Search(ctx context.Context, query string, limit int) (res Result, err error) {
	query = strings.TrimSpace(query)
	if err := ValidateQuery(query); err != nil {
		return Result{}, err
	}
	if limit < MinLimit || limit > MaxLimit {
		return Result{}, fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidLimit, limit, MinLimit, MaxLimit)
	}

	ctx, span := tracing.StartSpan(ctx, "search.Waterfall", attribute.Int("search.limit", limit))
	defer func() {
		span.SetAttributes(attribute.String("search.level", res.Level.String()))
		tracing.EndSpan(span, err)
	}()

	start := time.Now()
	defer func() {
		res.DurationMs = time.Since(start).Milliseconds()
		if err == nil {
			metrics.RecordSearch(res.Level.String())
		}
	}()

	// Level 1: stored articles
	found, err := w.articles.SearchByText(ctx, query, limit)
	if err != nil {
		return Result{}, fmt.Errorf("search stored articles: %w", err)
	}
	if len(found) > 0 {
		return Result{Level: LevelLocal, Query: query, Articles: found}, nil
	}

	// Level 2: live re-ingestion of likely categories
	if w.ingestor != nil {
		if res, ok := w.reingest(ctx, query, limit); ok {
			return res, nil
		}
	}

	// Level 3: external suggestion
	return Result{
		Level:    LevelFallback,
		Query:    query,
		Articles: []*entity.Article{},
		Suggestion: &Suggestion{
			Message:      fmt.Sprintf("No hemos encontrado noticias sobre %q. Prueba a buscarlo en Google News.", query),
			ExternalLink: w.externalLink(query),
		},
	}, nil
}

func (w *Waterfall) reingest(ctx context.Context, query string, limit int) (Result, bool) {
	categories := PickCategories(query, w.cfg.MaxCategories)

	reCtx, cancel := context.WithTimeout(ctx, w.cfg.ReingestTimeout)
	defer cancel()

	outcomes := settle.All(reCtx, categories, len(categories), func(ctx context.Context, c entity.Category) (ingest.Result, error) {
		return w.ingestor.IngestCategory(ctx, c, w.cfg.ReingestPageSize)
	})

	newArticles := 0
	for i, o := range outcomes {
		if !o.OK() {
			w.logger.WarnContext(ctx, "search re-ingestion failed",
				slog.String("category", string(categories[i])),
				slog.Any("error", o.Err))
			continue
		}
		newArticles += o.Value.NewArticles
	}

	w.logger.InfoContext(ctx, "search re-ingestion completed",
		slog.Any("categories", categories),
		slog.Int("new_articles", newArticles))

	if newArticles == 0 {
		return Result{}, false
	}

	found, err := w.articles.SearchByText(ctx, query, limit)
	if err != nil {
		w.logger.WarnContext(ctx, "search after re-ingestion failed", slog.Any("error", err))
		return Result{}, false
	}
	if len(found) == 0 {
		return Result{}, false
	}
	return Result{
		Level:      LevelReingest,
		Query:      query,
		Articles:   found,
		IsFresh:    true,
		Categories: categories,
	}, true
}

func (w *Waterfall) externalLink(query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("hl", "es")
	v.Set("gl", "ES")
	v.Set("ceid", "ES:es")
	return w.cfg.FallbackURL + "?" + v.Encode()
}

// ValidateQuery checks the trimmed query length in runes.
func ValidateQuery(query string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(query))
	if n < MinQueryLength || n > MaxQueryLength {
		return fmt.Errorf("%w: length %d (must be between %d and %d characters)", ErrInvalidQuery, n, MinQueryLength, MaxQueryLength)
	}
	return nil
}
