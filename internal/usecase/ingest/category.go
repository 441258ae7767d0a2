package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/observability/metrics"
	"biaswatch/internal/observability/tracing"
	"biaswatch/internal/pkg/settle"
	"biaswatch/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultSourceConcurrency bounds concurrent feed fetches within one category.
const DefaultSourceConcurrency = 4

// CategoryIngestor ingests every active source of one category.
type CategoryIngestor struct {
	sources     repository.SourceRepository
	articles    repository.ArticleRepository
	fetcher     FeedFetcher
	dedup       *Deduplicator
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// CategoryOption configures a CategoryIngestor.
type CategoryOption func(*CategoryIngestor)

// WithSourceConcurrency sets how many feeds are fetched at once.
func WithSourceConcurrency(n int) CategoryOption {
	return func(c *CategoryIngestor) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithClock overrides the fetch timestamp source. Used by tests.
func WithClock(now func() time.Time) CategoryOption {
	return func(c *CategoryIngestor) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CategoryOption {
	return func(c *CategoryIngestor) { c.logger = l }
}

// NewCategoryIngestor creates a CategoryIngestor.
func NewCategoryIngestor(
	sources repository.SourceRepository,
	articles repository.ArticleRepository,
	fetcher FeedFetcher,
	opts ...CategoryOption,
) *CategoryIngestor {
	c := &CategoryIngestor{
		sources:     sources,
		articles:    articles,
		fetcher:     fetcher,
		dedup:       NewDeduplicator(articles),
		concurrency: DefaultSourceConcurrency,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type sourceItems struct {
	source *entity.Source
	items  []RawItem
}

// IngestCategory fetches all active sources of category, keeps the pageSize
// most recent items, and stores the ones not seen before.
//
// A source that cannot be fetched is logged and counted in Result.Errors;
// when no source can be reached the result has Errors == Sources and no
// error is returned. Errors are returned only when the source list cannot
// be loaded or the article store fails.
func (c *CategoryIngestor) IngestCategory(ctx context.Context, category entity.Category, pageSize int) (res Result, err error) {
	start := time.Now()
	res.Category = category

	ctx, span := tracing.StartSpan(ctx, "ingest.category",
		attribute.String("category", string(category)),
		attribute.Int("page_size", pageSize))
	defer func() {
		res.DurationMs = time.Since(start).Milliseconds()
		span.SetAttributes(
			attribute.Int("new_articles", res.NewArticles),
			attribute.Int("duplicates", res.Duplicates),
			attribute.Int("errors", res.Errors))
		tracing.EndSpan(span, err)
		metrics.RecordIngestRun("category", err == nil)
	}()

	if !category.Valid() {
		return res, &entity.ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}
	if err := ValidatePageSize(pageSize); err != nil {
		return res, err
	}

	sources, err := c.sources.ListActiveByCategory(ctx, category)
	if err != nil {
		return res, fmt.Errorf("list sources for %s: %w", category, err)
	}
	res.Sources = len(sources)
	if len(sources) == 0 {
		c.logger.Info("no active sources for category", slog.String("category", string(category)))
		return res, nil
	}

	outcomes := settle.All(ctx, sources, c.concurrency, func(ctx context.Context, src *entity.Source) (sourceItems, error) {
		items, err := c.fetcher.Fetch(ctx, src.FeedURL)
		return sourceItems{source: src, items: items}, err
	})

	var candidates []RawItem
	for i, o := range outcomes {
		if o.Err != nil {
			res.Errors++
			metrics.RecordSourceError(string(category), sources[i].Name)
			c.logger.Warn("failed to fetch feed",
				slog.String("category", string(category)),
				slog.String("source", sources[i].Name),
				slog.String("feed_url", sources[i].FeedURL),
				slog.Any("error", o.Err))
			continue
		}
		candidates = append(candidates, o.Value.items...)
	}
	res.Fetched = len(candidates)

	candidates = mostRecent(candidates, pageSize)

	part, err := c.dedup.Partition(ctx, candidates, category)
	if err != nil {
		return res, err
	}
	res.Duplicates = len(part.Duplicate)

	if len(part.New) > 0 {
		sourceOf := make(map[string]string, len(candidates))
		for _, o := range outcomes {
			if o.Err != nil {
				continue
			}
			for _, it := range o.Value.items {
				if _, ok := sourceOf[it.Link]; !ok {
					sourceOf[it.Link] = o.Value.source.Name
				}
			}
		}

		fetchedAt := c.now().UTC()
		articles := make([]*entity.Article, 0, len(part.New))
		for _, it := range part.New {
			articles = append(articles, toArticle(it, category, sourceOf[it.Link], fetchedAt))
		}

		insertStart := time.Now()
		inserted, err := c.articles.BulkInsert(ctx, articles)
		metrics.RecordDBQuery("bulk_insert", time.Since(insertStart))
		if err != nil {
			return res, fmt.Errorf("insert articles for %s: %w", category, err)
		}
		res.NewArticles = int(inserted)
		// 同時実行で先に挿入された分は重複として数える
		res.Duplicates += len(articles) - int(inserted)
	}

	metrics.RecordCategoryIngest(string(category), time.Since(start), res.NewArticles, res.Duplicates)
	c.logger.Info("category ingestion completed",
		slog.String("category", string(category)),
		slog.Int("sources", res.Sources),
		slog.Int("fetched", res.Fetched),
		slog.Int("new_articles", res.NewArticles),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("errors", res.Errors),
		slog.Duration("duration", time.Since(start)))

	return res, nil
}

// mostRecent orders items newest first and keeps at most n.
func mostRecent(items []RawItem, n int) []RawItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func toArticle(it RawItem, category entity.Category, source string, fetchedAt time.Time) *entity.Article {
	a := &entity.Article{
		ID:          uuid.NewString(),
		URL:         it.Link,
		Title:       it.Title,
		Description: it.Description,
		Source:      source,
		Category:    category,
		PublishedAt: it.PublishedAt.UTC(),
		FetchedAt:   fetchedAt,
	}
	if it.ImageURL != "" {
		img := it.ImageURL
		a.URLToImage = &img
	}
	return a
}
