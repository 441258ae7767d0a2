package ingest

import (
	"context"
	"fmt"
	"time"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/observability/metrics"
	"biaswatch/internal/repository"
)

// Partition splits candidates into items not yet stored and items already stored.
type Partition struct {
	New       []RawItem
	Duplicate []RawItem
}

// Deduplicator classifies candidates by their (url, category) identity.
// It never writes.
type Deduplicator struct {
	articles repository.ArticleRepository
}

// NewDeduplicator creates a Deduplicator backed by the article store.
func NewDeduplicator(articles repository.ArticleRepository) *Deduplicator {
	return &Deduplicator{articles: articles}
}

// Partition looks up every candidate link in one batched query.
// Repeated links within items count once as new; later repeats are duplicates.
func (d *Deduplicator) Partition(ctx context.Context, items []RawItem, category entity.Category) (Partition, error) {
	var p Partition
	if len(items) == 0 {
		return p, nil
	}

	urls := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.Link]; ok {
			continue
		}
		seen[it.Link] = struct{}{}
		urls = append(urls, it.Link)
	}

	start := time.Now()
	existing, err := d.articles.FindExistingURLs(ctx, category, urls)
	metrics.RecordDBQuery("find_existing_urls", time.Since(start))
	if err != nil {
		return p, fmt.Errorf("find existing urls: %w", err)
	}

	// バッチ内の重複リンクも重複扱い
	taken := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := taken[it.Link]; dup || existing[it.Link] {
			p.Duplicate = append(p.Duplicate, it)
			continue
		}
		taken[it.Link] = struct{}{}
		p.New = append(p.New, it)
	}
	return p, nil
}
