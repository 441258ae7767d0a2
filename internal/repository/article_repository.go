package repository

import (
	"context"
	"time"

	"biaswatch/internal/domain/entity"
)

// ArticleStats summarizes the article table for status reporting.
type ArticleStats struct {
	Total         int64                     `json:"total"`
	Analyzed      int64                     `json:"analyzed"`
	Unanalyzed    int64                     `json:"unanalyzed"`
	LastFetchedAt *time.Time                `json:"lastFetchedAt"`
	ByCategory    map[entity.Category]int64 `json:"byCategory"`
}

type ArticleRepository interface {
	// FindExistingURLs はバッチでURL存在チェックを行い、N+1問題を解消する.
	// The returned map only contains URLs already stored under the category.
	FindExistingURLs(ctx context.Context, category entity.Category, urls []string) (map[string]bool, error)
	// BulkInsert stores the articles in one statement and returns the number of rows written.
	// Rows conflicting on (url, category) are skipped.
	BulkInsert(ctx context.Context, articles []*entity.Article) (int64, error)
	// FindUnanalyzed returns up to limit articles without analysis, oldest fetched first.
	FindUnanalyzed(ctx context.Context, limit int) ([]*entity.Article, error)
	// UpdateAnalysis writes the analysis result for a single article.
	// Returns entity.ErrNotFound when no row has the given id.
	UpdateAnalysis(ctx context.Context, id string, update entity.AnalysisUpdate) error
	// SearchByText matches the query case-insensitively against title, description and summary.
	// Results are ordered by published_at DESC.
	SearchByText(ctx context.Context, query string, limit int) ([]*entity.Article, error)
	Stats(ctx context.Context) (ArticleStats, error)
}
