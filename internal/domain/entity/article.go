// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Article, Source and Analysis,
// along with their validation rules and domain-specific errors.
package entity

import "time"

// Article represents a news article fetched from a feed.
// Identity is the (URL, Category) pair; the same URL may be stored once per category.
// Analysis fields stay nil until the analysis scheduler processes the article.
type Article struct {
	ID          string
	URL         string
	Title       string
	Description string
	URLToImage  *string
	Source      string
	Category    Category
	PublishedAt time.Time
	FetchedAt   time.Time

	Summary    *string
	BiasScore  *float64
	Analysis   *Analysis
	AnalyzedAt *time.Time
}

// IsAnalyzed reports whether the article has been processed by the analysis scheduler.
func (a *Article) IsAnalyzed() bool {
	return a.AnalyzedAt != nil
}

// HasImage reports whether a preview image is already known.
func (a *Article) HasImage() bool {
	return a.URLToImage != nil && *a.URLToImage != ""
}

// AnalysisUpdate is the single-row mutation applied once an article is analyzed.
type AnalysisUpdate struct {
	Summary    string
	BiasScore  float64
	Analysis   Analysis
	URLToImage string // empty keeps the current value
	AnalyzedAt time.Time
}

// PageMetadata is the best-effort metadata extracted from an article page.
type PageMetadata struct {
	Image       string
	Description string
}
