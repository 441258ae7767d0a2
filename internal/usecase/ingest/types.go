package ingest

import (
	"context"
	"fmt"
	"time"

	"biaswatch/internal/domain/entity"
)

// Page size bounds for a single category ingestion.
const (
	DefaultPageSize = 20
	MinPageSize     = 1
	MaxPageSize     = 100
)

// ValidatePageSize checks that n is within [MinPageSize, MaxPageSize].
func ValidatePageSize(n int) error {
	if n < MinPageSize || n > MaxPageSize {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidPageSize, n, MinPageSize, MaxPageSize)
	}
	return nil
}

// RawItem is one entry parsed from a feed, before deduplication.
// Link is already normalized by the fetcher.
type RawItem struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
	ImageURL    string
}

// FeedFetcher retrieves the current items of one feed.
// Failures wrap ErrFeedUnreachable. Implementations do not retry.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]RawItem, error)
}

// Result is the outcome of ingesting one category.
type Result struct {
	Category    entity.Category `json:"category"`
	Sources     int             `json:"sources"`
	Fetched     int             `json:"fetched"`
	NewArticles int             `json:"newArticles"`
	Duplicates  int             `json:"duplicates"`
	Errors      int             `json:"errors"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"durationMs"`
}

// Summary is the outcome of ingesting every category.
type Summary struct {
	Processed        int                        `json:"processed"`
	Errors           int                        `json:"errors"`
	TotalNewArticles int                        `json:"totalNewArticles"`
	TotalDuplicates  int                        `json:"totalDuplicates"`
	CategoryResults  map[entity.Category]Result `json:"categoryResults"`
	DurationMs       int64                      `json:"durationMs"`
}
