// Package ingest pulls articles from feed sources, separates new articles
// from ones already stored, and persists the new ones, per category or
// across every category.
package ingest

import "errors"

// Sentinel errors for ingestion.
var (
	// ErrFeedUnreachable indicates a feed could not be fetched or parsed
	// (network error, timeout, HTTP error, unparsable document). It is
	// transient: the source is retried at the next scheduled ingestion.
	ErrFeedUnreachable = errors.New("feed unreachable")

	// ErrInvalidPageSize indicates a page size outside [MinPageSize, MaxPageSize].
	ErrInvalidPageSize = errors.New("invalid page size")
)
