// Package analysis runs the AI bias analysis over stored articles.
//
// A Scheduler selects unanalyzed articles and analyzes them with bounded
// concurrency. Each model reply goes through a Pipeline (decode, normalize,
// validate) before it is written back, so only well-formed analyses are stored.
package analysis

import "errors"

var (
	// ErrMalformedResponse indicates that a model reply could not be decoded
	// or failed validation after normalization.
	ErrMalformedResponse = errors.New("malformed analysis response")

	// ErrInvalidLimit indicates a batch limit outside [MinLimit, MaxLimit].
	ErrInvalidLimit = errors.New("invalid batch limit")
)
