package ratelimit

import (
	"fmt"
	"time"
)

// Policy is one throttle tier: at most Max requests per Window for each caller key.
type Policy struct {
	Name    string
	Window  time.Duration
	Max     int
	Message string
}

// Validate checks that the policy can be enforced.
func (p Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPolicy)
	}
	if p.Window <= 0 {
		return fmt.Errorf("%w: %s window must be positive, got %v", ErrInvalidPolicy, p.Name, p.Window)
	}
	if p.Max <= 0 {
		return fmt.Errorf("%w: %s max must be positive, got %d", ErrInvalidPolicy, p.Name, p.Max)
	}
	return nil
}

// Default tiers. Each protected route gets its own limiter instance built from one of these.
var (
	// StrictPolicy guards global ingestion (one fan-out fetches every feed).
	StrictPolicy = Policy{
		Name:    "ingest-all",
		Window:  time.Hour,
		Max:     5,
		Message: "Too many global ingestion requests, please try again later",
	}

	// ModeratePolicy guards single-category ingestion.
	ModeratePolicy = Policy{
		Name:    "ingest-category",
		Window:  15 * time.Minute,
		Max:     30,
		Message: "Too many ingestion requests, please try again later",
	}

	// LenientPolicy guards status polling.
	LenientPolicy = Policy{
		Name:    "status",
		Window:  time.Minute,
		Max:     60,
		Message: "Too many status requests, please slow down",
	}

	// AnalyzePolicy guards batch analysis; moderate tier with its own counters.
	AnalyzePolicy = Policy{
		Name:    "analyze-batch",
		Window:  15 * time.Minute,
		Max:     30,
		Message: "Too many analysis requests, please try again later",
	}

	// SearchPolicy guards search; lenient tier with its own counters.
	SearchPolicy = Policy{
		Name:    "search",
		Window:  time.Minute,
		Max:     60,
		Message: "Too many search requests, please slow down",
	}
)

// Policies groups the tier configuration for every protected route.
type Policies struct {
	IngestAll      Policy
	IngestCategory Policy
	Status         Policy
	Analyze        Policy
	Search         Policy
}

// DefaultPolicies returns the built-in tier configuration.
func DefaultPolicies() Policies {
	return Policies{
		IngestAll:      StrictPolicy,
		IngestCategory: ModeratePolicy,
		Status:         LenientPolicy,
		Analyze:        AnalyzePolicy,
		Search:         SearchPolicy,
	}
}
