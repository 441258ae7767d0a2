// Package ratelimit implements fixed-window request throttling with pluggable
// storage, clocks and metrics.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a caller key may proceed under one policy.
type Limiter interface {
	// Check counts the request against key and returns the decision.
	// Every call is counted, whatever the eventual outcome of the request.
	Check(ctx context.Context, key string) (*RateLimitDecision, error)

	// Policy returns the policy the limiter enforces.
	Policy() Policy
}

// WindowStore keeps per-key fixed-window counters.
//
// Implementations must make Increment atomic: the window reset check and the
// counter increment happen under a single lock acquisition.
type WindowStore interface {
	// Increment counts one request for key at now. A missing or elapsed window
	// is replaced by a fresh one starting at now.
	// Returns the count in the current window (including this request) and the window start.
	// A store at capacity returns ErrStoreFull for a new key, together with the
	// start of its oldest live window.
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (count int, windowStart time.Time, err error)

	// Cleanup removes windows that have elapsed at now and returns how many were removed.
	Cleanup(ctx context.Context, now time.Time, window time.Duration) (int, error)

	// KeyCount returns the number of keys currently tracked.
	KeyCount(ctx context.Context) (int, error)
}

// RateLimitMetrics records throttle activity. Labels use the policy name.
type RateLimitMetrics interface {
	RecordAllowed(policy string)
	RecordDenied(policy string)
	RecordCheckDuration(policy string, duration time.Duration)
	SetActiveKeys(policy string, count int)
	RecordEviction(policy string, count int)
}

// Clock provides an abstraction for time operations to enable testing.
type Clock interface {
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
