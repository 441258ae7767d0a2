package ratelimit

import (
	"fmt"
	"time"
)

// RateLimitDecision represents the result of a throttle check.
//
// It carries everything the HTTP layer needs to build X-RateLimit-* headers,
// Retry-After, and the 429 response body.
type RateLimitDecision struct {
	// Key is the caller key the decision was made for ("ip:..." or "user:...").
	Key string

	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the maximum number of requests in one window.
	Limit int

	// Remaining is how many more requests the key may make in the current window.
	Remaining int

	// Window is the policy window length.
	Window time.Duration

	// ResetAt is when the current window ends.
	ResetAt time.Time

	// RetryAfter is how long a denied caller should wait. Zero when allowed.
	RetryAfter time.Duration

	// Policy is the name of the policy that produced the decision.
	Policy string
}

// String returns a human-readable representation used in debug logs.
func (d *RateLimitDecision) String() string {
	if d.Allowed {
		return fmt.Sprintf(
			"RateLimitDecision{Allowed: true, Key: %s, Policy: %s, Remaining: %d/%d, ResetAt: %s}",
			d.Key, d.Policy, d.Remaining, d.Limit, d.ResetAt.Format(time.RFC3339),
		)
	}
	return fmt.Sprintf(
		"RateLimitDecision{Allowed: false, Key: %s, Policy: %s, Limit: %d, RetryAfter: %s, ResetAt: %s}",
		d.Key, d.Policy, d.Limit, d.RetryAfter.String(), d.ResetAt.Format(time.RFC3339),
	)
}

// ResetAtUnix returns the reset time as a Unix timestamp (seconds since epoch).
func (d *RateLimitDecision) ResetAtUnix() int64 {
	return d.ResetAt.Unix()
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, as used by
// the Retry-After header. A denied decision never reports zero.
func (d *RateLimitDecision) RetryAfterSeconds() int64 {
	if d.RetryAfter <= 0 {
		if d.Allowed {
			return 0
		}
		return 1
	}
	seconds := int64(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		seconds++
	}
	return seconds
}

// WindowMillis returns the policy window in milliseconds.
func (d *RateLimitDecision) WindowMillis() int64 {
	return d.Window.Milliseconds()
}

// NewAllowedDecision creates a decision for a request within the limit.
func NewAllowedDecision(key string, p Policy, remaining int, resetAt time.Time) *RateLimitDecision {
	return &RateLimitDecision{
		Key:       key,
		Allowed:   true,
		Limit:     p.Max,
		Remaining: remaining,
		Window:    p.Window,
		ResetAt:   resetAt,
		Policy:    p.Name,
	}
}

// NewDeniedDecision creates a decision for a request over the limit.
func NewDeniedDecision(key string, p Policy, resetAt, now time.Time) *RateLimitDecision {
	retryAfter := resetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &RateLimitDecision{
		Key:        key,
		Allowed:    false,
		Limit:      p.Max,
		Remaining:  0,
		Window:     p.Window,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
		Policy:     p.Name,
	}
}
