package ratelimit

import "errors"

var (
	// ErrRateLimitExceeded is returned to callers that need an error value for a denied decision.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidPolicy indicates a policy that cannot be enforced.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")

	// ErrStoreFull is returned by a store that cannot track a new key without
	// dropping a live window.
	ErrStoreFull = errors.New("rate limit store full")
)
