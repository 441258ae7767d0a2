// Package resilience groups the fault-tolerance helpers used around external calls.
//
//   - circuitbreaker: gobreaker-backed breakers, one per feed host and one per AI provider
//   - retry: exponential backoff with jitter, used for AI calls only
//
// Feed fetching never retries; a failing source is counted and skipped until the next run.
package resilience
