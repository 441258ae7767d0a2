// Package fetcher fetches article pages for the analysis pipeline: preview
// metadata (og:image and friends), readable article text, and Markdown
// conversion of feed HTML.
package fetcher

import "errors"

// Sentinel errors for page fetching.
var (
	// ErrInvalidURL indicates the URL is malformed or uses a scheme other than http/https.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the host resolves to a loopback, private or link-local address.
	ErrPrivateIP = errors.New("URL resolves to private IP address")

	// ErrTooManyRedirects indicates the redirect chain exceeded the configured hops.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("request timeout")

	// ErrReadabilityFailed indicates no readable content could be extracted.
	ErrReadabilityFailed = errors.New("content extraction failed")
)
