package auth

import "strings"

// PublicEndpoints are reachable without a token: orchestration probes and
// Prometheus scraping.
var PublicEndpoints = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// IsPublicEndpoint reports whether path is public. Matching is exact, with
// an optional trailing slash, so /health does not cover /healthcheck or
// /health/detail.
func IsPublicEndpoint(path string) bool {
	path = strings.TrimSuffix(path, "/")
	for _, endpoint := range PublicEndpoints {
		if path == endpoint {
			return true
		}
	}
	return false
}
