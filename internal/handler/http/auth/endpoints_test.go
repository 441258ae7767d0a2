package auth

import "testing"

func TestIsPublicEndpoint(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/health", true},
		{"/health/", true},
		{"/ready", true},
		{"/live", true},
		{"/metrics", true},
		{"/healthcheck", false},
		{"/health/detail", false},
		{"/ingest/news", false},
		{"/ingest/status", false},
		{"/analyze/batch", false},
		{"/news/search", false},
		{"/", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsPublicEndpoint(tt.path); got != tt.expected {
				t.Errorf("IsPublicEndpoint(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}
