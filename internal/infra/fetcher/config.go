package fetcher

import (
	"fmt"
	"time"

	"biaswatch/pkg/config"
)

// Config controls page fetching for metadata extraction and content enhancement.
type Config struct {
	// Enabled toggles readability content enhancement. Metadata extraction is always on.
	// Default: true
	Enabled bool

	// Threshold is the description length (in characters) below which the
	// full page is fetched to enrich the analysis input.
	// Default: 400
	Threshold int

	// Timeout bounds a readability page fetch.
	// Default: 10s
	Timeout time.Duration

	// MetadataTimeout bounds a metadata (preview image) fetch.
	// Default: 3s
	MetadataTimeout time.Duration

	// MaxBodySize caps the bytes read from a page.
	// Default: 5MB
	MaxBodySize int64

	// MaxRedirects is the number of redirect hops followed before failing.
	// Default: 3
	MaxRedirects int

	// DenyPrivateIPs blocks hosts resolving to internal addresses.
	// Should always be true in production.
	// Default: true
	DenyPrivateIPs bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Threshold:       400,
		Timeout:         10 * time.Second,
		MetadataTimeout: 3 * time.Second,
		MaxBodySize:     5 * 1024 * 1024,
		MaxRedirects:    3,
		DenyPrivateIPs:  true,
	}
}

// Validate checks that limits are within safe bounds.
func (c *Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if err := config.ValidatePositiveDuration(c.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	if err := config.ValidatePositiveDuration(c.MetadataTimeout); err != nil {
		return fmt.Errorf("metadata timeout: %w", err)
	}
	minBodySize := int64(1024)
	maxBodySize := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv reads PAGE_FETCH_* variables over the defaults.
//
// Environment variables:
//   - PAGE_FETCH_ENABLED (default: true)
//   - PAGE_FETCH_THRESHOLD (default: 400)
//   - PAGE_FETCH_TIMEOUT (default: 10s)
//   - PAGE_FETCH_METADATA_TIMEOUT (default: 3s)
//   - PAGE_FETCH_MAX_BODY_SIZE (default: 5242880)
//   - PAGE_FETCH_MAX_REDIRECTS (default: 3)
//   - PAGE_FETCH_DENY_PRIVATE_IPS (default: true)
func LoadConfigFromEnv() (Config, error) {
	def := DefaultConfig()
	cfg := Config{
		Enabled:         config.GetEnvBool("PAGE_FETCH_ENABLED", def.Enabled),
		Threshold:       config.GetEnvInt("PAGE_FETCH_THRESHOLD", def.Threshold),
		Timeout:         config.GetEnvDuration("PAGE_FETCH_TIMEOUT", def.Timeout),
		MetadataTimeout: config.GetEnvDuration("PAGE_FETCH_METADATA_TIMEOUT", def.MetadataTimeout),
		MaxBodySize:     int64(config.GetEnvInt("PAGE_FETCH_MAX_BODY_SIZE", int(def.MaxBodySize))),
		MaxRedirects:    config.GetEnvInt("PAGE_FETCH_MAX_REDIRECTS", def.MaxRedirects),
		DenyPrivateIPs:  config.GetEnvBool("PAGE_FETCH_DENY_PRIVATE_IPS", def.DenyPrivateIPs),
	}
	if err := cfg.Validate(); err != nil {
		return def, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
