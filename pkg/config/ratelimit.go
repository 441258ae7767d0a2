package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"biaswatch/pkg/ratelimit"
)

// ThrottleSettings is the complete throttling configuration.
type ThrottleSettings struct {
	Enabled         bool
	Policies        ratelimit.Policies
	MaxKeys         int
	CleanupInterval time.Duration
}

// LoadThrottleSettings loads throttle tiers from environment variables.
//
// Environment variables (per tier prefix STRICT, MODERATE, LENIENT, ANALYZE, SEARCH):
//   - RATE_LIMIT_ENABLED: enable throttling (default: true)
//   - RATE_LIMIT_<TIER>_MAX: requests per window
//   - RATE_LIMIT_<TIER>_WINDOW: window length
//   - RATE_LIMIT_MAX_KEYS: keys kept in memory per limiter (default: 10000)
//   - RATE_LIMIT_CLEANUP_INTERVAL: sweep interval for elapsed windows (default: 5m)
//
// Invalid values log a warning and fall back to the built-in tier.
func LoadThrottleSettings() ThrottleSettings {
	defaults := ratelimit.DefaultPolicies()
	return ThrottleSettings{
		Enabled: GetEnvBool("RATE_LIMIT_ENABLED", true),
		Policies: ratelimit.Policies{
			IngestAll:      loadPolicy("STRICT", defaults.IngestAll),
			IngestCategory: loadPolicy("MODERATE", defaults.IngestCategory),
			Status:         loadPolicy("LENIENT", defaults.Status),
			Analyze:        loadPolicy("ANALYZE", defaults.Analyze),
			Search:         loadPolicy("SEARCH", defaults.Search),
		},
		MaxKeys:         GetEnvIntInRange("RATE_LIMIT_MAX_KEYS", ratelimit.DefaultMaxKeys, 100, 1_000_000),
		CleanupInterval: GetEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

func loadPolicy(tier string, def ratelimit.Policy) ratelimit.Policy {
	p := def
	p.Max = GetEnvInt("RATE_LIMIT_"+tier+"_MAX", def.Max)
	p.Window = GetEnvDuration("RATE_LIMIT_"+tier+"_WINDOW", def.Window)
	if err := p.Validate(); err != nil {
		slog.Warn("invalid rate limit tier, using default",
			slog.String("tier", tier),
			slog.Int("default_max", def.Max),
			slog.String("default_window", def.Window.String()),
			slog.String("error", err.Error()))
		return def
	}
	return p
}

// ParseTrustedProxies parses CIDR ranges (or single addresses) into prefixes.
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
