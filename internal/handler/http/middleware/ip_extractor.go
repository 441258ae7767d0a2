// Package middleware holds per-route HTTP middleware: client address
// resolution and request throttling.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"biaswatch/pkg/config"
)

// IPExtractor resolves the client address of a request.
type IPExtractor interface {
	ExtractIP(r *http.Request) (string, error)
}

// RemoteAddrExtractor uses the TCP peer address only. It cannot be spoofed
// and is the default.
type RemoteAddrExtractor struct{}

// ExtractIP strips the port from r.RemoteAddr.
//
//   - "192.168.1.1:54321" → "192.168.1.1"
//   - "[2001:db8::1]:8080" → "2001:db8::1"
//   - "127.0.0.1" → "127.0.0.1"
func (RemoteAddrExtractor) ExtractIP(r *http.Request) (string, error) {
	return extractIPFromAddr(r.RemoteAddr)
}

// TrustedProxyConfig lists the reverse proxies whose forwarding headers are
// believed.
type TrustedProxyConfig struct {
	Enabled      bool
	AllowedCIDRs []netip.Prefix
}

// IsTrusted reports whether remoteAddr belongs to a trusted proxy.
func (c TrustedProxyConfig) IsTrusted(remoteAddr string) bool {
	ip, err := extractIPFromAddr(remoteAddr)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range c.AllowedCIDRs {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// LoadTrustedProxyConfig reads RATE_LIMIT_TRUST_PROXY and
// RATE_LIMIT_TRUSTED_PROXIES (comma-separated IPs or CIDRs).
// Enabling trust without any valid proxy is a startup error.
func LoadTrustedProxyConfig() (TrustedProxyConfig, error) {
	cfg := TrustedProxyConfig{Enabled: config.GetEnvBool("RATE_LIMIT_TRUST_PROXY", false)}
	if !cfg.Enabled {
		return cfg, nil
	}

	entries := config.GetEnvStringList("RATE_LIMIT_TRUSTED_PROXIES", nil)
	if len(entries) == 0 {
		return TrustedProxyConfig{}, fmt.Errorf("RATE_LIMIT_TRUST_PROXY is enabled but RATE_LIMIT_TRUSTED_PROXIES is empty")
	}
	prefixes, err := config.ParseTrustedProxies(entries)
	if err != nil {
		return TrustedProxyConfig{}, fmt.Errorf("RATE_LIMIT_TRUSTED_PROXIES: %w", err)
	}
	cfg.AllowedCIDRs = prefixes
	return cfg, nil
}

// TrustedProxyExtractor believes X-Forwarded-For (first entry) and then
// X-Real-IP, but only when the peer is a trusted proxy. Otherwise it falls
// back to RemoteAddr.
type TrustedProxyExtractor struct {
	config TrustedProxyConfig
	logger *slog.Logger
}

// NewTrustedProxyExtractor creates a TrustedProxyExtractor.
func NewTrustedProxyExtractor(cfg TrustedProxyConfig, logger *slog.Logger) *TrustedProxyExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustedProxyExtractor{config: cfg, logger: logger}
}

// NewIPExtractor returns a TrustedProxyExtractor when proxy trust is
// enabled, else a RemoteAddrExtractor.
func NewIPExtractor(cfg TrustedProxyConfig, logger *slog.Logger) IPExtractor {
	if cfg.Enabled {
		return NewTrustedProxyExtractor(cfg, logger)
	}
	return RemoteAddrExtractor{}
}

func (e *TrustedProxyExtractor) ExtractIP(r *http.Request) (string, error) {
	if !e.config.Enabled {
		return extractIPFromAddr(r.RemoteAddr)
	}

	xff := r.Header.Get("X-Forwarded-For")
	xri := r.Header.Get("X-Real-IP")

	if !e.config.IsTrusted(r.RemoteAddr) {
		if xff != "" || xri != "" {
			e.logger.Warn("forwarding headers from untrusted peer ignored",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("x_forwarded_for", xff),
				slog.String("x_real_ip", xri))
		}
		return extractIPFromAddr(r.RemoteAddr)
	}

	if ip := parseFirstIP(xff); ip != "" {
		return ip, nil
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
		return addr.Unmap().String(), nil
	}
	return extractIPFromAddr(r.RemoteAddr)
}

// extractIPFromAddr accepts "host:port", "[v6]:port" or a bare address.
func extractIPFromAddr(addr string) (string, error) {
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap().String(), nil
	}
	if a, err := netip.ParseAddr(strings.Trim(addr, "[]")); err == nil {
		return a.Unmap().String(), nil
	}
	return "", fmt.Errorf("invalid address format: %q", addr)
}

// parseFirstIP returns the first entry of a "client, proxy1, proxy2" list,
// or "" when that entry is not an address.
func parseFirstIP(list string) string {
	first, _, _ := strings.Cut(list, ",")
	addr, err := netip.ParseAddr(strings.TrimSpace(first))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}
