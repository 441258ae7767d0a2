package middleware

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTrustedProxyConfig_Disabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_TRUST_PROXY", "false")
	t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "10.0.0.0/8")

	cfg, err := LoadTrustedProxyConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.AllowedCIDRs)
}

func TestLoadTrustedProxyConfig_Enabled(t *testing.T) {
	t.Setenv("RATE_LIMIT_TRUST_PROXY", "true")
	t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7, 2001:db8::/32")

	cfg, err := LoadTrustedProxyConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.7/32"),
		netip.MustParsePrefix("2001:db8::/32"),
	}, cfg.AllowedCIDRs)

	assert.True(t, cfg.IsTrusted("10.20.30.40:5555"))
	assert.True(t, cfg.IsTrusted("192.168.1.7:80"))
	assert.True(t, cfg.IsTrusted("[2001:db8::5]:443"))
	assert.False(t, cfg.IsTrusted("192.168.1.8:80"))
	assert.False(t, cfg.IsTrusted("garbage"))
}

func TestLoadTrustedProxyConfig_Errors(t *testing.T) {
	tests := map[string]string{
		"empty list":   "",
		"invalid cidr": "10.0.0.0/99",
		"not an ip":    "proxy.internal",
	}
	for name, proxies := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("RATE_LIMIT_TRUST_PROXY", "true")
			t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", proxies)

			_, err := LoadTrustedProxyConfig()
			assert.Error(t, err)
		})
	}
}
