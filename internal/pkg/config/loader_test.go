package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvString(t *testing.T) {
	t.Setenv("BW_TEST_STRING", "  valor ")
	assert.Equal(t, "valor", LoadEnvString("BW_TEST_STRING", "def"))

	t.Setenv("BW_TEST_STRING", "   ")
	assert.Equal(t, "def", LoadEnvString("BW_TEST_STRING", "def"))
}

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		env          string
		want         string
		wantFallback bool
	}{
		{"unset uses default", "", "*/30 * * * *", false},
		{"valid value", "0 6 * * *", "0 6 * * *", false},
		{"descriptor", "@hourly", "@hourly", false},
		{"invalid value falls back", "every morning", "*/30 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BW_TEST_CRON", tt.env)
			r := LoadEnvWithFallback("BW_TEST_CRON", "*/30 * * * *", ValidateCronSchedule)

			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied())
			if tt.wantFallback {
				assert.Contains(t, r.Warning("BW_TEST_CRON"), `BW_TEST_CRON="every morning"`)
			} else {
				assert.Empty(t, r.Warning("BW_TEST_CRON"))
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	tests := []struct {
		env          string
		want         int
		wantFallback bool
	}{
		{"", 10, false},
		{"25", 25, false},
		{" 7 ", 7, false},
		{"0", 10, true},
		{"51", 10, true},
		{"diez", 10, true},
		{"2.5", 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("BW_TEST_INT", tt.env)
			r := LoadEnvInt("BW_TEST_INT", 10, Range(1, 50))
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied())
		})
	}
}

func TestLoadEnvDuration(t *testing.T) {
	tests := []struct {
		env          string
		want         time.Duration
		wantFallback bool
	}{
		{"", 30 * time.Minute, false},
		{"1h30m", 90 * time.Minute, false},
		{"30", 30 * time.Minute, true},
		{"10s", 30 * time.Minute, true},
		{"5h", 30 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("BW_TEST_DURATION", tt.env)
			r := LoadEnvDuration("BW_TEST_DURATION", 30*time.Minute, DurationRange(time.Minute, 4*time.Hour))
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied())
		})
	}
}

func TestLoadEnvBool(t *testing.T) {
	t.Setenv("BW_TEST_BOOL", "true")
	assert.True(t, LoadEnvBool("BW_TEST_BOOL", false).Value)

	t.Setenv("BW_TEST_BOOL", "quizas")
	r := LoadEnvBool("BW_TEST_BOOL", true)
	assert.True(t, r.Value)
	assert.True(t, r.FallbackApplied())
}

func TestLoader_RecordsFallbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewConfigMetrics("test", reg)
	var buf bytes.Buffer
	loader := NewLoader(slog.New(slog.NewJSONHandler(&buf, nil)), metrics)

	t.Setenv("BW_TEST_TZ", "Mars/Olympus")
	t.Setenv("BW_TEST_PORT", "9100")

	tz := Apply(loader, "timezone", "BW_TEST_TZ", LoadEnvWithFallback("BW_TEST_TZ", "Europe/Madrid", ValidateTimezone))
	port := Apply(loader, "health_port", "BW_TEST_PORT", LoadEnvInt("BW_TEST_PORT", 9091, Range(1024, 65535)))
	fallbacks := loader.Finish()

	assert.Equal(t, "Europe/Madrid", tz)
	assert.Equal(t, 9100, port)
	assert.Equal(t, []string{"timezone"}, fallbacks)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("timezone")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("timezone")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("health_port")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), float64(0))

	assert.Contains(t, buf.String(), "configuration fallback applied")
	assert.Contains(t, buf.String(), "Mars/Olympus")
}

func TestLoader_NoFallback(t *testing.T) {
	metrics := NewConfigMetrics("clean", prometheus.NewRegistry())
	loader := NewLoader(nil, metrics)

	t.Setenv("BW_TEST_PORT", "")
	Apply(loader, "health_port", "BW_TEST_PORT", LoadEnvInt("BW_TEST_PORT", 9091, Range(1024, 65535)))

	assert.Empty(t, loader.Finish())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.FallbackActive))
}

func TestNewConfigMetrics_DuplicateComponentPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewConfigMetrics("dup", reg)
	require.Panics(t, func() { NewConfigMetrics("dup", reg) })
}
