// Package config loads long-running process settings from the environment.
//
// Loading is fail-open: a missing value yields the default silently, and an
// invalid value yields the default with a warning and a fallback metric.
// The process always starts with a usable configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one setting.
type Result[T any] struct {
	Value T
	// Raw is the environment value as read, "" when unset.
	Raw string
	// Err is the parse or validation error that caused a fallback.
	Err error
}

// FallbackApplied reports whether the default replaced an invalid value.
func (r Result[T]) FallbackApplied() bool { return r.Err != nil }

// Warning describes the fallback, or "" when none was applied.
func (r Result[T]) Warning(envKey string) string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("invalid %s=%q: %v, falling back to default %v", envKey, r.Raw, r.Err, r.Value)
}

// LoadEnvString returns the variable, or defaultValue when unset or blank.
func LoadEnvString(envKey, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return defaultValue
}

// LoadEnvWithFallback loads a string setting. validator may be nil.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) Result[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvInt loads an integer setting. validator may be nil.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result[int] {
	return load(envKey, defaultValue, strconv.Atoi, validator)
}

// LoadEnvDuration loads a duration setting ("90s", "30m"). validator may be nil.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	return load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvBool loads a boolean setting in strconv.ParseBool syntax.
func LoadEnvBool(envKey string, defaultValue bool) Result[bool] {
	return load(envKey, defaultValue, strconv.ParseBool, nil)
}

func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) Result[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return Result[T]{Value: defaultValue}
	}

	v, err := parse(raw)
	if err != nil {
		return Result[T]{Value: defaultValue, Raw: raw, Err: fmt.Errorf("parse: %w", err)}
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return Result[T]{Value: defaultValue, Raw: raw, Err: err}
		}
	}
	return Result[T]{Value: v, Raw: raw}
}

// Loader applies results while logging and counting fallbacks.
type Loader struct {
	logger  *slog.Logger
	metrics *ConfigMetrics

	fallbacks []string
}

// NewLoader creates a Loader. metrics may be nil.
func NewLoader(logger *slog.Logger, metrics *ConfigMetrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, metrics: metrics}
}

// Apply returns r.Value and records the fallback, if any, under field.
func Apply[T any](l *Loader, field, envKey string, r Result[T]) T {
	if !r.FallbackApplied() {
		return r.Value
	}
	l.fallbacks = append(l.fallbacks, field)
	l.logger.Warn("configuration fallback applied",
		slog.String("field", field),
		slog.String("env_key", envKey),
		slog.String("warning", r.Warning(envKey)))
	if l.metrics != nil {
		l.metrics.RecordValidationError(field)
		l.metrics.RecordFallback(field)
	}
	return r.Value
}

// Finish publishes the load timestamp and whether any fallback is active.
// It returns the fields that fell back, in load order.
func (l *Loader) Finish() []string {
	if l.metrics != nil {
		l.metrics.SetFallbackActive(len(l.fallbacks) > 0)
		l.metrics.RecordLoadTimestamp()
	}
	return l.fallbacks
}
