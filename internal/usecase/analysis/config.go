package analysis

import (
	"fmt"
	"time"

	"biaswatch/pkg/config"
)

// Batch limit bounds for one analysis run.
const (
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 50
)

// Concurrency bounds. AI calls are expensive and rate limited upstream,
// so the pool stays small.
const (
	MinConcurrency     = 3
	MaxConcurrency     = 5
	DefaultConcurrency = MinConcurrency
)

// Config controls a Scheduler.
type Config struct {
	// Concurrency is the number of articles analyzed at once, clamped to [3, 5].
	Concurrency int

	// BatchTimeout bounds the whole batch. It stays below the 180s HTTP
	// handler timeout so a response is always written.
	BatchTimeout time.Duration

	// CallTimeout bounds a single AI call.
	CallTimeout time.Duration

	// RatePerMinute paces AI calls. Zero disables pacing.
	RatePerMinute int

	// ContentThreshold is the description length in runes below which
	// the page text is fetched.
	ContentThreshold int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:      DefaultConcurrency,
		BatchTimeout:     170 * time.Second,
		CallTimeout:      45 * time.Second,
		RatePerMinute:    30,
		ContentThreshold: DefaultContentThreshold,
	}
}

// LoadConfigFromEnv reads ANALYSIS_* variables on top of DefaultConfig.
//
//   - ANALYSIS_CONCURRENCY (default 3, clamped to 3..5)
//   - ANALYSIS_BATCH_TIMEOUT (default 170s)
//   - ANALYSIS_CALL_TIMEOUT (default 45s)
//   - ANALYSIS_RATE_PER_MINUTE (default 30, 0 disables pacing)
//   - ANALYSIS_CONTENT_THRESHOLD (default 400)
func LoadConfigFromEnv() Config {
	d := DefaultConfig()
	return Config{
		Concurrency:      config.GetEnvIntInRange("ANALYSIS_CONCURRENCY", d.Concurrency, MinConcurrency, MaxConcurrency),
		BatchTimeout:     config.GetEnvDuration("ANALYSIS_BATCH_TIMEOUT", d.BatchTimeout),
		CallTimeout:      config.GetEnvDuration("ANALYSIS_CALL_TIMEOUT", d.CallTimeout),
		RatePerMinute:    config.GetEnvInt("ANALYSIS_RATE_PER_MINUTE", d.RatePerMinute),
		ContentThreshold: config.GetEnvInt("ANALYSIS_CONTENT_THRESHOLD", d.ContentThreshold),
	}
}

// Validate checks the timeouts and rate.
func (c Config) Validate() error {
	if err := config.ValidatePositiveDuration(c.BatchTimeout); err != nil {
		return fmt.Errorf("batch timeout: %w", err)
	}
	if err := config.ValidatePositiveDuration(c.CallTimeout); err != nil {
		return fmt.Errorf("call timeout: %w", err)
	}
	if c.CallTimeout > c.BatchTimeout {
		return fmt.Errorf("call timeout %v exceeds batch timeout %v", c.CallTimeout, c.BatchTimeout)
	}
	if c.RatePerMinute < 0 {
		return fmt.Errorf("rate per minute must not be negative, got %d", c.RatePerMinute)
	}
	return nil
}

// ClampConcurrency forces n into [MinConcurrency, MaxConcurrency].
func ClampConcurrency(n int) int {
	return min(max(n, MinConcurrency), MaxConcurrency)
}

// ValidateLimit checks that n is within [MinLimit, MaxLimit].
func ValidateLimit(n int) error {
	if n < MinLimit || n > MaxLimit {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidLimit, n, MinLimit, MaxLimit)
	}
	return nil
}
