package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard five-field expressions and descriptors such as "@hourly".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return errors.New("cron schedule cannot be empty")
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateTimezone checks an IANA zone name such as "Europe/Madrid".
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return errors.New("timezone cannot be empty")
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return nil
}

// ValidateDuration checks that d is within [lo, hi].
func ValidateDuration(d, lo, hi time.Duration) error {
	if lo > hi {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", lo, hi)
	}
	if d < lo || d > hi {
		return fmt.Errorf("duration %v must be between %v and %v", d, lo, hi)
	}
	return nil
}

// ValidateIntRange checks that v is within [lo, hi].
func ValidateIntRange(v, lo, hi int) error {
	if lo > hi {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", lo, hi)
	}
	if v < lo || v > hi {
		return fmt.Errorf("value %d must be between %d and %d", v, lo, hi)
	}
	return nil
}

// Range adapts ValidateIntRange for LoadEnvInt.
func Range(lo, hi int) func(int) error {
	return func(v int) error { return ValidateIntRange(v, lo, hi) }
}

// DurationRange adapts ValidateDuration for LoadEnvDuration.
func DurationRange(lo, hi time.Duration) func(time.Duration) error {
	return func(d time.Duration) error { return ValidateDuration(d, lo, hi) }
}
