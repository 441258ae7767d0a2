package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration validates that a duration is greater than zero.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateDurationRange validates that lo <= d <= hi.
func ValidateDurationRange(d, lo, hi time.Duration) error {
	if lo > hi {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", lo, hi)
	}
	if d < lo {
		return fmt.Errorf("duration %v is below minimum %v", d, lo)
	}
	if d > hi {
		return fmt.Errorf("duration %v exceeds maximum %v", d, hi)
	}
	return nil
}
