package ratelimit

import "time"

// NoOpMetrics discards all metrics.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordAllowed(string)                      {}
func (NoOpMetrics) RecordDenied(string)                       {}
func (NoOpMetrics) RecordCheckDuration(string, time.Duration) {}
func (NoOpMetrics) SetActiveKeys(string, int)                 {}
func (NoOpMetrics) RecordEviction(string, int)                {}
