package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// WindowLimiter enforces one Policy with fixed windows per caller key.
type WindowLimiter struct {
	policy  Policy
	store   WindowStore
	clock   Clock
	metrics RateLimitMetrics
}

// Option configures a WindowLimiter.
type Option func(*WindowLimiter)

// WithStore replaces the default in-memory store.
func WithStore(store WindowStore) Option {
	return func(l *WindowLimiter) { l.store = store }
}

// WithClock replaces the system clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(l *WindowLimiter) { l.clock = clock }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(metrics RateLimitMetrics) Option {
	return func(l *WindowLimiter) { l.metrics = metrics }
}

// NewWindowLimiter creates a limiter for policy. Each protected route should own
// its limiter so tiers never share counters.
func NewWindowLimiter(policy Policy, opts ...Option) (*WindowLimiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	l := &WindowLimiter{
		policy:  policy,
		store:   NewInMemoryWindowStore(DefaultMaxKeys),
		clock:   &SystemClock{},
		metrics: NoOpMetrics{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Policy implements Limiter.
func (l *WindowLimiter) Policy() Policy {
	return l.policy
}

// Check implements Limiter.
func (l *WindowLimiter) Check(ctx context.Context, key string) (*RateLimitDecision, error) {
	start := time.Now()
	defer func() {
		l.metrics.RecordCheckDuration(l.policy.Name, time.Since(start))
	}()

	now := l.clock.Now()
	count, windowStart, err := l.store.Increment(ctx, key, now, l.policy.Window)
	if errors.Is(err, ErrStoreFull) {
		// 既存キーのカウンタは守り、新規キーを拒否する
		l.metrics.RecordDenied(l.policy.Name)
		return NewDeniedDecision(key, l.policy, windowStart.Add(l.policy.Window), now), nil
	}
	if err != nil {
		return nil, fmt.Errorf("rate limit check for %s: %w", l.policy.Name, err)
	}

	resetAt := windowStart.Add(l.policy.Window)
	if count > l.policy.Max {
		l.metrics.RecordDenied(l.policy.Name)
		return NewDeniedDecision(key, l.policy, resetAt, now), nil
	}

	l.metrics.RecordAllowed(l.policy.Name)
	return NewAllowedDecision(key, l.policy, l.policy.Max-count, resetAt), nil
}

// Sweep removes elapsed windows once and updates the active-key gauge.
func (l *WindowLimiter) Sweep(ctx context.Context) (int, error) {
	removed, err := l.store.Cleanup(ctx, l.clock.Now(), l.policy.Window)
	if err != nil {
		return 0, err
	}
	if n, err := l.store.KeyCount(ctx); err == nil {
		l.metrics.SetActiveKeys(l.policy.Name, n)
	}
	if removed > 0 {
		l.metrics.RecordEviction(l.policy.Name, removed)
	}
	return removed, nil
}

// StartCleanup sweeps elapsed windows every interval until ctx is cancelled.
func (l *WindowLimiter) StartCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = l.policy.Window
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := l.Sweep(ctx)
				if err != nil {
					if ctx.Err() == nil {
						logger.Warn("rate limit cleanup failed",
							slog.String("policy", l.policy.Name),
							slog.Any("error", err))
					}
					continue
				}
				if removed > 0 {
					logger.Debug("rate limit windows cleaned up",
						slog.String("policy", l.policy.Name),
						slog.Int("removed", removed))
				}
			}
		}
	}()
}
