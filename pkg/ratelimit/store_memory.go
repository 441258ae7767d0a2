package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxKeys bounds memory use of an in-memory store.
const DefaultMaxKeys = 10000

// Window is the counter state for one caller key.
type Window struct {
	Count int
	Start time.Time
}

// InMemoryWindowStore is a process-local WindowStore guarded by a mutex.
// State is lost on restart and not shared across instances.
type InMemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*Window
	maxKeys int
}

// NewInMemoryWindowStore creates a store holding at most maxKeys keys.
// A non-positive maxKeys uses DefaultMaxKeys. Live windows are never dropped
// to make room: once full, new keys are refused until a window elapses.
func NewInMemoryWindowStore(maxKeys int) *InMemoryWindowStore {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &InMemoryWindowStore{
		windows: make(map[string]*Window),
		maxKeys: maxKeys,
	}
}

// Increment implements WindowStore.
func (s *InMemoryWindowStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return 0, time.Time{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok && len(s.windows) >= s.maxKeys {
		if oldest, full := s.dropElapsedLocked(now, window); full {
			return 0, oldest, ErrStoreFull
		}
	}
	if !ok || now.Sub(w.Start) >= window {
		w = &Window{Start: now}
		s.windows[key] = w
	}
	w.Count++
	return w.Count, w.Start, nil
}

// dropElapsedLocked removes elapsed windows. When none elapsed it reports
// full along with the start of the oldest live window.
func (s *InMemoryWindowStore) dropElapsedLocked(now time.Time, window time.Duration) (time.Time, bool) {
	var oldest time.Time
	for k, w := range s.windows {
		if now.Sub(w.Start) >= window {
			delete(s.windows, k)
			continue
		}
		if oldest.IsZero() || w.Start.Before(oldest) {
			oldest = w.Start
		}
	}
	return oldest, len(s.windows) >= s.maxKeys
}

// Cleanup implements WindowStore.
func (s *InMemoryWindowStore) Cleanup(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, w := range s.windows {
		if now.Sub(w.Start) >= window {
			delete(s.windows, k)
			removed++
		}
	}
	return removed, nil
}

// KeyCount implements WindowStore.
func (s *InMemoryWindowStore) KeyCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows), nil
}
