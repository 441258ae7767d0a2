package ingest

import (
	"context"
	"sync"
	"time"

	"biaswatch/internal/domain/entity"
)

// Run is a completed ingestion or analysis run as shown by the status endpoint.
type Run[T any] struct {
	At     time.Time `json:"at"`
	Result T         `json:"result"`
}

// StatusTracker remembers the latest runs of this process.
// It is process-local and empty after a restart.
type StatusTracker struct {
	mu         sync.RWMutex
	global     *Run[Summary]
	categories map[entity.Category]Run[Result]
	analysis   *Run[any]
}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{categories: make(map[entity.Category]Run[Result])}
}

// RecordGlobal stores a global ingestion and its per-category results.
func (t *StatusTracker) RecordGlobal(s Summary, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.global = &Run[Summary]{At: at, Result: s}
	for c, r := range s.CategoryResults {
		t.categories[c] = Run[Result]{At: at, Result: r}
	}
}

// RecordCategory stores a single category ingestion.
func (t *StatusTracker) RecordCategory(r Result, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.categories[r.Category] = Run[Result]{At: at, Result: r}
}

// RecordAnalysis stores the latest analysis outcome. The value is opaque to
// this package so the analysis use case does not depend on it.
func (t *StatusTracker) RecordAnalysis(outcome any, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.analysis = &Run[any]{At: at, Result: outcome}
}

// Snapshot is a copy of the tracker state.
type Snapshot struct {
	LastGlobal   *Run[Summary]                   `json:"lastGlobal,omitempty"`
	Categories   map[entity.Category]Run[Result] `json:"categories"`
	LastAnalysis *Run[any]                       `json:"lastAnalysis,omitempty"`
}

// Snapshot returns a copy safe to serialize.
func (t *StatusTracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Snapshot{Categories: make(map[entity.Category]Run[Result], len(t.categories))}
	for c, r := range t.categories {
		s.Categories[c] = r
	}
	if t.global != nil {
		g := *t.global
		s.LastGlobal = &g
	}
	if t.analysis != nil {
		a := *t.analysis
		s.LastAnalysis = &a
	}
	return s
}

// TrackingIngestor records each category result in a StatusTracker.
type TrackingIngestor struct {
	CategoryRunner
	Status *StatusTracker
}

// IngestCategory runs the wrapped ingestor and records successful runs.
func (t TrackingIngestor) IngestCategory(ctx context.Context, category entity.Category, pageSize int) (Result, error) {
	res, err := t.CategoryRunner.IngestCategory(ctx, category, pageSize)
	if err == nil && t.Status != nil {
		t.Status.RecordCategory(res, time.Now())
	}
	return res, err
}
