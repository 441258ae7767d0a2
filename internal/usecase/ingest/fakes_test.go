package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/repository"
)

// memArticles is an in-memory article store keyed by (url, category).
type memArticles struct {
	mu        sync.Mutex
	rows      map[string]*entity.Article
	lookups   int
	findErr   error
	insertErr error
}

func newMemArticles() *memArticles {
	return &memArticles{rows: make(map[string]*entity.Article)}
}

func key(url string, c entity.Category) string { return string(c) + "|" + url }

func (m *memArticles) seed(category entity.Category, urls ...string) {
	for _, u := range urls {
		m.rows[key(u, category)] = &entity.Article{URL: u, Category: category}
	}
}

func (m *memArticles) FindExistingURLs(_ context.Context, category entity.Category, urls []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make(map[string]bool)
	for _, u := range urls {
		if _, ok := m.rows[key(u, category)]; ok {
			out[u] = true
		}
	}
	return out, nil
}

func (m *memArticles) BulkInsert(_ context.Context, articles []*entity.Article) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	var n int64
	for _, a := range articles {
		k := key(a.URL, a.Category)
		if _, ok := m.rows[k]; ok {
			continue
		}
		m.rows[k] = a
		n++
	}
	return n, nil
}

func (m *memArticles) FindUnanalyzed(context.Context, int) ([]*entity.Article, error) {
	return nil, errors.New("not used")
}

func (m *memArticles) UpdateAnalysis(context.Context, string, entity.AnalysisUpdate) error {
	return errors.New("not used")
}

func (m *memArticles) SearchByText(_ context.Context, query string, _ int) ([]*entity.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Article
	for _, a := range m.rows {
		if strings.Contains(strings.ToLower(a.Title), strings.ToLower(query)) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memArticles) Stats(context.Context) (repository.ArticleStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return repository.ArticleStats{Total: int64(len(m.rows))}, nil
}

func (m *memArticles) count(category entity.Category) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if a.Category == category {
			n++
		}
	}
	return n
}

type stubSources struct {
	sources []*entity.Source
	err     error
}

func (s *stubSources) ListActive(context.Context) ([]*entity.Source, error) {
	return s.sources, s.err
}

func (s *stubSources) ListActiveByCategory(_ context.Context, c entity.Category) ([]*entity.Source, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*entity.Source
	for _, src := range s.sources {
		if src.Category == c && src.Active {
			out = append(out, src)
		}
	}
	return out, nil
}

// stubFetcher serves canned items per feed URL; URLs listed in fail return ErrFeedUnreachable.
type stubFetcher struct {
	mu    sync.Mutex
	feeds map[string][]RawItem
	fail  map[string]bool
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, feedURL string) ([]RawItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[feedURL] {
		return nil, ErrFeedUnreachable
	}
	return append([]RawItem(nil), f.feeds[feedURL]...), nil
}
