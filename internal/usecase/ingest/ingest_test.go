package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"biaswatch/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func items(prefix string, n int) []RawItem {
	out := make([]RawItem, n)
	for i := range out {
		out[i] = RawItem{
			Title:       fmt.Sprintf("%s %d", prefix, i),
			Link:        fmt.Sprintf("https://%s.example/n/%d", prefix, i),
			PublishedAt: baseTime.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestDeduplicator_Partition(t *testing.T) {
	repo := newMemArticles()
	candidates := items("elpais", 10)
	repo.seed(entity.CategoryGeneral,
		candidates[1].Link, candidates[3].Link, candidates[5].Link, candidates[7].Link)

	p, err := NewDeduplicator(repo).Partition(context.Background(), candidates, entity.CategoryGeneral)
	require.NoError(t, err)

	assert.Len(t, p.New, 6)
	assert.Len(t, p.Duplicate, 4)
	assert.Equal(t, 1, repo.lookups, "one batched lookup")
}

func TestDeduplicator_CategoryScoped(t *testing.T) {
	repo := newMemArticles()
	candidates := items("bbc", 3)
	repo.seed(entity.CategoryInternational, candidates[0].Link)

	p, err := NewDeduplicator(repo).Partition(context.Background(), candidates, entity.CategoryGeneral)
	require.NoError(t, err)
	assert.Len(t, p.New, 3)
}

func TestDeduplicator_InBatchRepeats(t *testing.T) {
	repo := newMemArticles()
	candidates := items("marca", 2)
	candidates = append(candidates, candidates[0])

	p, err := NewDeduplicator(repo).Partition(context.Background(), candidates, entity.CategorySports)
	require.NoError(t, err)
	assert.Len(t, p.New, 2)
	assert.Len(t, p.Duplicate, 1)
}

func TestDeduplicator_Empty(t *testing.T) {
	repo := newMemArticles()
	p, err := NewDeduplicator(repo).Partition(context.Background(), nil, entity.CategoryGeneral)
	require.NoError(t, err)
	assert.Empty(t, p.New)
	assert.Zero(t, repo.lookups)
}

func TestDeduplicator_LookupError(t *testing.T) {
	repo := newMemArticles()
	repo.findErr = errors.New("connection refused")
	_, err := NewDeduplicator(repo).Partition(context.Background(), items("x", 1), entity.CategoryGeneral)
	assert.ErrorContains(t, err, "connection refused")
}

func newFixture() (*stubSources, *memArticles, *stubFetcher) {
	sources := &stubSources{sources: []*entity.Source{
		{Name: "Marca", FeedURL: "https://marca.example/rss", Category: entity.CategorySports, Active: true},
		{Name: "AS", FeedURL: "https://as.example/rss", Category: entity.CategorySports, Active: true},
		{Name: "Inactiva", FeedURL: "https://off.example/rss", Category: entity.CategorySports, Active: false},
		{Name: "El País", FeedURL: "https://elpais.example/rss", Category: entity.CategoryGeneral, Active: true},
	}}
	fetcher := &stubFetcher{
		feeds: map[string][]RawItem{
			"https://marca.example/rss":  items("marca", 5),
			"https://as.example/rss":     items("as", 5),
			"https://elpais.example/rss": items("elpais", 4),
		},
		fail: map[string]bool{},
	}
	return sources, newMemArticles(), fetcher
}

func TestCategoryIngestor_Idempotent(t *testing.T) {
	sources, repo, fetcher := newFixture()
	ing := NewCategoryIngestor(sources, repo, fetcher, WithClock(func() time.Time { return baseTime }))

	first, err := ing.IngestCategory(context.Background(), entity.CategorySports, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Sources)
	assert.Equal(t, 10, first.Fetched)
	assert.Equal(t, 10, first.NewArticles)
	assert.Zero(t, first.Duplicates)
	assert.Zero(t, first.Errors)

	second, err := ing.IngestCategory(context.Background(), entity.CategorySports, 20)
	require.NoError(t, err)
	assert.Zero(t, second.NewArticles)
	assert.Equal(t, 10, second.Duplicates)
	assert.Equal(t, 10, repo.count(entity.CategorySports))
}

func TestCategoryIngestor_StoresArticleFields(t *testing.T) {
	sources, repo, fetcher := newFixture()
	fetcher.feeds["https://elpais.example/rss"][0].ImageURL = "https://img.example/a.jpg"
	ing := NewCategoryIngestor(sources, repo, fetcher, WithClock(func() time.Time { return baseTime }))

	_, err := ing.IngestCategory(context.Background(), entity.CategoryGeneral, 20)
	require.NoError(t, err)

	a := repo.rows[key("https://elpais.example/n/0", entity.CategoryGeneral)]
	require.NotNil(t, a)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "El País", a.Source)
	assert.Equal(t, baseTime, a.FetchedAt)
	require.NotNil(t, a.URLToImage)
	assert.Equal(t, "https://img.example/a.jpg", *a.URLToImage)
	assert.False(t, a.IsAnalyzed())
}

func TestCategoryIngestor_PageSizeKeepsMostRecent(t *testing.T) {
	sources, repo, fetcher := newFixture()
	ing := NewCategoryIngestor(sources, repo, fetcher)

	res, err := ing.IngestCategory(context.Background(), entity.CategorySports, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Fetched)
	assert.Equal(t, 4, res.NewArticles)

	// 各フィードの先頭2件が最新
	for _, link := range []string{"https://marca.example/n/0", "https://marca.example/n/1", "https://as.example/n/0", "https://as.example/n/1"} {
		_, ok := repo.rows[key(link, entity.CategorySports)]
		assert.True(t, ok, link)
	}
}

func TestCategoryIngestor_OneSourceFails(t *testing.T) {
	sources, repo, fetcher := newFixture()
	fetcher.fail["https://as.example/rss"] = true

	res, err := NewCategoryIngestor(sources, repo, fetcher).IngestCategory(context.Background(), entity.CategorySports, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 5, res.NewArticles)
}

func TestCategoryIngestor_AllSourcesFail(t *testing.T) {
	sources, repo, fetcher := newFixture()
	fetcher.fail["https://as.example/rss"] = true
	fetcher.fail["https://marca.example/rss"] = true

	res, err := NewCategoryIngestor(sources, repo, fetcher).IngestCategory(context.Background(), entity.CategorySports, 20)
	require.NoError(t, err)
	assert.Equal(t, res.Sources, res.Errors)
	assert.Zero(t, res.NewArticles)
}

func TestCategoryIngestor_NoSources(t *testing.T) {
	sources, repo, fetcher := newFixture()
	res, err := NewCategoryIngestor(sources, repo, fetcher).IngestCategory(context.Background(), entity.CategoryHealth, 20)
	require.NoError(t, err)
	assert.Zero(t, res.Sources)
	assert.Zero(t, fetcher.calls)
}

func TestCategoryIngestor_SetupErrors(t *testing.T) {
	t.Run("source list", func(t *testing.T) {
		sources, repo, fetcher := newFixture()
		sources.err = errors.New("catalog unavailable")
		_, err := NewCategoryIngestor(sources, repo, fetcher).IngestCategory(context.Background(), entity.CategorySports, 20)
		assert.ErrorContains(t, err, "catalog unavailable")
	})
	t.Run("insert", func(t *testing.T) {
		sources, repo, fetcher := newFixture()
		repo.insertErr = errors.New("disk full")
		_, err := NewCategoryIngestor(sources, repo, fetcher).IngestCategory(context.Background(), entity.CategorySports, 20)
		assert.ErrorContains(t, err, "disk full")
	})
	t.Run("page size", func(t *testing.T) {
		sources, repo, fetcher := newFixture()
		_, err := NewCategoryIngestor(sources, repo, fetcher).IngestCategory(context.Background(), entity.CategorySports, 0)
		assert.ErrorIs(t, err, ErrInvalidPageSize)
	})
	t.Run("category", func(t *testing.T) {
		sources, repo, fetcher := newFixture()
		_, err := NewCategoryIngestor(sources, repo, fetcher).IngestCategory(context.Background(), entity.Category("cocina"), 20)
		var verr *entity.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

// scriptedRunner returns canned results per category.
type scriptedRunner struct {
	results map[entity.Category]Result
	errs    map[entity.Category]error
	panics  map[entity.Category]bool
}

func (s *scriptedRunner) IngestCategory(_ context.Context, c entity.Category, _ int) (Result, error) {
	if s.panics[c] {
		panic("parser exploded")
	}
	if err := s.errs[c]; err != nil {
		return Result{Category: c}, err
	}
	r := s.results[c]
	r.Category = c
	return r, nil
}

func TestGlobalIngestor_CategoryIsolation(t *testing.T) {
	runner := &scriptedRunner{
		results: map[entity.Category]Result{
			entity.CategoryGeneral:    {Sources: 2, NewArticles: 7, Duplicates: 3},
			entity.CategoryTechnology: {Sources: 1, NewArticles: 2, Duplicates: 1, Errors: 1},
		},
		errs:   map[entity.Category]error{entity.CategorySports: errors.New("feed list unavailable")},
		panics: map[entity.Category]bool{entity.CategoryScience: true},
	}
	status := NewStatusTracker()

	summary, err := NewGlobalIngestor(runner, 3, status).IngestAll(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, len(entity.AllCategories()), summary.Processed)
	require.Len(t, summary.CategoryResults, len(entity.AllCategories()))

	general := summary.CategoryResults[entity.CategoryGeneral]
	assert.Equal(t, 7, general.NewArticles)
	assert.Equal(t, 3, general.Duplicates)
	assert.Zero(t, general.Errors)

	sports := summary.CategoryResults[entity.CategorySports]
	assert.GreaterOrEqual(t, sports.Errors, 1)
	assert.Contains(t, sports.Error, "feed list unavailable")

	science := summary.CategoryResults[entity.CategoryScience]
	assert.Equal(t, entity.CategoryScience, science.Category)
	assert.Equal(t, 1, science.Errors)

	assert.Equal(t, 9, summary.TotalNewArticles)
	assert.Equal(t, 4, summary.TotalDuplicates)
	assert.Equal(t, 3, summary.Errors)

	snap := status.Snapshot()
	require.NotNil(t, snap.LastGlobal)
	assert.Equal(t, 9, snap.LastGlobal.Result.TotalNewArticles)
	assert.Equal(t, 7, snap.Categories[entity.CategoryGeneral].Result.NewArticles)
}

func TestGlobalIngestor_EndToEnd(t *testing.T) {
	sources, repo, fetcher := newFixture()
	fetcher.fail["https://marca.example/rss"] = true
	fetcher.fail["https://as.example/rss"] = true
	cat := NewCategoryIngestor(sources, repo, fetcher)

	summary, err := NewGlobalIngestor(cat, 2, nil).IngestAll(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.CategoryResults[entity.CategoryGeneral].NewArticles)
	assert.Equal(t, 2, summary.CategoryResults[entity.CategorySports].Errors)
	assert.Equal(t, 4, summary.TotalNewArticles)
}

func TestGlobalIngestor_InvalidPageSize(t *testing.T) {
	_, err := NewGlobalIngestor(&scriptedRunner{}, 2, nil).IngestAll(context.Background(), 101)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestTrackingIngestor(t *testing.T) {
	status := NewStatusTracker()
	runner := TrackingIngestor{
		CategoryRunner: &scriptedRunner{results: map[entity.Category]Result{entity.CategoryEconomy: {NewArticles: 3}}},
		Status:         status,
	}
	_, err := runner.IngestCategory(context.Background(), entity.CategoryEconomy, 10)
	require.NoError(t, err)

	snap := status.Snapshot()
	assert.Equal(t, 3, snap.Categories[entity.CategoryEconomy].Result.NewArticles)
	assert.Nil(t, snap.LastGlobal)

	status.RecordAnalysis(map[string]int{"successful": 4}, baseTime)
	require.NotNil(t, status.Snapshot().LastAnalysis)
}
