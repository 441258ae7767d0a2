// Package sqlite provides SQLite implementations of repository interfaces.
// It backs local runs and tests with the same semantics as the PostgreSQL adapter.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/repository"
)

const selectArticle = `
SELECT id, url, title, description, url_to_image, source, category,
       published_at, fetched_at, summary, bias_score, analysis, analyzed_at
FROM articles`

// ArticleRepo implements the ArticleRepository interface using SQLite.
type ArticleRepo struct{ db *sqlx.DB }

// NewArticleRepo creates a new SQLite-backed article repository.
func NewArticleRepo(db *sqlx.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

// articleRow mirrors the articles table for sqlx scanning and named inserts.
type articleRow struct {
	ID          string          `db:"id"`
	URL         string          `db:"url"`
	Title       string          `db:"title"`
	Description string          `db:"description"`
	URLToImage  sql.NullString  `db:"url_to_image"`
	Source      string          `db:"source"`
	Category    string          `db:"category"`
	PublishedAt time.Time       `db:"published_at"`
	FetchedAt   time.Time       `db:"fetched_at"`
	Summary     sql.NullString  `db:"summary"`
	BiasScore   sql.NullFloat64 `db:"bias_score"`
	Analysis    sql.NullString  `db:"analysis"`
	AnalyzedAt  sql.NullTime    `db:"analyzed_at"`
}

func toRow(a *entity.Article) (articleRow, error) {
	row := articleRow{
		ID:          a.ID,
		URL:         a.URL,
		Title:       a.Title,
		Description: a.Description,
		Source:      a.Source,
		Category:    string(a.Category),
		PublishedAt: a.PublishedAt.UTC(),
		FetchedAt:   a.FetchedAt.UTC(),
	}
	if a.URLToImage != nil {
		row.URLToImage = sql.NullString{String: *a.URLToImage, Valid: true}
	}
	if a.Summary != nil {
		row.Summary = sql.NullString{String: *a.Summary, Valid: true}
	}
	if a.BiasScore != nil {
		row.BiasScore = sql.NullFloat64{Float64: *a.BiasScore, Valid: true}
	}
	if a.AnalyzedAt != nil {
		row.AnalyzedAt = sql.NullTime{Time: a.AnalyzedAt.UTC(), Valid: true}
	}
	if a.Analysis != nil {
		raw, err := json.Marshal(a.Analysis)
		if err != nil {
			return row, fmt.Errorf("marshal analysis: %w", err)
		}
		row.Analysis = sql.NullString{String: string(raw), Valid: true}
	}
	return row, nil
}

func (r articleRow) toEntity() (*entity.Article, error) {
	a := &entity.Article{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title,
		Description: r.Description,
		Source:      r.Source,
		Category:    entity.Category(r.Category),
		PublishedAt: r.PublishedAt,
		FetchedAt:   r.FetchedAt,
	}
	if r.URLToImage.Valid {
		a.URLToImage = &r.URLToImage.String
	}
	if r.Summary.Valid {
		a.Summary = &r.Summary.String
	}
	if r.BiasScore.Valid {
		a.BiasScore = &r.BiasScore.Float64
	}
	if r.AnalyzedAt.Valid {
		a.AnalyzedAt = &r.AnalyzedAt.Time
	}
	if r.Analysis.Valid && r.Analysis.String != "" {
		var payload entity.Analysis
		if err := json.Unmarshal([]byte(r.Analysis.String), &payload); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
		a.Analysis = &payload
	}
	return a, nil
}

func toEntities(rows []articleRow) ([]*entity.Article, error) {
	articles := make([]*entity.Article, 0, len(rows))
	for _, r := range rows {
		a, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// FindExistingURLs returns the subset of urls already stored under category in one query.
func (repo *ArticleRepo) FindExistingURLs(ctx context.Context, category entity.Category, urls []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(urls))
	if len(urls) == 0 {
		return existing, nil
	}

	query, args, err := sqlx.In(`SELECT url FROM articles WHERE category = ? AND url IN (?)`, string(category), urls)
	if err != nil {
		return nil, fmt.Errorf("FindExistingURLs: In: %w", err)
	}

	var found []string
	if err := repo.db.SelectContext(ctx, &found, repo.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("FindExistingURLs: SelectContext: %w", err)
	}
	for _, u := range found {
		existing[u] = true
	}
	return existing, nil
}

// BulkInsert writes all articles in one transaction. Conflicting (url, category) rows are ignored.
func (repo *ArticleRepo) BulkInsert(ctx context.Context, articles []*entity.Article) (int64, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	const query = `
INSERT OR IGNORE INTO articles (
    id, url, title, description, url_to_image, source, category,
    published_at, fetched_at, summary, bias_score, analysis, analyzed_at
) VALUES (
    :id, :url, :title, :description, :url_to_image, :source, :category,
    :published_at, :fetched_at, :summary, :bias_score, :analysis, :analyzed_at
)`

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("BulkInsert: BeginTxx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("BulkInsert: PrepareNamedContext: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	for _, a := range articles {
		row, err := toRow(a)
		if err != nil {
			return 0, fmt.Errorf("BulkInsert: %w", err)
		}
		res, err := stmt.ExecContext(ctx, row)
		if err != nil {
			return 0, fmt.Errorf("BulkInsert: ExecContext: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("BulkInsert: RowsAffected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("BulkInsert: Commit: %w", err)
	}
	return inserted, nil
}

// FindUnanalyzed returns up to limit articles without analysis, oldest fetched first.
func (repo *ArticleRepo) FindUnanalyzed(ctx context.Context, limit int) ([]*entity.Article, error) {
	var rows []articleRow
	query := selectArticle + `
WHERE analyzed_at IS NULL
ORDER BY fetched_at ASC
LIMIT ?`
	if err := repo.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("FindUnanalyzed: SelectContext: %w", err)
	}
	articles, err := toEntities(rows)
	if err != nil {
		return nil, fmt.Errorf("FindUnanalyzed: %w", err)
	}
	return articles, nil
}

// UpdateAnalysis writes the analysis result; an empty URLToImage keeps the stored image.
func (repo *ArticleRepo) UpdateAnalysis(ctx context.Context, id string, update entity.AnalysisUpdate) error {
	const query = `
UPDATE articles
SET summary = ?,
    bias_score = ?,
    analysis = ?,
    analyzed_at = ?,
    url_to_image = COALESCE(NULLIF(?, ''), url_to_image)
WHERE id = ?`
	raw, err := json.Marshal(update.Analysis)
	if err != nil {
		return fmt.Errorf("UpdateAnalysis: marshal: %w", err)
	}
	res, err := repo.db.ExecContext(ctx, query,
		update.Summary, update.BiasScore, string(raw), update.AnalyzedAt.UTC(), update.URLToImage, id)
	if err != nil {
		return fmt.Errorf("UpdateAnalysis: ExecContext: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateAnalysis: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateAnalysis: %w", entity.ErrNotFound)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchByText matches the query with LIKE, which SQLite evaluates case-insensitively for ASCII.
func (repo *ArticleRepo) SearchByText(ctx context.Context, query string, limit int) ([]*entity.Article, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	stmt := selectArticle + `
WHERE title LIKE ? ESCAPE '\'
   OR description LIKE ? ESCAPE '\'
   OR summary LIKE ? ESCAPE '\'
ORDER BY published_at DESC
LIMIT ?`

	var rows []articleRow
	if err := repo.db.SelectContext(ctx, &rows, stmt, pattern, pattern, pattern, limit); err != nil {
		return nil, fmt.Errorf("SearchByText: SelectContext: %w", err)
	}
	articles, err := toEntities(rows)
	if err != nil {
		return nil, fmt.Errorf("SearchByText: %w", err)
	}
	return articles, nil
}

// Stats aggregates article counts. MAX() loses the column type in SQLite, so the
// latest fetch time is read as text and parsed.
func (repo *ArticleRepo) Stats(ctx context.Context) (repository.ArticleStats, error) {
	var (
		stats  repository.ArticleStats
		totals struct {
			Total       int64          `db:"total"`
			Analyzed    int64          `db:"analyzed"`
			LastFetched sql.NullString `db:"last_fetched"`
		}
	)
	const totalsQuery = `
SELECT COUNT(*) AS total, COUNT(analyzed_at) AS analyzed, MAX(fetched_at) AS last_fetched
FROM articles`
	if err := repo.db.GetContext(ctx, &totals, totalsQuery); err != nil {
		return stats, fmt.Errorf("Stats: GetContext: %w", err)
	}
	stats.Total = totals.Total
	stats.Analyzed = totals.Analyzed
	stats.Unanalyzed = totals.Total - totals.Analyzed
	if totals.LastFetched.Valid {
		if t, ok := parseTimestamp(totals.LastFetched.String); ok {
			stats.LastFetchedAt = &t
		}
	}

	var perCategory []struct {
		Category string `db:"category"`
		Count    int64  `db:"n"`
	}
	if err := repo.db.SelectContext(ctx, &perCategory,
		`SELECT category, COUNT(*) AS n FROM articles GROUP BY category`); err != nil {
		return stats, fmt.Errorf("Stats: SelectContext: %w", err)
	}
	stats.ByCategory = make(map[entity.Category]int64, len(perCategory))
	for _, c := range perCategory {
		stats.ByCategory[entity.Category(c.Category)] = c.Count
	}
	return stats, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
