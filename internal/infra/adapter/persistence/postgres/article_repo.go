package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/repository"
)

// insertChunkSize keeps a single INSERT well below the 65535 bind-parameter limit.
const insertChunkSize = 500

type ArticleRepo struct {
	db           *sql.DB
	queryBuilder *ArticleQueryBuilder
}

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{
		db:           db,
		queryBuilder: NewArticleQueryBuilder(),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(s rowScanner) (*entity.Article, error) {
	var (
		a           entity.Article
		category    string
		image       sql.NullString
		summary     sql.NullString
		biasScore   sql.NullFloat64
		analysisRaw []byte
		analyzedAt  sql.NullTime
	)
	if err := s.Scan(&a.ID, &a.URL, &a.Title, &a.Description, &image, &a.Source, &category,
		&a.PublishedAt, &a.FetchedAt, &summary, &biasScore, &analysisRaw, &analyzedAt); err != nil {
		return nil, err
	}
	a.Category = entity.Category(category)
	if image.Valid {
		a.URLToImage = &image.String
	}
	if summary.Valid {
		a.Summary = &summary.String
	}
	if biasScore.Valid {
		a.BiasScore = &biasScore.Float64
	}
	if analyzedAt.Valid {
		a.AnalyzedAt = &analyzedAt.Time
	}
	if len(analysisRaw) > 0 {
		var payload entity.Analysis
		if err := json.Unmarshal(analysisRaw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
		a.Analysis = &payload
	}
	return &a, nil
}

func scanArticles(rows *sql.Rows, capacity int) ([]*entity.Article, error) {
	articles := make([]*entity.Article, 0, capacity)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// FindExistingURLs はバッチでURL存在チェックを行い、N+1問題を解消する
func (repo *ArticleRepo) FindExistingURLs(ctx context.Context, category entity.Category, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := repo.queryBuilder.ExistingURLs(string(category), urls)
	if err != nil {
		return nil, fmt.Errorf("FindExistingURLs: build: %w", err)
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("FindExistingURLs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	existing := make(map[string]bool, len(urls))
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("FindExistingURLs: Scan: %w", err)
		}
		existing[url] = true
	}
	return existing, rows.Err()
}

func (repo *ArticleRepo) BulkInsert(ctx context.Context, articles []*entity.Article) (int64, error) {
	var inserted int64
	for start := 0; start < len(articles); start += insertChunkSize {
		end := min(start+insertChunkSize, len(articles))

		builder := repo.queryBuilder.Insert()
		for _, a := range articles[start:end] {
			values, err := insertValues(a)
			if err != nil {
				return inserted, fmt.Errorf("BulkInsert: %w", err)
			}
			builder = builder.Values(values...)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return inserted, fmt.Errorf("BulkInsert: build: %w", err)
		}
		res, err := repo.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("BulkInsert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("BulkInsert: RowsAffected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

func insertValues(a *entity.Article) ([]interface{}, error) {
	var analysis interface{}
	if a.Analysis != nil {
		raw, err := json.Marshal(a.Analysis)
		if err != nil {
			return nil, fmt.Errorf("marshal analysis: %w", err)
		}
		analysis = string(raw)
	}
	return []interface{}{
		a.ID, a.URL, a.Title, a.Description, nullableString(a.URLToImage), a.Source, string(a.Category),
		a.PublishedAt, a.FetchedAt, nullableString(a.Summary), nullableFloat(a.BiasScore), analysis, nullableTime(a.AnalyzedAt),
	}, nil
}

func (repo *ArticleRepo) FindUnanalyzed(ctx context.Context, limit int) ([]*entity.Article, error) {
	const query = `
SELECT id, url, title, description, url_to_image, source, category,
       published_at, fetched_at, summary, bias_score, analysis, analyzed_at
FROM articles
WHERE analyzed_at IS NULL
ORDER BY fetched_at ASC
LIMIT $1`
	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("FindUnanalyzed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := scanArticles(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("FindUnanalyzed: Scan: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) UpdateAnalysis(ctx context.Context, id string, update entity.AnalysisUpdate) error {
	const query = `
UPDATE articles
SET summary = $1,
    bias_score = $2,
    analysis = $3,
    analyzed_at = $4,
    url_to_image = COALESCE(NULLIF($5, ''), url_to_image)
WHERE id = $6`
	raw, err := json.Marshal(update.Analysis)
	if err != nil {
		return fmt.Errorf("UpdateAnalysis: marshal: %w", err)
	}
	res, err := repo.db.ExecContext(ctx, query,
		update.Summary, update.BiasScore, string(raw), update.AnalyzedAt, update.URLToImage, id)
	if err != nil {
		return fmt.Errorf("UpdateAnalysis: %w", err)
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

func (repo *ArticleRepo) SearchByText(ctx context.Context, query string, limit int) ([]*entity.Article, error) {
	stmt, args, err := repo.queryBuilder.SearchText(query, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchByText: build: %w", err)
	}
	rows, err := repo.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchByText: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := scanArticles(rows, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchByText: Scan: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) Stats(ctx context.Context) (repository.ArticleStats, error) {
	const totals = `SELECT COUNT(*), COUNT(analyzed_at), MAX(fetched_at) FROM articles`
	const byCategory = `SELECT category, COUNT(*) FROM articles GROUP BY category`

	var (
		stats       repository.ArticleStats
		lastFetched sql.NullTime
	)
	if err := repo.db.QueryRowContext(ctx, totals).Scan(&stats.Total, &stats.Analyzed, &lastFetched); err != nil {
		return stats, fmt.Errorf("Stats: %w", err)
	}
	stats.Unanalyzed = stats.Total - stats.Analyzed
	if lastFetched.Valid {
		stats.LastFetchedAt = &lastFetched.Time
	}

	rows, err := repo.db.QueryContext(ctx, byCategory)
	if err != nil {
		return stats, fmt.Errorf("Stats: by category: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats.ByCategory = make(map[entity.Category]int64)
	for rows.Next() {
		var (
			category string
			count    int64
		)
		if err := rows.Scan(&category, &count); err != nil {
			return stats, fmt.Errorf("Stats: Scan: %w", err)
		}
		stats.ByCategory[entity.Category(category)] = count
	}
	return stats, rows.Err()
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
