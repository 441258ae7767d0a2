// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// articleColumns is the column order shared by every SELECT and INSERT.
var articleColumns = []string{
	"id", "url", "title", "description", "url_to_image", "source", "category",
	"published_at", "fetched_at", "summary", "bias_score", "analysis", "analyzed_at",
}

// ArticleQueryBuilder builds the dynamic article statements with squirrel.
// It uses PostgreSQL-specific features like ILIKE and numbered placeholders ($1, $2, etc.).
type ArticleQueryBuilder struct {
	psql sq.StatementBuilderType
}

// NewArticleQueryBuilder creates a new query builder instance.
func NewArticleQueryBuilder() *ArticleQueryBuilder {
	return &ArticleQueryBuilder{psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// ExistingURLs selects the subset of urls already stored under category.
func (qb *ArticleQueryBuilder) ExistingURLs(category string, urls []string) (string, []interface{}, error) {
	return qb.psql.Select("url").
		From("articles").
		Where(sq.Eq{"category": category}).
		Where(sq.Eq{"url": urls}).
		ToSql()
}

// Insert starts a multi-row insert; duplicate (url, category) rows are skipped.
func (qb *ArticleQueryBuilder) Insert() sq.InsertBuilder {
	return qb.psql.Insert("articles").
		Columns(articleColumns...).
		Suffix("ON CONFLICT (url, category) DO NOTHING")
}

// SearchText matches query against title, description and summary, newest first.
func (qb *ArticleQueryBuilder) SearchText(query string, limit int) (string, []interface{}, error) {
	pattern := "%" + EscapeILIKE(query) + "%"
	return qb.psql.Select(articleColumns...).
		From("articles").
		Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
			sq.ILike{"summary": pattern},
		}).
		OrderBy("published_at DESC").
		Limit(uint64(limit)).
		ToSql()
}

var ilikeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeILIKE escapes the ILIKE wildcards so user input matches literally.
func EscapeILIKE(s string) string {
	return ilikeEscaper.Replace(s)
}
