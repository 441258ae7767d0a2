// Package news exposes the search waterfall over HTTP.
package news

import (
	"time"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/usecase/search"
)

// ArticleDTO is the JSON form of a stored article.
type ArticleDTO struct {
	ID          string           `json:"id"`
	URL         string           `json:"url"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	URLToImage  *string          `json:"urlToImage"`
	Source      string           `json:"source"`
	Category    entity.Category  `json:"category"`
	PublishedAt time.Time        `json:"publishedAt"`
	FetchedAt   time.Time        `json:"fetchedAt"`
	Summary     *string          `json:"summary"`
	BiasScore   *float64         `json:"biasScore"`
	Analysis    *entity.Analysis `json:"analysis"`
	AnalyzedAt  *time.Time       `json:"analyzedAt"`
}

// SearchResponse is the body of GET /news/search.
type SearchResponse struct {
	Level      search.Level       `json:"level"`
	Query      string             `json:"query"`
	Data       []ArticleDTO       `json:"data"`
	Total      int                `json:"total"`
	IsFresh    bool               `json:"isFresh"`
	Categories []entity.Category  `json:"categories,omitempty"`
	Suggestion *search.Suggestion `json:"suggestion,omitempty"`
	DurationMs int64              `json:"durationMs"`
}

func toDTO(a *entity.Article) ArticleDTO {
	return ArticleDTO{
		ID:          a.ID,
		URL:         a.URL,
		Title:       a.Title,
		Description: a.Description,
		URLToImage:  a.URLToImage,
		Source:      a.Source,
		Category:    a.Category,
		PublishedAt: a.PublishedAt,
		FetchedAt:   a.FetchedAt,
		Summary:     a.Summary,
		BiasScore:   a.BiasScore,
		Analysis:    a.Analysis,
		AnalyzedAt:  a.AnalyzedAt,
	}
}

func toResponse(res search.Result) SearchResponse {
	data := make([]ArticleDTO, 0, len(res.Articles))
	for _, a := range res.Articles {
		data = append(data, toDTO(a))
	}
	return SearchResponse{
		Level:      res.Level,
		Query:      res.Query,
		Data:       data,
		Total:      len(data),
		IsFresh:    res.IsFresh,
		Categories: res.Categories,
		Suggestion: res.Suggestion,
		DurationMs: res.DurationMs,
	}
}
