package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/observability/metrics"
)

// HTMLConverter turns feed HTML into plain Markdown.
type HTMLConverter interface {
	Convert(html string) string
}

// ContentFetcher returns the readable text of an article page.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// MetadataSource extracts preview metadata from an article page.
// It never fails; missing values are empty.
type MetadataSource interface {
	Extract(ctx context.Context, url string) entity.PageMetadata
}

// DefaultContentThreshold is the description length (in runes) below which
// the page text is fetched to give the model more context.
const DefaultContentThreshold = 400

// buildInput assembles the text sent to the analyzer.
func (s *Scheduler) buildInput(ctx context.Context, a *entity.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Título: %s\n", a.Title)
	fmt.Fprintf(&b, "Fuente: %s\n", a.Source)
	fmt.Fprintf(&b, "Categoría: %s\n", a.Category)
	if !a.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "Publicado: %s\n", a.PublishedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "URL: %s\n", a.URL)

	description := a.Description
	if s.markdown != nil {
		description = s.markdown.Convert(description)
	}
	if description != "" {
		b.WriteString("\n")
		b.WriteString(description)
		b.WriteString("\n")
	}

	if s.content == nil || utf8.RuneCountInString(description) >= s.cfg.ContentThreshold {
		return b.String()
	}

	content, err := s.content.FetchContent(ctx, a.URL)
	if err != nil {
		s.logger.DebugContext(ctx, "content enhancement skipped",
			slog.String("article_id", a.ID),
			slog.String("url", a.URL),
			slog.Any("error", err))
		return b.String()
	}
	if content = strings.TrimSpace(content); content != "" {
		b.WriteString("\nTexto del artículo:\n")
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String()
}

// previewImage returns the image to store: empty keeps the feed image,
// otherwise the page's og:image or twitter:image when one is found.
func (s *Scheduler) previewImage(ctx context.Context, a *entity.Article) string {
	if a.HasImage() {
		metrics.RecordPreviewImage("feed")
		return ""
	}
	if s.metadata == nil {
		metrics.RecordPreviewImage("none")
		return ""
	}
	meta := s.metadata.Extract(ctx, a.URL)
	if meta.Image == "" {
		metrics.RecordPreviewImage("none")
		return ""
	}
	metrics.RecordPreviewImage("page")
	return meta.Image
}
