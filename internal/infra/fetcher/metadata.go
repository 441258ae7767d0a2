package fetcher

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/resilience/circuitbreaker"

	"github.com/PuerkitoBio/goquery"
)

// imageSelectors are tried in order; the first non-empty content wins.
var imageSelectors = []string{
	`meta[property="og:image"]`,
	`meta[property="og:image:secure_url"]`,
	`meta[name="twitter:image"]`,
	`meta[property="twitter:image"]`,
}

var descriptionSelectors = []string{
	`meta[property="og:description"]`,
	`meta[name="description"]`,
}

// MetadataExtractor reads preview metadata (image, description) from article pages.
// Extraction is best effort and never fails. Each publisher host gets its
// own circuit breaker.
type MetadataExtractor struct {
	client   *http.Client
	breakers *circuitbreaker.Registry
	config   Config
}

// NewMetadataExtractor creates an extractor bounded by cfg.MetadataTimeout.
func NewMetadataExtractor(cfg Config) *MetadataExtractor {
	return &MetadataExtractor{
		client:   NewHTTPClient(cfg.MetadataTimeout, cfg.MaxRedirects, cfg.DenyPrivateIPs),
		breakers: circuitbreaker.NewRegistry(circuitbreaker.PageHostConfig),
		config:   cfg,
	}
}

// Extract fetches pageURL and returns its preview metadata.
// Any failure yields empty metadata.
func (e *MetadataExtractor) Extract(ctx context.Context, pageURL string) entity.PageMetadata {
	if err := validateURL(pageURL, e.config.DenyPrivateIPs); err != nil {
		slog.Debug("metadata fetch skipped", slog.String("url", pageURL), slog.Any("error", err))
		return entity.PageMetadata{}
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.MetadataTimeout)
	defer cancel()

	p, err := circuitbreaker.Do(e.breakers.Get(hostKey(pageURL)), func() (*page, error) {
		return getPage(reqCtx, e.client, pageURL, e.config.MaxBodySize)
	})
	if err != nil {
		slog.Debug("metadata fetch failed", slog.String("url", pageURL), slog.Any("error", err))
		return entity.PageMetadata{}
	}

	return ParseMetadata(p.body, p.finalURL)
}

// ParseMetadata extracts metadata from an HTML document served at base.
// Relative image URLs are resolved against base.
func ParseMetadata(html []byte, base *url.URL) entity.PageMetadata {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return entity.PageMetadata{}
	}

	var meta entity.PageMetadata
	if raw := firstContent(doc, imageSelectors); raw != "" {
		meta.Image = resolveImage(raw, base)
	}
	meta.Description = firstContent(doc, descriptionSelectors)
	return meta
}

func firstContent(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
				found = strings.TrimSpace(v)
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// resolveImage makes raw absolute and keeps only http(s) results.
func resolveImage(raw string, base *url.URL) string {
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}
