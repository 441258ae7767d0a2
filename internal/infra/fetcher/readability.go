package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"biaswatch/internal/resilience/circuitbreaker"

	"github.com/go-shiori/go-readability"
)

// ReadabilityFetcher extracts the readable article text of a page with the
// Mozilla Readability algorithm. Safe for concurrent use. Each publisher
// host gets its own circuit breaker.
type ReadabilityFetcher struct {
	client   *http.Client
	breakers *circuitbreaker.Registry
	config   Config
}

// NewReadabilityFetcher creates a fetcher bounded by cfg.Timeout and cfg.MaxBodySize.
func NewReadabilityFetcher(cfg Config) *ReadabilityFetcher {
	breakers := circuitbreaker.NewRegistry(func(host string) circuitbreaker.Config {
		c := circuitbreaker.PageHostConfig(host)
		c.Name = "content:" + host
		return c
	})
	return &ReadabilityFetcher{
		client:   NewHTTPClient(cfg.Timeout, cfg.MaxRedirects, cfg.DenyPrivateIPs),
		breakers: breakers,
		config:   cfg,
	}
}

// FetchContent returns the article text of urlStr.
//
// Errors:
//   - ErrInvalidURL / ErrPrivateIP: URL rejected before any request
//   - ErrTooManyRedirects, ErrBodyTooLarge, ErrTimeout: transport limits
//   - ErrReadabilityFailed: nothing readable on the page
//   - gobreaker.ErrOpenState: too many recent failures on this host
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}
	return circuitbreaker.Do(f.breakers.Get(hostKey(urlStr)), func() (string, error) {
		return f.doFetch(ctx, urlStr)
	})
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	p, err := getPage(reqCtx, f.client, urlStr, f.config.MaxBodySize)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(bytes.NewReader(p.body), p.finalURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadabilityFailed, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		if article.Content == "" {
			return "", fmt.Errorf("%w: no readable content found", ErrReadabilityFailed)
		}
		slog.Debug("using article Content instead of TextContent",
			slog.String("url", urlStr),
			slog.Int("content_length", len(article.Content)))
		return article.Content, nil
	}
	return text, nil
}
