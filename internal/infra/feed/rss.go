// Package feed fetches RSS/Atom feeds with gofeed and turns them into raw
// ingestion items.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"biaswatch/internal/infra/fetcher"
	"biaswatch/internal/resilience/circuitbreaker"
	"biaswatch/internal/usecase/ingest"

	"github.com/mmcdole/gofeed"
)

// DefaultTimeout bounds a single feed fetch.
const DefaultTimeout = 10 * time.Second

// RSSFetcher implements ingest.FeedFetcher using gofeed.
// Each feed host gets its own circuit breaker so one dead publisher is
// skipped quickly without affecting the others. There is no retry here:
// a failed source is picked up again at the next ingestion.
type RSSFetcher struct {
	client   *http.Client
	breakers *circuitbreaker.Registry
	timeout  time.Duration
	now      func() time.Time
}

// NewRSSFetcher creates a fetcher using client. timeout <= 0 means DefaultTimeout.
func NewRSSFetcher(client *http.Client, timeout time.Duration) *RSSFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RSSFetcher{
		client:   client,
		breakers: circuitbreaker.NewRegistry(circuitbreaker.FeedHostConfig),
		timeout:  timeout,
		now:      time.Now,
	}
}

// NewDefaultRSSFetcher creates a fetcher with the shared page client
// (3 redirect hops, TLS 1.2+).
func NewDefaultRSSFetcher(timeout time.Duration) *RSSFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewRSSFetcher(fetcher.NewHTTPClient(timeout, 3, false), timeout)
}

// Fetch retrieves and parses the feed at feedURL.
// Every failure, including a rejected call on an open breaker, wraps
// ingest.ErrFeedUnreachable.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) ([]ingest.RawItem, error) {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid feed url %q", ingest.ErrFeedUnreachable, feedURL)
	}

	cb := f.breakers.Get(u.Host)
	items, err := circuitbreaker.Do(cb, func() ([]ingest.RawItem, error) {
		return f.doFetch(ctx, feedURL)
	})
	if err != nil {
		if circuitbreaker.IsRejected(err) {
			slog.Warn("feed circuit breaker open, request rejected",
				slog.String("host", u.Host),
				slog.String("url", feedURL),
				slog.String("state", cb.State().String()))
		}
		if errors.Is(err, ingest.ErrFeedUnreachable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ingest.ErrFeedUnreachable, feedURL, err)
	}
	return items, nil
}

func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) ([]ingest.RawItem, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.UserAgent = fetcher.UserAgent
	fp.Client = f.client

	parsed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ingest.ErrFeedUnreachable, feedURL, err)
	}

	fetchedAt := f.now()
	items := make([]ingest.RawItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		link := NormalizeLink(it.Link)
		if link == "" {
			continue
		}

		pubAt := fetchedAt
		switch {
		case it.PublishedParsed != nil:
			pubAt = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			pubAt = *it.UpdatedParsed
		}

		// Descriptionを優先、なければContent
		desc := it.Description
		if strings.TrimSpace(desc) == "" {
			desc = it.Content
		}

		items = append(items, ingest.RawItem{
			Title:       strings.TrimSpace(it.Title),
			Link:        link,
			Description: strings.TrimSpace(desc),
			PublishedAt: pubAt,
			ImageURL:    itemImage(it),
		})
	}
	return items, nil
}

// NormalizeLink trims whitespace and drops the fragment. Links that are not
// absolute http(s) URLs yield "".
func NormalizeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// itemImage picks the feed-provided preview: the item image first, then the
// first image enclosure.
func itemImage(it *gofeed.Item) string {
	if it.Image != nil {
		if img := NormalizeLink(it.Image.URL); img != "" {
			return img
		}
	}
	for _, enc := range it.Enclosures {
		if enc == nil || !strings.HasPrefix(enc.Type, "image/") {
			continue
		}
		if img := NormalizeLink(enc.URL); img != "" {
			return img
		}
	}
	return ""
}
