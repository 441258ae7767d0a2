// Package catalog loads the feed source list from a YAML file and serves it
// as a repository.SourceRepository. The file can be watched and reloaded
// without restarting the process.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/repository"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when SOURCES_FILE is not set.
const DefaultPath = "config/sources.yaml"

// ErrEmptyCatalog is returned when the file defines no sources at all.
var ErrEmptyCatalog = errors.New("source catalog is empty")

type fileSource struct {
	Name     string `yaml:"name"`
	FeedURL  string `yaml:"feed_url"`
	Category string `yaml:"category"`
	Active   *bool  `yaml:"active"`
}

type file struct {
	Sources []fileSource `yaml:"sources"`
}

// Parse decodes and validates a catalog document.
// A source without an explicit active flag is active.
func Parse(data []byte) ([]*entity.Source, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, ErrEmptyCatalog
	}

	type feedKey struct {
		url      string
		category entity.Category
	}
	seen := make(map[feedKey]string, len(f.Sources))
	sources := make([]*entity.Source, 0, len(f.Sources))

	for i, fs := range f.Sources {
		category, err := entity.ParseCategory(fs.Category)
		if err != nil {
			return nil, fmt.Errorf("sources[%d] %q: %w", i, fs.Name, err)
		}
		src := &entity.Source{
			Name:     strings.TrimSpace(fs.Name),
			FeedURL:  strings.TrimSpace(fs.FeedURL),
			Category: category,
			Active:   fs.Active == nil || *fs.Active,
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}

		key := feedKey{url: src.FeedURL, category: src.Category}
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("sources[%d] %q: feed %s already listed for %s by %q",
				i, src.Name, src.FeedURL, src.Category, prev)
		}
		seen[key] = src.Name
		sources = append(sources, src)
	}

	return sources, nil
}

// Load reads and parses the catalog at path.
func Load(path string) ([]*entity.Source, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Catalog is an in-memory, reloadable source list.
type Catalog struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	sources []*entity.Source
}

var _ repository.SourceRepository = (*Catalog)(nil)

// Open loads the catalog at path. The initial load must succeed.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sources, err := Load(path)
	if err != nil {
		return nil, err
	}
	logger.Info("source catalog loaded",
		slog.String("path", path),
		slog.Int("sources", len(sources)))
	return &Catalog{path: path, logger: logger, sources: sources}, nil
}

// New builds a catalog from an already validated list. Used by tests and tools.
func New(sources []*entity.Source) *Catalog {
	return &Catalog{logger: slog.Default(), sources: sources}
}

// Path returns the file backing the catalog ("" for in-memory catalogs).
func (c *Catalog) Path() string {
	return c.path
}

// Reload re-reads the file. On error the previous list is kept.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	sources, err := Load(c.path)
	if err != nil {
		c.logger.Warn("source catalog reload failed, keeping previous catalog",
			slog.String("path", c.path),
			slog.Any("error", err))
		return err
	}

	c.mu.Lock()
	c.sources = sources
	c.mu.Unlock()

	c.logger.Info("source catalog reloaded",
		slog.String("path", c.path),
		slog.Int("sources", len(sources)))
	return nil
}

// All returns every source, active or not.
func (c *Catalog) All() []*entity.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSources(c.sources, func(*entity.Source) bool { return true })
}

// ListActive returns active sources ordered by category then name.
func (c *Catalog) ListActive(ctx context.Context) ([]*entity.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSources(c.sources, func(s *entity.Source) bool { return s.Active }), nil
}

// ListActiveByCategory returns active sources of one category.
func (c *Catalog) ListActiveByCategory(ctx context.Context, category entity.Category) ([]*entity.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSources(c.sources, func(s *entity.Source) bool {
		return s.Active && s.Category == category
	}), nil
}

// cloneSources copies matching entries so callers never share the catalog's pointers.
func cloneSources(in []*entity.Source, keep func(*entity.Source) bool) []*entity.Source {
	out := make([]*entity.Source, 0, len(in))
	for _, s := range in {
		if keep(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}
