package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"biaswatch/internal/usecase/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Portada</title><link>https://news.example</link></channel></rss>`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// setupStore points the CLI at an in-memory store and one local feed.
func setupStore(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, emptyFeed)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", ":memory:")
	t.Setenv("ANALYZER_TYPE", "noop")
	t.Setenv("PAGE_FETCH_ENABLED", "false")
	t.Setenv("SOURCES_FILE", writeCatalog(t,
		fmt.Sprintf("sources:\n  - name: Portada\n    feed_url: %s/rss\n    category: general\n", srv.URL)))
}

func TestSourcesValidate(t *testing.T) {
	path := writeCatalog(t, `
sources:
  - name: Marca
    feed_url: https://e00-marca.uecdn.es/rss/portada.xml
    category: deportes
  - name: Expansión
    feed_url: https://e00-expansion.uecdn.es/rss/portada.xml
    category: economia
    active: false
`)

	out, err := run(t, "sources", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 sources (1 inactive)")
	assert.Regexp(t, `deportes\s+1`, out)
	assert.Regexp(t, `economia\s+0`, out)
}

func TestSourcesValidate_Invalid(t *testing.T) {
	path := writeCatalog(t, "sources:\n  - name: a\n    feed_url: ftp://a.example/rss\n    category: general\n")

	_, err := run(t, "sources", "validate", path)
	assert.Error(t, err)
}

func TestSourcesValidate_UsesSourcesFile(t *testing.T) {
	t.Setenv("SOURCES_FILE", writeCatalog(t, "sources:\n  - name: a\n    feed_url: https://a.example/rss\n    category: general\n"))

	out, err := run(t, "sources", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "1 sources (0 inactive)")
}

func TestFlagValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing category", []string{"ingest"}},
		{"unknown category", []string{"ingest", "--category", "cocina"}},
		{"page size too large", []string{"ingest", "-c", "general", "--page-size", "500"}},
		{"ingest-all page size zero", []string{"ingest-all", "--page-size", "0"}},
		{"analyze limit too large", []string{"analyze", "--limit", "51"}},
		{"search without query", []string{"search"}},
		{"search too short", []string{"search", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// an unreachable store proves validation happens before wiring
			t.Setenv("DB_DRIVER", "unknown")
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.NotContains(t, err.Error(), "unknown database driver")
		})
	}
}

func TestIngestAndAnalyze(t *testing.T) {
	setupStore(t)

	out, err := run(t, "ingest", "--category", "General", "--page-size", "5")
	require.NoError(t, err)

	var res ingest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Sources)
	assert.Zero(t, res.Errors)

	out, err = run(t, "analyze", "-n", "3")
	require.NoError(t, err)
	assert.Contains(t, out, `"selected": 0`)
}

func TestSearch_FallsBack(t *testing.T) {
	setupStore(t)

	out, err := run(t, "search", "eclipse", "solar")
	require.NoError(t, err)
	assert.Contains(t, out, `level fallback, 0 result(s) for "eclipse solar"`)
	assert.Contains(t, out, "eclipse")
}
