// Package app wires the stores, fetchers, analyzer and use cases shared by
// the API server, the worker and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	pgRepo "biaswatch/internal/infra/adapter/persistence/postgres"
	sqliteRepo "biaswatch/internal/infra/adapter/persistence/sqlite"
	"biaswatch/internal/infra/analyzer"
	"biaswatch/internal/infra/catalog"
	"biaswatch/internal/infra/db"
	"biaswatch/internal/infra/feed"
	"biaswatch/internal/infra/fetcher"
	"biaswatch/internal/repository"
	"biaswatch/internal/usecase/analysis"
	"biaswatch/internal/usecase/ingest"
	"biaswatch/internal/usecase/search"
	"biaswatch/pkg/config"
)

// Analyzer types accepted in ANALYZER_TYPE.
const (
	AnalyzerClaude = "claude"
	AnalyzerOpenAI = "openai"
	AnalyzerNoOp   = "noop"
)

var (
	// ErrUnknownDriver is returned for a DB_DRIVER other than postgres or sqlite.
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrUnknownAnalyzer is returned for an unsupported ANALYZER_TYPE.
	ErrUnknownAnalyzer = errors.New("unknown analyzer type")

	// ErrMissingAPIKey is returned when the selected AI provider has no key.
	ErrMissingAPIKey = errors.New("missing API key")
)

// Database is the connection pool handle kept by the App.
// *sql.DB and *sqlx.DB both satisfy it.
type Database interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
	Close() error
}

// AnalyzerBackend is an AI analyzer that reports its provider name.
type AnalyzerBackend interface {
	analysis.Analyzer
	Name() string
}

// App holds the wired components.
type App struct {
	DB       Database
	Driver   string
	Articles repository.ArticleRepository
	Catalog  *catalog.Catalog
	Status   *ingest.StatusTracker

	// Category records each run in Status; use it for operator-triggered runs.
	Category  ingest.CategoryRunner
	Global    *ingest.GlobalIngestor
	Scheduler *analysis.Scheduler
	Search    *search.Waterfall
	Analyzer  AnalyzerBackend

	logger *slog.Logger
}

// New opens the store, loads the source catalog and builds the use cases.
//
// Environment variables:
//   - DB_DRIVER: postgres (default) or sqlite
//   - DATABASE_URL: connection string (SQLite: file path or ":memory:")
//   - SOURCES_FILE: source catalog (default: config/sources.yaml)
//   - INGEST_FEED_TIMEOUT: per-feed fetch timeout (default: 10s)
//   - INGEST_SOURCE_CONCURRENCY: feeds fetched at once per category (default: 4)
//   - INGEST_CATEGORY_CONCURRENCY: categories ingested at once (default: 2)
//   - ANALYZER_TYPE: claude (default), openai or noop
//   - ANTHROPIC_API_KEY / OPENAI_API_KEY: provider credentials
func New(ctx context.Context, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ai, err := NewAnalyzer(config.GetEnvString("ANALYZER_TYPE", AnalyzerClaude))
	if err != nil {
		return nil, err
	}

	analysisCfg := analysis.LoadConfigFromEnv()
	if err := analysisCfg.Validate(); err != nil {
		return nil, fmt.Errorf("analysis configuration: %w", err)
	}

	src, err := catalog.Open(config.GetEnvString("SOURCES_FILE", catalog.DefaultPath), logger)
	if err != nil {
		return nil, fmt.Errorf("load source catalog: %w", err)
	}

	driver := strings.ToLower(config.GetEnvString("DB_DRIVER", db.DriverPostgres))
	database, articles, err := openStore(ctx, driver, os.Getenv("DATABASE_URL"))
	if err != nil {
		return nil, err
	}

	a := &App{
		DB:       database,
		Driver:   driver,
		Articles: articles,
		Catalog:  src,
		Status:   ingest.NewStatusTracker(),
		Analyzer: ai,
		logger:   logger,
	}
	a.build(analysisCfg, loadFetcherConfig(logger))

	logger.Info("application wired",
		slog.String("db_driver", driver),
		slog.String("analyzer", ai.Name()),
		slog.Int("sources", len(src.All())))
	return a, nil
}

func (a *App) build(analysisCfg analysis.Config, pageCfg fetcher.Config) {
	feeds := feed.NewDefaultRSSFetcher(config.GetEnvDuration("INGEST_FEED_TIMEOUT", feed.DefaultTimeout))

	raw := ingest.NewCategoryIngestor(a.Catalog, a.Articles, feeds,
		ingest.WithSourceConcurrency(config.GetEnvIntInRange("INGEST_SOURCE_CONCURRENCY", ingest.DefaultSourceConcurrency, 1, 16)),
		ingest.WithLogger(a.logger),
	)
	// GlobalIngestor records each category itself, so it gets the untracked runner.
	a.Global = ingest.NewGlobalIngestor(raw,
		config.GetEnvIntInRange("INGEST_CATEGORY_CONCURRENCY", ingest.DefaultCategoryConcurrency, 1, 8),
		a.Status)
	a.Category = ingest.TrackingIngestor{CategoryRunner: raw, Status: a.Status}

	opts := []analysis.Option{
		analysis.WithMarkdown(fetcher.NewMarkdownConverter()),
		analysis.WithMetadata(fetcher.NewMetadataExtractor(pageCfg)),
		analysis.WithStatus(a.Status),
		analysis.WithLogger(a.logger),
	}
	if pageCfg.Enabled {
		analysisCfg.ContentThreshold = pageCfg.Threshold
		opts = append(opts, analysis.WithContentFetcher(fetcher.NewReadabilityFetcher(pageCfg)))
	}
	a.Scheduler = analysis.NewScheduler(a.Articles, a.Analyzer, analysisCfg, opts...)

	a.Search = search.NewWaterfall(a.Articles, a.Category, search.LoadConfigFromEnv(), a.logger)
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// NewAnalyzer builds the analyzer selected by kind.
func NewAnalyzer(kind string) (AnalyzerBackend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case AnalyzerClaude:
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", ErrMissingAPIKey)
		}
		cfg, err := analyzer.LoadClaudeConfig()
		if err != nil {
			return nil, err
		}
		return analyzer.NewClaude(key, cfg), nil
	case AnalyzerOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingAPIKey)
		}
		cfg, err := analyzer.LoadOpenAIConfig()
		if err != nil {
			return nil, err
		}
		return analyzer.NewOpenAI(key, cfg), nil
	case AnalyzerNoOp:
		return analyzer.NewNoOp(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, kind)
	}
}

func openStore(ctx context.Context, driver, dsn string) (Database, repository.ArticleRepository, error) {
	switch driver {
	case db.DriverPostgres:
		pg, err := db.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.MigrateUp(pg); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return pg, pgRepo.NewArticleRepo(pg), nil
	case db.DriverSQLite:
		lite, err := db.OpenSQLite(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.MigrateSQLite(lite); err != nil {
			_ = lite.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return lite, sqliteRepo.NewArticleRepo(lite), nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func loadFetcherConfig(logger *slog.Logger) fetcher.Config {
	cfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid page fetch configuration, using defaults",
			slog.Any("error", err))
	}
	return cfg
}
