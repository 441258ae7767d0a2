package main

import (
	"context"
	"log/slog"
	"net/http"

	"biaswatch/internal/app"
	hhttp "biaswatch/internal/handler/http"
	hanalysis "biaswatch/internal/handler/http/analysis"
	hauth "biaswatch/internal/handler/http/auth"
	hingest "biaswatch/internal/handler/http/ingest"
	"biaswatch/internal/handler/http/middleware"
	hnews "biaswatch/internal/handler/http/news"
	"biaswatch/internal/handler/http/requestid"
	"biaswatch/internal/observability/tracing"
	ingestUC "biaswatch/internal/usecase/ingest"
	"biaswatch/pkg/config"
	"biaswatch/pkg/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
)

// maxBodyBytes caps request bodies (1MB).
const maxBodyBytes = 1 << 20

// services are the use cases behind the routes.
type services struct {
	DB       hhttp.Database
	Category ingestUC.CategoryRunner
	All      hingest.GlobalRunner
	Stats    hingest.StatsReader
	Status   hingest.StatusReader
	Analyze  hanalysis.BatchRunner
	Search   hnews.Searcher
}

func servicesFrom(a *app.App) services {
	return services{
		DB:       a.DB,
		Category: a.Category,
		All:      a.Global,
		Stats:    a.Articles,
		Status:   a.Status,
		Analyze:  a.Scheduler,
		Search:   a.Search,
	}
}

// routerConfig carries everything newRouter needs besides the services.
type routerConfig struct {
	Version  string
	Secret   []byte
	Throttle config.ThrottleSettings
	IPs      middleware.IPExtractor
	Registry prometheus.Registerer
	Logger   *slog.Logger
}

// newRouter registers every route and wraps the mux in the global chain:
// request id → logging → recovery → body limit → tracing → auth → metrics.
// Throttles are per route and run after auth so callers with a token are
// keyed by subject. Throttle windows are swept until ctx is done.
func newRouter(ctx context.Context, svc services, cfg routerConfig) (http.Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	guards, err := newGuards(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// ヘルスチェック（認証不要）
	mux.Handle("GET /health", &hhttp.HealthHandler{DB: svc.DB, Version: cfg.Version, Logger: logger})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: svc.DB})
	mux.Handle("GET /live", hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	hingest.Register(mux, hingest.Deps{
		Category: svc.Category,
		All:      svc.All,
		Stats:    svc.Stats,
		Status:   svc.Status,
	}, hingest.Guards{
		All:      guards.IngestAll,
		Category: guards.IngestCategory,
		Status:   guards.Status,
	})

	analyze := hhttp.Timeout(hanalysis.RequestTimeout)
	if guards.Analyze != nil {
		throttle := guards.Analyze
		analyze = func(next http.Handler) http.Handler {
			return throttle(hhttp.Timeout(hanalysis.RequestTimeout)(next))
		}
	}
	hanalysis.Register(mux, svc.Analyze, analyze)
	hnews.Register(mux, svc.Search, guards.Search)

	return hhttp.Chain(mux,
		requestid.Middleware,
		hhttp.Logging(logger),
		hhttp.Recover(logger),
		hhttp.LimitRequestBody(maxBodyBytes),
		tracing.Middleware,
		hauth.Authz(cfg.Secret, logger),
		hhttp.MetricsMiddleware,
	), nil
}

// routeGuards holds one throttle per protected route. With throttling
// disabled only IngestAll is set: global ingestion always runs behind the
// strict tier.
type routeGuards struct {
	IngestAll      func(http.Handler) http.Handler
	IngestCategory func(http.Handler) http.Handler
	Status         func(http.Handler) http.Handler
	Analyze        func(http.Handler) http.Handler
	Search         func(http.Handler) http.Handler
}

func newGuards(ctx context.Context, cfg routerConfig, logger *slog.Logger) (routeGuards, error) {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metrics := ratelimit.NewPrometheusMetrics(reg)
	key := middleware.CallerKey(cfg.IPs)

	guard := func(p ratelimit.Policy) (func(http.Handler) http.Handler, error) {
		limiter, err := ratelimit.NewWindowLimiter(p,
			ratelimit.WithStore(ratelimit.NewInMemoryWindowStore(cfg.Throttle.MaxKeys)),
			ratelimit.WithMetrics(metrics),
		)
		if err != nil {
			return nil, err
		}
		limiter.StartCleanup(ctx, cfg.Throttle.CleanupInterval, logger)
		return middleware.Throttle(limiter, key, logger), nil
	}

	if !cfg.Throttle.Enabled {
		logger.Warn("rate limiting is DISABLED - not recommended for production",
			slog.String("kept", "ingest_all"))
		ingestAll, err := guard(cfg.Throttle.Policies.IngestAll)
		return routeGuards{IngestAll: ingestAll}, err
	}

	p := cfg.Throttle.Policies
	var g routeGuards
	var err error
	if g.IngestAll, err = guard(p.IngestAll); err != nil {
		return g, err
	}
	if g.IngestCategory, err = guard(p.IngestCategory); err != nil {
		return g, err
	}
	if g.Status, err = guard(p.Status); err != nil {
		return g, err
	}
	if g.Analyze, err = guard(p.Analyze); err != nil {
		return g, err
	}
	if g.Search, err = guard(p.Search); err != nil {
		return g, err
	}

	logger.Info("rate limiting initialized",
		slog.Int("ingest_all_max", p.IngestAll.Max),
		slog.Duration("ingest_all_window", p.IngestAll.Window),
		slog.Int("ingest_category_max", p.IngestCategory.Max),
		slog.Int("analyze_max", p.Analyze.Max),
		slog.Int("search_max", p.Search.Max),
		slog.Int("max_keys", cfg.Throttle.MaxKeys))
	return g, nil
}
