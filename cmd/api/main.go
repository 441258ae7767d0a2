package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biaswatch/internal/app"
	"biaswatch/internal/handler/http/analysis"
	hauth "biaswatch/internal/handler/http/auth"
	"biaswatch/internal/handler/http/middleware"
	"biaswatch/internal/infra/catalog"
	"biaswatch/internal/observability/logging"
	"biaswatch/internal/observability/tracing"
	"biaswatch/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Setup(config.GetEnvFloat("TRACE_SAMPLE_RATIO", 1.0))
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to stop tracer provider", slog.Any("error", err))
		}
	}()

	a, err := app.New(ctx, logger)
	if err != nil {
		logger.Error("failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if err := a.Catalog.Watch(ctx, catalog.DefaultDebounce); err != nil {
		logger.Warn("source catalog hot reload disabled", slog.Any("error", err))
	}

	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	version := getVersion()
	handler, err := newRouter(ctx, servicesFrom(a), routerConfig{
		Version:  version,
		Secret:   loadJWTSecret(logger),
		Throttle: config.LoadThrottleSettings(),
		IPs:      middleware.NewIPExtractor(proxyConfig, logger),
		Registry: prometheus.DefaultRegisterer,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build router", slog.Any("error", err))
		os.Exit(1)
	}

	runServer(ctx, logger, handler, version)
}

// loadJWTSecret returns JWT_SECRET. Empty disables authentication; a short
// secret is refused.
func loadJWTSecret(logger *slog.Logger) []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil
	}
	// セキュリティ: 最小32文字（256ビット）を強制
	if len(secret) < hauth.MinSecretLength {
		logger.Error("JWT_SECRET must be at least 32 characters (256 bits)")
		os.Exit(1)
	}
	return []byte(secret)
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	return config.GetEnvString("VERSION", "dev")
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
func runServer(ctx context.Context, logger *slog.Logger, handler http.Handler, version string) {
	addr := config.GetEnvString("HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		WriteTimeout:      analysis.RequestTimeout + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server failed", slog.Any("error", err))
		return
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
