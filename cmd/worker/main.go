package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"biaswatch/internal/app"
	"biaswatch/internal/infra/catalog"
	workerPkg "biaswatch/internal/infra/worker"
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

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewMetrics(prometheus.DefaultRegisterer)
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics.ConfigMetrics)
	logger.Info("worker configuration loaded",
		slog.String("ingest_schedule", workerConfig.IngestSchedule),
		slog.String("analysis_schedule", workerConfig.AnalysisSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("page_size", workerConfig.PageSize),
		slog.Int("analysis_limit", workerConfig.AnalysisLimit),
		slog.Int("health_port", workerConfig.HealthPort))

	// Health and metrics come up first so probes can see a failed start.
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, prometheus.DefaultGatherer, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

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

	jobs := &workerPkg.Jobs{
		Ingestor: a.Global,
		Analyzer: a.Scheduler,
		Config:   workerConfig,
		Metrics:  workerMetrics,
		Logger:   logger,
	}
	startCronWorker(ctx, logger, jobs, healthServer)
}

// startCronWorker runs the schedules until ctx is cancelled and waits for
// running jobs to finish.
func startCronWorker(ctx context.Context, logger *slog.Logger, jobs *workerPkg.Jobs, healthServer *workerPkg.HealthServer) {
	c, err := workerPkg.NewCron(ctx, jobs)
	if err != nil {
		logger.Error("failed to schedule jobs", slog.Any("error", err))
		os.Exit(1)
	}

	if config.GetEnvBool("WORKER_RUN_ON_START", false) {
		go jobs.RunIngest(ctx)
	}

	c.Start()
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("ingest_schedule", jobs.Config.IngestSchedule),
		slog.String("analysis_schedule", jobs.Config.AnalysisSchedule))

	<-ctx.Done()
	healthServer.SetReady(false)
	logger.Info("shutting down worker, waiting for running jobs...")
	<-c.Stop().Done()
	logger.Info("worker stopped")
}
