// Package worker runs scheduled ingestion and analysis jobs.
package worker

import (
	"errors"
	"fmt"
	"log/slog"

	"biaswatch/internal/pkg/config"
	"biaswatch/internal/usecase/analysis"
	"biaswatch/internal/usecase/ingest"
)

// Config controls the cron worker.
type Config struct {
	// IngestSchedule runs global ingestion. Env: CRON_SCHEDULE.
	IngestSchedule string
	// AnalysisSchedule runs an analysis batch. Env: ANALYSIS_CRON_SCHEDULE.
	AnalysisSchedule string
	// Timezone is the IANA zone the schedules are read in. Env: WORKER_TIMEZONE.
	Timezone string
	// PageSize is the per-category page size of scheduled ingestion. Env: INGEST_PAGE_SIZE.
	PageSize int
	// AnalysisLimit is the batch size of scheduled analysis. Env: ANALYSIS_BATCH_LIMIT.
	AnalysisLimit int
	// HealthPort serves /health, /health/ready and /metrics. Env: WORKER_HEALTH_PORT.
	HealthPort int
}

// DefaultConfig ingests every 30 minutes and analyzes every 10, Madrid time.
func DefaultConfig() Config {
	return Config{
		IngestSchedule:   "*/30 * * * *",
		AnalysisSchedule: "*/10 * * * *",
		Timezone:         "Europe/Madrid",
		PageSize:         ingest.DefaultPageSize,
		AnalysisLimit:    analysis.DefaultLimit,
		HealthPort:       9091,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.IngestSchedule); err != nil {
		errs = append(errs, fmt.Errorf("ingest schedule: %w", err))
	}
	if err := config.ValidateCronSchedule(c.AnalysisSchedule); err != nil {
		errs = append(errs, fmt.Errorf("analysis schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := ingest.ValidatePageSize(c.PageSize); err != nil {
		errs = append(errs, fmt.Errorf("page size: %w", err))
	}
	if err := analysis.ValidateLimit(c.AnalysisLimit); err != nil {
		errs = append(errs, fmt.Errorf("analysis limit: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	return errors.Join(errs...)
}

// LoadConfigFromEnv reads the worker settings on top of DefaultConfig.
// Invalid values fall back to their default with a warning; the returned
// Config is always valid.
func LoadConfigFromEnv(logger *slog.Logger, metrics *config.ConfigMetrics) Config {
	d := DefaultConfig()
	l := config.NewLoader(logger, metrics)

	cfg := Config{
		IngestSchedule: config.Apply(l, "cron_schedule", "CRON_SCHEDULE",
			config.LoadEnvWithFallback("CRON_SCHEDULE", d.IngestSchedule, config.ValidateCronSchedule)),
		AnalysisSchedule: config.Apply(l, "analysis_cron_schedule", "ANALYSIS_CRON_SCHEDULE",
			config.LoadEnvWithFallback("ANALYSIS_CRON_SCHEDULE", d.AnalysisSchedule, config.ValidateCronSchedule)),
		Timezone: config.Apply(l, "timezone", "WORKER_TIMEZONE",
			config.LoadEnvWithFallback("WORKER_TIMEZONE", d.Timezone, config.ValidateTimezone)),
		PageSize: config.Apply(l, "page_size", "INGEST_PAGE_SIZE",
			config.LoadEnvInt("INGEST_PAGE_SIZE", d.PageSize, ingest.ValidatePageSize)),
		AnalysisLimit: config.Apply(l, "analysis_limit", "ANALYSIS_BATCH_LIMIT",
			config.LoadEnvInt("ANALYSIS_BATCH_LIMIT", d.AnalysisLimit, analysis.ValidateLimit)),
		HealthPort: config.Apply(l, "health_port", "WORKER_HEALTH_PORT",
			config.LoadEnvInt("WORKER_HEALTH_PORT", d.HealthPort, config.Range(1024, 65535))),
	}
	l.Finish()
	return cfg
}
