package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// NewCron schedules the ingestion and analysis jobs in cfg.Timezone.
// A run still in progress when its next tick fires is skipped, so batches
// of the same job never overlap. ctx is passed to every run and should be
// cancelled on shutdown.
func NewCron(ctx context.Context, jobs *Jobs) (*cron.Cron, error) {
	loc, err := time.LoadLocation(jobs.Config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", jobs.Config.Timezone, err)
	}

	clog := cronLogger{logger: jobs.logger()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	if _, err := c.AddFunc(jobs.Config.IngestSchedule, func() { jobs.RunIngest(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule ingestion %q: %w", jobs.Config.IngestSchedule, err)
	}
	if _, err := c.AddFunc(jobs.Config.AnalysisSchedule, func() { jobs.RunAnalysis(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule analysis %q: %w", jobs.Config.AnalysisSchedule, err)
	}
	return c, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ logger *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
