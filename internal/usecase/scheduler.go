package usecase

import (
	"context"
	"log/slog"
	"time"

	"ArticlesPipeline/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring pipeline runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: loggerOrDefault(log)}
}

// Start registers the pipeline with the driver. A failed run is logged and
// the next trigger tries again.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled run started", slog.Time("trigger", trigger))
		reports, err := s.pipeline.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled run failed", slog.Int("stages", len(reports)), slog.Any("err", err))
			return
		}
		s.logger.Info("scheduled run finished", slog.Int("stages", len(reports)))
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
