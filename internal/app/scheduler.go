/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron              *cron.Cron
	jobs              *Jobs
	logger            *slog.Logger
	poolStatsSchedule string
}

// NewScheduler creates a new scheduler instance. An empty schedule disables the job.
func NewScheduler(jobs *Jobs, logger *slog.Logger, poolStatsSchedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:              c,
		jobs:              jobs,
		logger:            logger,
		poolStatsSchedule: strings.TrimSpace(poolStatsSchedule),
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if s.poolStatsSchedule == "" {
		s.logger.Info("pool stats job disabled")
	} else if _, err := s.cron.AddFunc(s.poolStatsSchedule, s.jobs.ReportPoolStats); err != nil {
		s.logger.Error("failed to schedule pool stats job", "schedule", s.poolStatsSchedule, "error", err)
	} else {
		s.logger.Info("scheduled pool stats job", "schedule", s.poolStatsSchedule)
	}

	s.cron.Start()
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
