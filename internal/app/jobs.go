/**
 * @description
 * Background jobs run by the cron scheduler.
 */
package app

import (
	"log/slog"

	"github.com/swiftorder/user-service/internal/domain"
)

// PoolStatsSource provides connection pool statistics.
type PoolStatsSource interface {
	PoolStats() domain.PoolStats
}

// Jobs holds the dependencies of the scheduled jobs.
type Jobs struct {
	pool   PoolStatsSource
	logger *slog.Logger

	lastEmptyAcquires int64
}

// NewJobs creates the job set.
func NewJobs(pool PoolStatsSource, logger *slog.Logger) *Jobs {
	return &Jobs{pool: pool, logger: logger}
}

// ReportPoolStats logs User Store pool usage and warns when requests had to wait for a
// connection since the previous run.
func (j *Jobs) ReportPoolStats() {
	if j.pool == nil {
		return
	}

	stats := j.pool.PoolStats()
	waited := stats.EmptyAcquireCount - j.lastEmptyAcquires
	j.lastEmptyAcquires = stats.EmptyAcquireCount

	attrs := []any{
		"acquired_conns", stats.AcquiredConns,
		"idle_conns", stats.IdleConns,
		"total_conns", stats.TotalConns,
		"max_conns", stats.MaxConns,
		"acquire_count", stats.AcquireCount,
		"canceled_acquire_count", stats.CanceledAcquireCount,
		"waited_acquires", waited,
		"acquire_duration", stats.AcquireDuration.String(),
	}

	if stats.Saturated() || waited > 0 {
		j.logger.Warn("database pool under pressure", attrs...)
		return
	}
	j.logger.Info("database pool stats", attrs...)
}
