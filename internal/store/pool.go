package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftorder/user-service/internal/domain"
)

// PoolOptions sizes the User Store connection pool.
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// NewPoolConfig parses the DSN and applies pool sizing.
func NewPoolConfig(dsn string, opts PoolOptions) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns >= 0 && opts.MinConns <= poolConfig.MaxConns {
		poolConfig.MinConns = opts.MinConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching so the service works behind PgBouncer
	// transaction pooling (avoids SQLSTATE 42P05).
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	return poolConfig, nil
}

// NewPool establishes the connection pool.
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	poolConfig, err := NewPoolConfig(dsn, opts)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// PoolStatsReader exposes pgxpool statistics in domain form.
type PoolStatsReader struct {
	pool *pgxpool.Pool
}

func NewPoolStatsReader(pool *pgxpool.Pool) *PoolStatsReader {
	return &PoolStatsReader{pool: pool}
}

// PoolStats returns a snapshot of the pool counters.
func (r *PoolStatsReader) PoolStats() domain.PoolStats {
	stat := r.pool.Stat()
	return domain.PoolStats{
		AcquiredConns:        stat.AcquiredConns(),
		IdleConns:            stat.IdleConns(),
		TotalConns:           stat.TotalConns(),
		MaxConns:             stat.MaxConns(),
		AcquireCount:         stat.AcquireCount(),
		EmptyAcquireCount:    stat.EmptyAcquireCount(),
		CanceledAcquireCount: stat.CanceledAcquireCount(),
		AcquireDuration:      stat.AcquireDuration(),
	}
}
