/**
 * @description
 * This file implements the data access layer for user credit lookups.
 * It contains the SQL used against the `users` table. Access is read-only.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver; *pgxpool.Pool satisfies Querier.
 * - github.com/shopspring/decimal: exact representation of NUMERIC credit values.
 *
 * @notes
 * - Queries always use parameter binding ($1), never string concatenation.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/swiftorder/user-service/internal/domain"
)

// Querier is the subset of the pgx pool API the repository needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pinger is implemented by stores that can report their own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

const findCreditByUserIDQuery = `SELECT credit::text FROM users WHERE id = $1`

// PostgresUserRepository is the PostgreSQL implementation of the User Store.
type PostgresUserRepository struct {
	db Querier
}

// NewPostgresUserRepository creates a new instance of PostgresUserRepository.
func NewPostgresUserRepository(db Querier) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// FindCreditByUserID returns the stored credit of a user.
// It returns domain.ErrUserNotFound when no row matches. A NULL credit reads as zero.
func (r *PostgresUserRepository) FindCreditByUserID(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var raw *string
	if err := r.db.QueryRow(ctx, findCreditByUserIDQuery, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return decimal.Zero, fmt.Errorf("query credit for user %d (sqlstate %s): %w", userID, pgErr.Code, err)
		}
		return decimal.Zero, fmt.Errorf("query credit for user %d: %w", userID, err)
	}
	if raw == nil {
		return decimal.Zero, nil
	}

	credit, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse credit for user %d: %w", userID, err)
	}
	return credit, nil
}

// Ping checks that the User Store is reachable.
func (r *PostgresUserRepository) Ping(ctx context.Context) error {
	pinger, ok := r.db.(Pinger)
	if !ok {
		return nil
	}
	return pinger.Ping(ctx)
}
