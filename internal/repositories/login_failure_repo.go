package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoginFailureRepository counts failed logins in Postgres. A row whose
// window has lapsed restarts at 1 on the next failure.
type LoginFailureRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewLoginFailureRepository(db *database.DB) *LoginFailureRepository {
	return &LoginFailureRepository{pool: db.Pool, now: time.Now}
}

func (r *LoginFailureRepository) RecordFailure(ctx context.Context, login string, window time.Duration) (int, error) {
	query := `
		INSERT INTO login_failures (login, failures, window_started_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (login) DO UPDATE SET
			failures = CASE
				WHEN login_failures.window_started_at < $3 THEN 1
				ELSE login_failures.failures + 1
			END,
			window_started_at = CASE
				WHEN login_failures.window_started_at < $3 THEN EXCLUDED.window_started_at
				ELSE login_failures.window_started_at
			END
		RETURNING failures
	`

	now := r.now()
	var failures int
	if err := r.pool.QueryRow(ctx, query, login, now, now.Add(-window)).Scan(&failures); err != nil {
		return 0, fmt.Errorf("failed to record login failure: %w", database.MapPostgresError(err))
	}
	return failures, nil
}

func (r *LoginFailureRepository) Failures(ctx context.Context, login string, window time.Duration) (int, error) {
	query := `SELECT failures FROM login_failures WHERE login = $1 AND window_started_at >= $2`

	var failures int
	err := r.pool.QueryRow(ctx, query, login, r.now().Add(-window)).Scan(&failures)
	if err != nil {
		err = database.MapPostgresError(err)
		if errors.Is(err, models.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read login failures: %w", err)
	}
	return failures, nil
}

func (r *LoginFailureRepository) Reset(ctx context.Context, login string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM login_failures WHERE login = $1`, login); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", database.MapPostgresError(err))
	}
	return nil
}
