package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoginCountRepository keeps login counters in Postgres. Each increment is
// a single upsert, so concurrent logins never lose an update.
type LoginCountRepository struct {
	pool *pgxpool.Pool
}

func NewLoginCountRepository(db *database.DB) *LoginCountRepository {
	return &LoginCountRepository{pool: db.Pool}
}

func (r *LoginCountRepository) Increment(ctx context.Context, accountID string) (uint64, error) {
	query := `
		INSERT INTO login_counts (account_id, count, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			count = login_counts.count + 1,
			updated_at = NOW()
		RETURNING count
	`

	var count int64
	if err := r.pool.QueryRow(ctx, query, accountID, int64(models.InitialLoginCount+1)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment login count: %w", database.MapPostgresError(err))
	}
	return uint64(count), nil
}

// Get returns the current count, models.InitialLoginCount if none is stored
func (r *LoginCountRepository) Get(ctx context.Context, accountID string) (uint64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count FROM login_counts WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		err = database.MapPostgresError(err)
		if errors.Is(err, models.ErrNotFound) {
			return models.InitialLoginCount, nil
		}
		return 0, fmt.Errorf("failed to read login count: %w", err)
	}
	return uint64(count), nil
}
