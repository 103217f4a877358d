package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConfigRepository persists per-user panel settings as a versioned JSON
// blob. The blob is opaque here; the settings service owns its schema and
// version upgrades.
type ConfigRepository interface {
	Get(ctx context.Context, userID string) ([]byte, error)
	Put(ctx context.Context, userID string, blob []byte) error
}

type configRepository struct {
	pool *pgxpool.Pool
}

// NewConfigRepository returns a Postgres-backed implementation.
func NewConfigRepository(pool *pgxpool.Pool) ConfigRepository {
	return &configRepository{pool: pool}
}

func (r *configRepository) Get(ctx context.Context, userID string) ([]byte, error) {
	const query = `SELECT config FROM user_configs WHERE user_id=$1`

	var blob []byte
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&blob); err != nil {
		return nil, err
	}
	return blob, nil
}

func (r *configRepository) Put(ctx context.Context, userID string, blob []byte) error {
	const query = `
        INSERT INTO user_configs (user_id, config)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET config=EXCLUDED.config, updated_at=NOW()`

	_, err := r.pool.Exec(ctx, query, userID, blob)
	return err
}
