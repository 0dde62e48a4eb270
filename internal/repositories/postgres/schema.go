package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrisdamba/mealplanner/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("postgres: not found")

const schema = `
CREATE TABLE IF NOT EXISTS meals (
    id          BIGSERIAL PRIMARY KEY,
    restaurant  TEXT NOT NULL,
    meal        TEXT NOT NULL,
    attributes  JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (restaurant, meal)
);

CREATE TABLE IF NOT EXISTS plans (
    id               TEXT PRIMARY KEY,
    created_at       TIMESTAMPTZ NOT NULL,
    status           TEXT NOT NULL,
    total_cost       DOUBLE PRECISION NOT NULL,
    budget           DOUBLE PRECISION NOT NULL,
    objective        DOUBLE PRECISION NOT NULL,
    relaxed_families TEXT[] NOT NULL,
    document         JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS plan_entries (
    plan_id     TEXT NOT NULL REFERENCES plans (id) ON DELETE CASCADE,
    day         INTEGER NOT NULL,
    meal_type   TEXT NOT NULL,
    meal_id     TEXT NOT NULL,
    restaurant  TEXT NOT NULL,
    meal        TEXT NOT NULL,
    price       DOUBLE PRECISION NOT NULL,
    nutrition   JSONB NOT NULL,
    PRIMARY KEY (plan_id, day, meal_type)
);
`

// NewPool connects and pings the database.
func NewPool(ctx context.Context, config models.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables used by the repositories if missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}
