package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=folio sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// InitSchema creates the tables on first start if they do not exist yet
func (db *DB) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			ticker TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL DEFAULT '',
			isin TEXT NOT NULL DEFAULT '',
			asset_type TEXT NOT NULL,
			qty NUMERIC(20, 8) NOT NULL,
			pmc NUMERIC(20, 8) NOT NULL,
			price NUMERIC(20, 8) NOT NULL,
			target_pct NUMERIC(8, 4) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			seq BIGSERIAL
		)`,
		`CREATE TABLE IF NOT EXISTS cash (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			amount NUMERIC(20, 8) NOT NULL,
			target_pct NUMERIC(8, 4) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS strategies (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			targets JSONB NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			activated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS strategy_history (
			id UUID PRIMARY KEY,
			strategy_name TEXT NOT NULL,
			activated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id UUID PRIMARY KEY,
			snapshot_date TEXT NOT NULL,
			total_value NUMERIC(20, 8) NOT NULL,
			total_invested NUMERIC(20, 8) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rebalance_log (
			id UUID PRIMARY KEY,
			executed_at TIMESTAMPTZ NOT NULL,
			amount NUMERIC(20, 8) NOT NULL,
			total_spent NUMERIC(20, 8) NOT NULL,
			plan JSONB NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
