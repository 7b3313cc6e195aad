package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// strategyRepository implements domain.StrategyRepository
type strategyRepository struct {
	db *DB
}

// NewStrategyRepository creates a new strategy repository
func NewStrategyRepository(db *DB) domain.StrategyRepository {
	return &strategyRepository{db: db}
}

const strategyColumns = `id, name, description, targets, is_active, created_at, activated_at`

func scanStrategy(row interface{ Scan(...interface{}) error }) (*domain.Strategy, error) {
	var strategy domain.Strategy
	var targetsRaw []byte
	var activatedAt sql.NullTime

	err := row.Scan(
		&strategy.ID,
		&strategy.Name,
		&strategy.Description,
		&targetsRaw,
		&strategy.IsActive,
		&strategy.CreatedAt,
		&activatedAt,
	)
	if err != nil {
		return nil, err
	}

	var targets map[string]float64
	if err := json.Unmarshal(targetsRaw, &targets); err != nil {
		return nil, fmt.Errorf("failed to parse strategy targets: %w", err)
	}
	strategy.Targets = domain.TargetMapFromFloats(targets)

	if activatedAt.Valid {
		at := activatedAt.Time
		strategy.ActivatedAt = &at
	}

	return &strategy, nil
}

func marshalTargets(targets domain.TargetMap) ([]byte, error) {
	raw, err := json.Marshal(targets.Floats())
	if err != nil {
		return nil, fmt.Errorf("failed to encode strategy targets: %w", err)
	}
	return raw, nil
}

// List retrieves all strategies ordered by name
func (r *strategyRepository) List(ctx context.Context) ([]*domain.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	defer rows.Close()

	var strategies []*domain.Strategy
	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		strategies = append(strategies, strategy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategies: %w", err)
	}

	return strategies, nil
}

// GetByID retrieves a strategy by its id
func (r *strategyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies WHERE id = $1`

	strategy, err := scanStrategy(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("strategy", id.String())
		}
		return nil, fmt.Errorf("failed to get strategy by id: %w", err)
	}

	return strategy, nil
}

// GetByName retrieves a strategy by its unique name, (nil, nil) when absent
func (r *strategyRepository) GetByName(ctx context.Context, name string) (*domain.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies WHERE name = $1`

	strategy, err := scanStrategy(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get strategy by name: %w", err)
	}

	return strategy, nil
}

// GetActive retrieves the currently active strategy, (nil, nil) when none
func (r *strategyRepository) GetActive(ctx context.Context) (*domain.Strategy, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategies WHERE is_active`

	strategy, err := scanStrategy(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active strategy: %w", err)
	}

	return strategy, nil
}

// Create creates a new strategy
func (r *strategyRepository) Create(ctx context.Context, strategy *domain.Strategy) error {
	targetsRaw, err := marshalTargets(strategy.Targets)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO strategies (` + strategyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		strategy.ID,
		strategy.Name,
		strategy.Description,
		targetsRaw,
		strategy.IsActive,
		strategy.CreatedAt,
		strategy.ActivatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.NewConflictError("a strategy named %q already exists", strategy.Name)
		}
		return fmt.Errorf("failed to create strategy: %w", err)
	}

	return nil
}

// Update persists the strategy. When applyTargets is true the stored target
// map is also copied onto the live assets and cash within the same
// transaction.
func (r *strategyRepository) Update(ctx context.Context, strategy *domain.Strategy, applyTargets bool) error {
	targetsRaw, err := marshalTargets(strategy.Targets)
	if err != nil {
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		UPDATE strategies
		SET name = $2, description = $3, targets = $4
		WHERE id = $1
	`

	result, err := dbTx.ExecContext(ctx, query,
		strategy.ID,
		strategy.Name,
		strategy.Description,
		targetsRaw,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.NewConflictError("a strategy named %q already exists", strategy.Name)
		}
		return fmt.Errorf("failed to update strategy: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("strategy", strategy.ID.String())
	}

	if applyTargets {
		if err := applyTargetsTx(ctx, dbTx, strategy.Targets); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes the strategy record, keeping its history entries verbatim
func (r *strategyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("strategy", id.String())
	}

	return nil
}

// Activate deactivates every other strategy, marks the target one active,
// copies its target map onto live assets and cash, and appends a history
// entry, all as one transaction.
func (r *strategyRepository) Activate(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Strategy, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	selectQuery := `SELECT ` + strategyColumns + ` FROM strategies WHERE id = $1 FOR UPDATE`
	strategy, err := scanStrategy(dbTx.QueryRowContext(ctx, selectQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("strategy", id.String())
		}
		return nil, fmt.Errorf("failed to load strategy: %w", err)
	}

	_, err = dbTx.ExecContext(ctx, `UPDATE strategies SET is_active = FALSE WHERE is_active AND id <> $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate strategies: %w", err)
	}

	_, err = dbTx.ExecContext(ctx,
		`UPDATE strategies SET is_active = TRUE, activated_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to activate strategy: %w", err)
	}

	if err := applyTargetsTx(ctx, dbTx, strategy.Targets); err != nil {
		return nil, err
	}

	historyQuery := `
		INSERT INTO strategy_history (id, strategy_name, activated_at)
		VALUES ($1, $2, $3)
	`
	_, err = dbTx.ExecContext(ctx, historyQuery, uuid.New(), strategy.Name, at)
	if err != nil {
		return nil, fmt.Errorf("failed to append strategy history: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	strategy.IsActive = true
	strategy.ActivatedAt = &at
	return strategy, nil
}

// History retrieves activation log entries, newest first
func (r *strategyRepository) History(ctx context.Context, limit int) ([]*domain.StrategyHistory, error) {
	query := `
		SELECT id, strategy_name, activated_at
		FROM strategy_history
		ORDER BY activated_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategy history: %w", err)
	}
	defer rows.Close()

	var entries []*domain.StrategyHistory
	for rows.Next() {
		var entry domain.StrategyHistory
		if err := rows.Scan(&entry.ID, &entry.StrategyName, &entry.ActivatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strategy history: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategy history: %w", err)
	}

	return entries, nil
}
