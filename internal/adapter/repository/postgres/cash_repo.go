package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// cashRepository implements domain.CashRepository. The table holds a single
// row with id = 1.
type cashRepository struct {
	db *DB
}

// NewCashRepository creates a new cash repository
func NewCashRepository(db *DB) domain.CashRepository {
	return &cashRepository{db: db}
}

// Get retrieves the cash record, lazily creating it with zero values if absent
func (r *cashRepository) Get(ctx context.Context) (*domain.Cash, error) {
	query := `SELECT amount, target_pct, updated_at FROM cash WHERE id = 1`

	var cash domain.Cash
	var amountStr, targetStr string

	err := r.db.QueryRowContext(ctx, query).Scan(&amountStr, &targetStr, &cash.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.createDefault(ctx)
		}
		return nil, fmt.Errorf("failed to get cash: %w", err)
	}

	if cash.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse cash amount: %w", err)
	}
	if cash.TargetPct, err = decimal.NewFromString(targetStr); err != nil {
		return nil, fmt.Errorf("failed to parse cash target: %w", err)
	}

	return &cash, nil
}

// Update persists the cash record
func (r *cashRepository) Update(ctx context.Context, cash *domain.Cash) error {
	query := `
		INSERT INTO cash (id, amount, target_pct, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET amount = EXCLUDED.amount,
			target_pct = EXCLUDED.target_pct,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		cash.Amount.String(),
		cash.TargetPct.String(),
		cash.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update cash: %w", err)
	}

	return nil
}

func (r *cashRepository) createDefault(ctx context.Context) (*domain.Cash, error) {
	cash := &domain.Cash{
		Amount:    decimal.Zero,
		TargetPct: decimal.Zero,
		UpdatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO cash (id, amount, target_pct, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		cash.Amount.String(),
		cash.TargetPct.String(),
		cash.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create default cash row: %w", err)
	}

	return cash, nil
}
