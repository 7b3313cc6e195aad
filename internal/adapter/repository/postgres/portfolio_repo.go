package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	db *DB
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioRepository {
	return &portfolioRepository{db: db}
}

// ApplyTargets copies the mapping onto asset and cash target percentages in a
// single transaction. Unknown asset ids are silently skipped. When
// syncActiveStrategy is true the active strategy's stored map, if any, is
// overwritten with the input mapping.
func (r *portfolioRepository) ApplyTargets(ctx context.Context, targets domain.TargetMap, syncActiveStrategy bool) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := applyTargetsTx(ctx, dbTx, targets); err != nil {
		return err
	}

	if syncActiveStrategy {
		targetsRaw, err := json.Marshal(targets.Floats())
		if err != nil {
			return fmt.Errorf("failed to encode targets: %w", err)
		}
		_, err = dbTx.ExecContext(ctx, `UPDATE strategies SET targets = $1 WHERE is_active`, targetsRaw)
		if err != nil {
			return fmt.Errorf("failed to sync active strategy targets: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// applyTargetsTx writes target percentages onto the asset and cash rows
// inside an open transaction. Ids without a matching asset row are skipped.
func applyTargetsTx(ctx context.Context, dbTx *sql.Tx, targets domain.TargetMap) error {
	now := time.Now().UTC()

	for id, pct := range targets {
		if id == domain.CashKey {
			continue
		}
		_, err := dbTx.ExecContext(ctx,
			`UPDATE assets SET target_pct = $2, updated_at = $3 WHERE id = $1`,
			id, pct.String(), now,
		)
		if err != nil {
			return fmt.Errorf("failed to apply target for asset %q: %w", id, err)
		}
	}

	if cashPct, ok := targets[domain.CashKey]; ok {
		query := `
			UPDATE cash SET target_pct = $1, updated_at = $2 WHERE id = 1
		`
		result, err := dbTx.ExecContext(ctx, query, cashPct.String(), now)
		if err != nil {
			return fmt.Errorf("failed to apply cash target: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			insert := `
				INSERT INTO cash (id, amount, target_pct, updated_at)
				VALUES (1, 0, $1, $2)
			`
			if _, err := dbTx.ExecContext(ctx, insert, cashPct.String(), now); err != nil {
				return fmt.Errorf("failed to create cash row: %w", err)
			}
		}
	}

	return nil
}
