package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// rebalanceLogRepository implements domain.RebalanceLogRepository
type rebalanceLogRepository struct {
	db *DB
}

// NewRebalanceLogRepository creates a new rebalance log repository
func NewRebalanceLogRepository(db *DB) domain.RebalanceLogRepository {
	return &rebalanceLogRepository{db: db}
}

// Append stores an executed rebalance record
func (r *rebalanceLogRepository) Append(ctx context.Context, log *domain.RebalanceLog) error {
	planRaw, err := json.Marshal(log.Plan)
	if err != nil {
		return fmt.Errorf("failed to encode rebalance plan: %w", err)
	}

	query := `
		INSERT INTO rebalance_log (id, executed_at, amount, total_spent, plan)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.ExecutedAt,
		log.Amount.String(),
		log.TotalSpent.String(),
		planRaw,
	)
	if err != nil {
		return fmt.Errorf("failed to append rebalance log: %w", err)
	}

	return nil
}

// List retrieves executed rebalances, newest first
func (r *rebalanceLogRepository) List(ctx context.Context, limit int) ([]*domain.RebalanceLog, error) {
	query := `
		SELECT id, executed_at, amount, total_spent, plan
		FROM rebalance_log
		ORDER BY executed_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rebalance log: %w", err)
	}
	defer rows.Close()

	var logs []*domain.RebalanceLog
	for rows.Next() {
		var log domain.RebalanceLog
		var amountStr, spentStr string
		var planRaw []byte

		err := rows.Scan(&log.ID, &log.ExecutedAt, &amountStr, &spentStr, &planRaw)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rebalance log: %w", err)
		}
		if log.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		if log.TotalSpent, err = decimal.NewFromString(spentStr); err != nil {
			return nil, fmt.Errorf("failed to parse total_spent: %w", err)
		}
		if err := json.Unmarshal(planRaw, &log.Plan); err != nil {
			return nil, fmt.Errorf("failed to parse rebalance plan: %w", err)
		}

		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rebalance log: %w", err)
	}

	return logs, nil
}
