package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// List retrieves all snapshots ordered by date
func (r *snapshotRepository) List(ctx context.Context) ([]*domain.Snapshot, error) {
	query := `
		SELECT id, snapshot_date, total_value, total_invested, created_at
		FROM snapshots
		ORDER BY snapshot_date
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.Snapshot
	for rows.Next() {
		var snapshot domain.Snapshot
		var valueStr, investedStr string

		err := rows.Scan(&snapshot.ID, &snapshot.Date, &valueStr, &investedStr, &snapshot.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if snapshot.TotalValue, err = decimal.NewFromString(valueStr); err != nil {
			return nil, fmt.Errorf("failed to parse total_value: %w", err)
		}
		if snapshot.TotalInvested, err = decimal.NewFromString(investedStr); err != nil {
			return nil, fmt.Errorf("failed to parse total_invested: %w", err)
		}

		snapshots = append(snapshots, &snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}

// Create creates a new snapshot
func (r *snapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	query := `
		INSERT INTO snapshots (id, snapshot_date, total_value, total_invested, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.Date,
		snapshot.TotalValue.String(),
		snapshot.TotalInvested.String(),
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	return nil
}

// Delete removes a snapshot
func (r *snapshotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("snapshot", id.String())
	}

	return nil
}
