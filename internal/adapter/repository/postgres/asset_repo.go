package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures
const uniqueViolation = "23505"

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

const assetColumns = `id, name, ticker, symbol, isin, asset_type, qty, pmc, price, target_pct, updated_at`

// scanAsset reads one asset row; NUMERIC columns come back as strings
func scanAsset(row interface{ Scan(...interface{}) error }) (*domain.Asset, error) {
	var asset domain.Asset
	var qtyStr, pmcStr, priceStr, targetStr string

	err := row.Scan(
		&asset.ID,
		&asset.Name,
		&asset.Ticker,
		&asset.Symbol,
		&asset.ISIN,
		&asset.Type,
		&qtyStr,
		&pmcStr,
		&priceStr,
		&targetStr,
		&asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&asset.Qty, qtyStr},
		{&asset.PMC, pmcStr},
		{&asset.Price, priceStr},
		{&asset.TargetPct, targetStr},
	} {
		value, err := decimal.NewFromString(field.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse numeric column: %w", err)
		}
		*field.dst = value
	}

	return &asset, nil
}

// List retrieves every asset in insertion order
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}

	return assets, nil
}

// GetByID retrieves an asset by its id
func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("asset", id)
		}
		return nil, fmt.Errorf("failed to get asset by id: %w", err)
	}

	return asset, nil
}

// Create creates a new asset
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (` + assetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.Name,
		asset.Ticker,
		asset.Symbol,
		asset.ISIN,
		string(asset.Type),
		asset.Qty.String(),
		asset.PMC.String(),
		asset.Price.String(),
		asset.TargetPct.String(),
		asset.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.NewConflictError("asset id %q is already taken", asset.ID)
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// Update persists the asset's mutable fields
func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	query := `
		UPDATE assets
		SET name = $2, ticker = $3, symbol = $4, isin = $5, asset_type = $6,
			qty = $7, pmc = $8, price = $9, target_pct = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.Name,
		asset.Ticker,
		asset.Symbol,
		asset.ISIN,
		string(asset.Type),
		asset.Qty.String(),
		asset.PMC.String(),
		asset.Price.String(),
		asset.TargetPct.String(),
		asset.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("asset", asset.ID)
	}

	return nil
}

// Count returns the number of assets in the portfolio
func (r *assetRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return count, nil
}

// Delete removes the asset and purges its key from every stored strategy
// target map in a single transaction. Remaining percentages are kept as-is.
func (r *assetRepository) Delete(ctx context.Context, id string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	result, err := dbTx.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("asset", id)
	}

	_, err = dbTx.ExecContext(ctx, `UPDATE strategies SET targets = targets - $1 WHERE targets ? $1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge asset from strategy targets: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
