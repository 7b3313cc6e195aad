package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AssetRepository defines the interface for asset persistence operations
type AssetRepository interface {
	// List retrieves every asset in insertion order
	List(ctx context.Context) ([]*Asset, error)

	// GetByID retrieves an asset by its id
	// Returns a NotFoundError if no asset with that id exists
	GetByID(ctx context.Context, id string) (*Asset, error)

	// Create creates a new asset
	// Returns a ConflictError if the id is already taken
	Create(ctx context.Context, asset *Asset) error

	// Update persists the asset's mutable fields
	Update(ctx context.Context, asset *Asset) error

	// Count returns the number of assets in the portfolio
	Count(ctx context.Context) (int, error)

	// Delete removes the asset and purges its key from every stored
	// strategy target map in a single transaction. The remaining
	// percentages are not renormalized.
	Delete(ctx context.Context, id string) error
}

// CashRepository defines the interface for the single cash record
type CashRepository interface {
	// Get retrieves the cash record, lazily creating it with zero values
	// if absent
	Get(ctx context.Context) (*Cash, error)

	// Update persists the cash record
	Update(ctx context.Context, cash *Cash) error
}

// StrategyRepository defines the interface for strategy persistence
type StrategyRepository interface {
	// List retrieves all strategies ordered by name
	List(ctx context.Context) ([]*Strategy, error)

	// GetByID retrieves a strategy by its id
	// Returns a NotFoundError if no strategy with that id exists
	GetByID(ctx context.Context, id uuid.UUID) (*Strategy, error)

	// GetByName retrieves a strategy by its unique name
	// Returns (nil, nil) when no strategy carries that name
	GetByName(ctx context.Context, name string) (*Strategy, error)

	// GetActive retrieves the currently active strategy
	// Returns (nil, nil) when none is active
	GetActive(ctx context.Context) (*Strategy, error)

	// Create creates a new strategy
	Create(ctx context.Context, strategy *Strategy) error

	// Update persists the strategy. When applyTargets is true the
	// strategy's target map is also copied onto the live assets and cash
	// within the same transaction (used when editing the active strategy).
	Update(ctx context.Context, strategy *Strategy, applyTargets bool) error

	// Delete removes the strategy record. History entries referencing its
	// name are retained verbatim.
	Delete(ctx context.Context, id uuid.UUID) error

	// Activate deactivates every other strategy, marks the target strategy
	// active, copies its stored target map onto live assets and cash, and
	// appends a history entry, all as one transaction.
	// Returns a NotFoundError if the id is absent.
	Activate(ctx context.Context, id uuid.UUID, at time.Time) (*Strategy, error)

	// History retrieves activation log entries, newest first
	History(ctx context.Context, limit int) ([]*StrategyHistory, error)
}

// PortfolioRepository groups mutations that span assets, cash and strategies
// and must commit as one unit
type PortfolioRepository interface {
	// ApplyTargets copies the mapping onto asset and cash target
	// percentages in a single transaction. Unknown asset ids are silently
	// skipped (lenient-merge policy). When syncActiveStrategy is true the
	// active strategy's stored map, if any, is overwritten with the exact
	// input mapping.
	ApplyTargets(ctx context.Context, targets TargetMap, syncActiveStrategy bool) error
}

// SnapshotRepository defines the interface for snapshot persistence
type SnapshotRepository interface {
	// List retrieves all snapshots ordered by date
	List(ctx context.Context) ([]*Snapshot, error)

	// Create creates a new snapshot
	Create(ctx context.Context, snapshot *Snapshot) error

	// Delete removes a snapshot
	// Returns a NotFoundError if the id is absent
	Delete(ctx context.Context, id uuid.UUID) error
}

// RebalanceLogRepository defines the interface for the executed-rebalance log
type RebalanceLogRepository interface {
	// Append stores an executed rebalance record. Entries are never
	// mutated or deleted.
	Append(ctx context.Context, log *RebalanceLog) error

	// List retrieves executed rebalances, newest first
	List(ctx context.Context, limit int) ([]*RebalanceLog, error)
}
