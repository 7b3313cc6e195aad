package portfolio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
	"github.com/lucarosati/folio-backend/internal/usecase/planner"
	"github.com/lucarosati/folio-backend/internal/usecase/valuation"
)

// rebalanceHistoryLimit caps the executed-rebalance log returned to callers
const rebalanceHistoryLimit = 50

// UpdateAssetInput holds the updatable fields of an asset (all optional).
// The id, name and ticker label are immutable after creation.
type UpdateAssetInput struct {
	Price  *decimal.Decimal
	PMC    *decimal.Decimal
	Qty    *decimal.Decimal
	Symbol *string
	ISIN   *string
	Type   *domain.AssetType
}

// UpdateCashInput holds the updatable fields of the cash record
type UpdateCashInput struct {
	Amount    *decimal.Decimal
	TargetPct *decimal.Decimal
}

// Summary condenses the portfolio into totals plus weight and target maps
// keyed by asset id and the reserved "cash" key
type Summary struct {
	TotalValue    decimal.Decimal
	TotalInvested decimal.Decimal
	TotalGainEUR  decimal.Decimal
	TotalGainPct  decimal.Decimal
	Liquidity     decimal.Decimal
	Weights       map[string]decimal.Decimal
	Targets       map[string]decimal.Decimal
}

// Service handles asset and cash bookkeeping, snapshots, and rebalance
// planning and logging
type Service struct {
	Assets        domain.AssetRepository
	Cash          domain.CashRepository
	Snapshots     domain.SnapshotRepository
	RebalanceLogs domain.RebalanceLogRepository
}

// NewService creates a new portfolio Service instance
func NewService(
	assets domain.AssetRepository,
	cash domain.CashRepository,
	snapshots domain.SnapshotRepository,
	rebalanceLogs domain.RebalanceLogRepository,
) *Service {
	return &Service{
		Assets:        assets,
		Cash:          cash,
		Snapshots:     snapshots,
		RebalanceLogs: rebalanceLogs,
	}
}

// GetPortfolio returns the fully valued portfolio
func (s *Service) GetPortfolio(ctx context.Context) (*valuation.PortfolioView, error) {
	assets, cash, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return valuation.Valuate(assets, cash), nil
}

// GetSummary returns portfolio totals plus present-weight and target maps
func (s *Service) GetSummary(ctx context.Context) (*Summary, error) {
	assets, cash, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	view := valuation.Valuate(assets, cash)

	weights := make(map[string]decimal.Decimal, len(view.Assets)+1)
	targets := make(map[string]decimal.Decimal, len(view.Assets)+1)
	for _, a := range view.Assets {
		weights[a.ID] = a.WeightPct
		targets[a.ID] = a.TargetPct
	}
	weights[domain.CashKey] = view.Cash.WeightPct
	targets[domain.CashKey] = view.Cash.TargetPct

	return &Summary{
		TotalValue:    view.TotalValue,
		TotalInvested: view.TotalInvested,
		TotalGainEUR:  view.TotalGainEUR,
		TotalGainPct:  view.TotalGainPct,
		Liquidity:     cash.Amount,
		Weights:       weights,
		Targets:       targets,
	}, nil
}

// CreateAsset adds a new asset to the portfolio and returns its valued view
func (s *Service) CreateAsset(ctx context.Context, asset *domain.Asset) (*valuation.AssetView, error) {
	if err := asset.Validate(); err != nil {
		return nil, err
	}
	asset.UpdatedAt = time.Now().UTC()
	if err := s.Assets.Create(ctx, asset); err != nil {
		return nil, err
	}
	return s.valuedView(ctx, asset.ID)
}

// UpdateAsset applies the supplied fields to an existing asset and returns
// its valued view
func (s *Service) UpdateAsset(ctx context.Context, id string, input UpdateAssetInput) (*valuation.AssetView, error) {
	asset, err := s.Assets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Price != nil {
		asset.Price = *input.Price
	}
	if input.PMC != nil {
		asset.PMC = *input.PMC
	}
	if input.Qty != nil {
		asset.Qty = *input.Qty
	}
	if input.Symbol != nil {
		asset.Symbol = *input.Symbol
	}
	if input.ISIN != nil {
		asset.ISIN = *input.ISIN
	}
	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, domain.NewValidationError("invalid asset type %q, accepted: etf, etc, stock, crypto, bond", *input.Type)
		}
		asset.Type = *input.Type
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	asset.UpdatedAt = time.Now().UTC()
	if err := s.Assets.Update(ctx, asset); err != nil {
		return nil, err
	}
	return s.valuedView(ctx, id)
}

// DeleteAsset removes an asset and purges its key from every stored strategy
// target map. Deleting the last remaining asset is forbidden.
func (s *Service) DeleteAsset(ctx context.Context, id string) error {
	if _, err := s.Assets.GetByID(ctx, id); err != nil {
		return err
	}

	count, err := s.Assets.Count(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return domain.NewConflictError("cannot delete the last remaining asset")
	}

	return s.Assets.Delete(ctx, id)
}

// UpdateCash applies the supplied fields to the cash record and returns its
// valued view
func (s *Service) UpdateCash(ctx context.Context, input UpdateCashInput) (*valuation.CashView, error) {
	cash, err := s.Cash.Get(ctx)
	if err != nil {
		return nil, err
	}

	if input.Amount != nil {
		cash.Amount = *input.Amount
	}
	if input.TargetPct != nil {
		cash.TargetPct = *input.TargetPct
	}
	cash.UpdatedAt = time.Now().UTC()

	if err := s.Cash.Update(ctx, cash); err != nil {
		return nil, err
	}

	assets, err := s.Assets.List(ctx)
	if err != nil {
		return nil, err
	}
	view := valuation.Valuate(assets, cash)
	return &view.Cash, nil
}

// PlanRebalance computes a purchase plan for investing amount across
// under-weighted assets. The amount is not checked against liquidity.
func (s *Service) PlanRebalance(ctx context.Context, amount decimal.Decimal) (*domain.RebalancePlan, error) {
	// Reject at the boundary, before touching any repository
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewValidationError("rebalance amount must be positive, got %s", amount.String())
	}

	assets, cash, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return planner.PlanRebalance(assets, cash, amount)
}

// ExecuteRebalance appends an executed rebalance to the append-only log.
// It records what the caller actually did; no cash is deducted here.
func (s *Service) ExecuteRebalance(ctx context.Context, amount, totalSpent decimal.Decimal, plan []domain.PlanItem) (*domain.RebalanceLog, error) {
	log := &domain.RebalanceLog{
		ID:         uuid.New(),
		ExecutedAt: time.Now().UTC(),
		Amount:     amount,
		TotalSpent: totalSpent,
		Plan:       plan,
	}
	if err := s.RebalanceLogs.Append(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

// RebalanceHistory returns executed rebalances, newest first
func (s *Service) RebalanceHistory(ctx context.Context) ([]*domain.RebalanceLog, error) {
	return s.RebalanceLogs.List(ctx, rebalanceHistoryLimit)
}

// ListSnapshots returns all stored snapshots ordered by date
func (s *Service) ListSnapshots(ctx context.Context) ([]*domain.Snapshot, error) {
	return s.Snapshots.List(ctx)
}

// CreateSnapshot stores a point-in-time value record under a caller-supplied
// date string
func (s *Service) CreateSnapshot(ctx context.Context, date string, totalValue, totalInvested decimal.Decimal) (*domain.Snapshot, error) {
	if date == "" {
		return nil, domain.NewValidationError("snapshot date cannot be empty")
	}
	snap := &domain.Snapshot{
		ID:            uuid.New(),
		Date:          date,
		TotalValue:    totalValue,
		TotalInvested: totalInvested,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Snapshots.Create(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// DeleteSnapshot removes a snapshot by id
func (s *Service) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	return s.Snapshots.Delete(ctx, id)
}

func (s *Service) load(ctx context.Context) ([]*domain.Asset, *domain.Cash, error) {
	assets, err := s.Assets.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	cash, err := s.Cash.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	return assets, cash, nil
}

func (s *Service) valuedView(ctx context.Context, id string) (*valuation.AssetView, error) {
	assets, cash, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	view := valuation.Valuate(assets, cash)
	for i := range view.Assets {
		if view.Assets[i].ID == id {
			return &view.Assets[i], nil
		}
	}
	return nil, domain.NewNotFoundError("asset", id)
}
