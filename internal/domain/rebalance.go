package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanItem is the per-asset line of a rebalance plan. Assets with zero gap
// or zero target still appear with a zero allocation.
type PlanItem struct {
	AssetID     string          `json:"id"`
	Name        string          `json:"name"`
	Invest      decimal.Decimal `json:"invest_eur"`        // proportional allocation before flooring
	Shares      int64           `json:"shares_to_buy"`     // whole units, never rounded up
	ActualSpend decimal.Decimal `json:"actual_spend"`      // shares x price
	Price       decimal.Decimal `json:"price_per_share"`
	WeightAfter decimal.Decimal `json:"weight_after_pct"` // post-investment weight vs the future total
}

// RebalancePlan distributes an investable amount across under-weighted
// assets proportionally to their shortfall.
type RebalancePlan struct {
	Amount         decimal.Decimal
	Items          []PlanItem
	TotalSpent     decimal.Decimal
	Leftover       decimal.Decimal // unspent portion, folded back into liquidity
	LiquidityAfter decimal.Decimal
}

// RebalanceLog is an append-only record of an executed rebalance
type RebalanceLog struct {
	ID         uuid.UUID
	ExecutedAt time.Time
	Amount     decimal.Decimal
	TotalSpent decimal.Decimal
	Plan       []PlanItem
}
