package rest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
	"github.com/lucarosati/folio-backend/internal/usecase/portfolio"
	"github.com/lucarosati/folio-backend/internal/usecase/prices"
	"github.com/lucarosati/folio-backend/internal/usecase/valuation"
)

// Decimals live in the domain; the wire format uses plain JSON numbers.
// Conversion happens only here.

// AssetDTO is the wire form of a valued position
type AssetDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker"`
	Symbol    string  `json:"symbol"`
	ISIN      string  `json:"isin"`
	Type      string  `json:"type"`
	Qty       float64 `json:"qty"`
	PMC       float64 `json:"pmc"`
	Price     float64 `json:"price"`
	TargetPct float64 `json:"target_pct"`
	Value     float64 `json:"value"`
	Invested  float64 `json:"invested"`
	GainEUR   float64 `json:"gain_eur"`
	GainPct   float64 `json:"gain_pct"`
	WeightPct float64 `json:"weight_pct"`
	DeltaPct  float64 `json:"delta_pct"`
}

// CashDTO is the wire form of the liquidity record
type CashDTO struct {
	Amount    float64 `json:"amount"`
	TargetPct float64 `json:"target_pct"`
	WeightPct float64 `json:"weight_pct"`
}

// PortfolioDTO is the wire form of the full valued portfolio
type PortfolioDTO struct {
	Assets        []AssetDTO `json:"assets"`
	Liquidity     CashDTO    `json:"liquidity"`
	TotalValue    float64    `json:"total_value"`
	TotalInvested float64    `json:"total_invested"`
	TotalGainEUR  float64    `json:"total_gain_eur"`
	TotalGainPct  float64    `json:"total_gain_pct"`
}

// SummaryDTO condenses the portfolio into totals plus weight and target maps
type SummaryDTO struct {
	TotalValue    float64            `json:"total_value"`
	TotalInvested float64            `json:"total_invested"`
	TotalGainEUR  float64            `json:"total_gain_eur"`
	TotalGainPct  float64            `json:"total_gain_pct"`
	Liquidity     float64            `json:"liquidity"`
	Weights       map[string]float64 `json:"weights"`
	Targets       map[string]float64 `json:"targets"`
}

// PlanItemDTO is one line of a rebalance plan
type PlanItemDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	InvestEUR     float64 `json:"invest_eur"`
	SharesToBuy   int64   `json:"shares_to_buy"`
	ActualSpend   float64 `json:"actual_spend"`
	PricePerShare float64 `json:"price_per_share"`
	WeightAfter   float64 `json:"weight_after_pct"`
}

// PlanDTO is the wire form of a rebalance plan
type PlanDTO struct {
	Amount         float64       `json:"amount"`
	Items          []PlanItemDTO `json:"items"`
	TotalSpent     float64       `json:"total_spent"`
	Leftover       float64       `json:"leftover"`
	LiquidityAfter float64       `json:"liquidity_after"`
}

// RebalanceLogDTO is one executed-rebalance record
type RebalanceLogDTO struct {
	ID         string        `json:"id"`
	ExecutedAt time.Time     `json:"executed_at"`
	Amount     float64       `json:"amount"`
	TotalSpent float64       `json:"total_spent"`
	Plan       []PlanItemDTO `json:"plan"`
}

// StrategyDTO is the wire form of a strategy
type StrategyDTO struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Targets     map[string]float64 `json:"targets"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	ActivatedAt *time.Time         `json:"activated_at,omitempty"`
}

// StrategyHistoryDTO is one activation log entry
type StrategyHistoryDTO struct {
	ID           string    `json:"id"`
	StrategyName string    `json:"strategy_name"`
	ActivatedAt  time.Time `json:"activated_at"`
}

// SnapshotDTO is the wire form of a snapshot
type SnapshotDTO struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	TotalValue    float64   `json:"total_value"`
	TotalInvested float64   `json:"total_invested"`
	CreatedAt     time.Time `json:"created_at"`
}

// RefreshItemDTO is the per-asset outcome of a price refresh
type RefreshItemDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	OldPrice float64 `json:"old_price"`
	NewPrice float64 `json:"new_price"`
	Status   string  `json:"status"`
	Error    string  `json:"error,omitempty"`
}

// RefreshResultDTO is the outcome of a full price refresh pass
type RefreshResultDTO struct {
	Updated int              `json:"updated"`
	Skipped int              `json:"skipped"`
	Errors  int              `json:"errors"`
	Items   []RefreshItemDTO `json:"items"`
}

// TickerMatchDTO is one ticker search result
type TickerMatchDTO struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

func toAssetDTO(v *valuation.AssetView) AssetDTO {
	return AssetDTO{
		ID:        v.ID,
		Name:      v.Name,
		Ticker:    v.Ticker,
		Symbol:    v.Symbol,
		ISIN:      v.ISIN,
		Type:      string(v.Type),
		Qty:       v.Qty.InexactFloat64(),
		PMC:       v.PMC.InexactFloat64(),
		Price:     v.Price.InexactFloat64(),
		TargetPct: v.TargetPct.InexactFloat64(),
		Value:     v.Value.InexactFloat64(),
		Invested:  v.Invested.InexactFloat64(),
		GainEUR:   v.GainEUR.InexactFloat64(),
		GainPct:   v.GainPct.InexactFloat64(),
		WeightPct: v.WeightPct.InexactFloat64(),
		DeltaPct:  v.DeltaPct.InexactFloat64(),
	}
}

func toPortfolioDTO(view *valuation.PortfolioView) PortfolioDTO {
	assets := make([]AssetDTO, len(view.Assets))
	for i := range view.Assets {
		assets[i] = toAssetDTO(&view.Assets[i])
	}
	return PortfolioDTO{
		Assets: assets,
		Liquidity: CashDTO{
			Amount:    view.Cash.Amount.InexactFloat64(),
			TargetPct: view.Cash.TargetPct.InexactFloat64(),
			WeightPct: view.Cash.WeightPct.InexactFloat64(),
		},
		TotalValue:    view.TotalValue.InexactFloat64(),
		TotalInvested: view.TotalInvested.InexactFloat64(),
		TotalGainEUR:  view.TotalGainEUR.InexactFloat64(),
		TotalGainPct:  view.TotalGainPct.InexactFloat64(),
	}
}

func toSummaryDTO(s *portfolio.Summary) SummaryDTO {
	return SummaryDTO{
		TotalValue:    s.TotalValue.InexactFloat64(),
		TotalInvested: s.TotalInvested.InexactFloat64(),
		TotalGainEUR:  s.TotalGainEUR.InexactFloat64(),
		TotalGainPct:  s.TotalGainPct.InexactFloat64(),
		Liquidity:     s.Liquidity.InexactFloat64(),
		Weights:       decimalMapToFloats(s.Weights),
		Targets:       decimalMapToFloats(s.Targets),
	}
}

func decimalMapToFloats(m map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v.InexactFloat64()
	}
	return out
}

func toPlanItemDTOs(items []domain.PlanItem) []PlanItemDTO {
	out := make([]PlanItemDTO, len(items))
	for i, item := range items {
		out[i] = PlanItemDTO{
			ID:            item.AssetID,
			Name:          item.Name,
			InvestEUR:     item.Invest.InexactFloat64(),
			SharesToBuy:   item.Shares,
			ActualSpend:   item.ActualSpend.InexactFloat64(),
			PricePerShare: item.Price.InexactFloat64(),
			WeightAfter:   item.WeightAfter.InexactFloat64(),
		}
	}
	return out
}

func fromPlanItemDTOs(items []PlanItemDTO) []domain.PlanItem {
	out := make([]domain.PlanItem, len(items))
	for i, item := range items {
		out[i] = domain.PlanItem{
			AssetID:     item.ID,
			Name:        item.Name,
			Invest:      decimal.NewFromFloat(item.InvestEUR),
			Shares:      item.SharesToBuy,
			ActualSpend: decimal.NewFromFloat(item.ActualSpend),
			Price:       decimal.NewFromFloat(item.PricePerShare),
			WeightAfter: decimal.NewFromFloat(item.WeightAfter),
		}
	}
	return out
}

func toPlanDTO(plan *domain.RebalancePlan) PlanDTO {
	return PlanDTO{
		Amount:         plan.Amount.InexactFloat64(),
		Items:          toPlanItemDTOs(plan.Items),
		TotalSpent:     plan.TotalSpent.InexactFloat64(),
		Leftover:       plan.Leftover.InexactFloat64(),
		LiquidityAfter: plan.LiquidityAfter.InexactFloat64(),
	}
}

func toRebalanceLogDTO(log *domain.RebalanceLog) RebalanceLogDTO {
	return RebalanceLogDTO{
		ID:         log.ID.String(),
		ExecutedAt: log.ExecutedAt,
		Amount:     log.Amount.InexactFloat64(),
		TotalSpent: log.TotalSpent.InexactFloat64(),
		Plan:       toPlanItemDTOs(log.Plan),
	}
}

func toStrategyDTO(s *domain.Strategy) StrategyDTO {
	return StrategyDTO{
		ID:          s.ID.String(),
		Name:        s.Name,
		Description: s.Description,
		Targets:     s.Targets.Floats(),
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
		ActivatedAt: s.ActivatedAt,
	}
}

func toSnapshotDTO(s *domain.Snapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:            s.ID.String(),
		Date:          s.Date,
		TotalValue:    s.TotalValue.InexactFloat64(),
		TotalInvested: s.TotalInvested.InexactFloat64(),
		CreatedAt:     s.CreatedAt,
	}
}

func toRefreshResultDTO(result *prices.Result) RefreshResultDTO {
	items := make([]RefreshItemDTO, len(result.Items))
	for i, item := range result.Items {
		items[i] = RefreshItemDTO{
			ID:       item.ID,
			Name:     item.Name,
			OldPrice: item.OldPrice.InexactFloat64(),
			NewPrice: item.NewPrice.InexactFloat64(),
			Status:   string(item.Status),
			Error:    item.Error,
		}
	}
	return RefreshResultDTO{
		Updated: result.Updated,
		Skipped: result.Skipped,
		Errors:  result.Errors,
		Items:   items,
	}
}

func toTickerMatchDTOs(matches []domain.TickerMatch) []TickerMatchDTO {
	out := make([]TickerMatchDTO, len(matches))
	for i, m := range matches {
		out[i] = TickerMatchDTO{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Exchange: m.Exchange,
			Type:     m.Type,
			Currency: m.Currency,
		}
	}
	return out
}
