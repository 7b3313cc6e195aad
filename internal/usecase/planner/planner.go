package planner

import (
	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// assetGap pairs an asset with its shortfall against the projected future total
type assetGap struct {
	asset *domain.Asset
	gap   decimal.Decimal
}

// PlanRebalance distributes a new investment amount across under-weighted
// assets proportionally to their shortfall.
// Logic:
//  1. futureTotal = current portfolio total + amount (the denominator every
//     post-investment weight is judged against, computed once)
//  2. Per asset, gap = max(0, futureTotal*target% - currentValue); assets at
//     or above target contribute zero gap (buying only, never selling)
//  3. Each asset with target > 0 and gap > 0 receives (gap/totalGap)*amount,
//     floored to whole units so the total spend can never exceed amount
//  4. Unspent leftover is folded back into liquidity, never lost
//
// The amount is deliberately not checked against available liquidity: this is
// a planning tool, not an executor.
func PlanRebalance(assets []*domain.Asset, cash *domain.Cash, amount decimal.Decimal) (*domain.RebalancePlan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewValidationError("rebalance amount must be positive, got %s", amount.String())
	}

	currentTotal := cash.Amount
	for _, a := range assets {
		currentTotal = currentTotal.Add(a.Value())
	}
	futureTotal := currentTotal.Add(amount)

	gaps := make([]assetGap, 0, len(assets))
	totalGap := decimal.Zero
	for _, a := range assets {
		targetValue := futureTotal.Mul(a.TargetPct).Div(oneHundred)
		gap := targetValue.Sub(a.Value())
		if gap.IsNegative() {
			gap = decimal.Zero
		}
		gaps = append(gaps, assetGap{asset: a, gap: gap})
		totalGap = totalGap.Add(gap)
	}

	items := make([]domain.PlanItem, 0, len(assets))
	totalSpent := decimal.Zero

	for _, g := range gaps {
		a := g.asset

		if a.TargetPct.LessThanOrEqual(decimal.Zero) || g.gap.LessThanOrEqual(decimal.Zero) {
			items = append(items, domain.PlanItem{
				AssetID:     a.ID,
				Name:        a.Name,
				Invest:      decimal.Zero,
				Shares:      0,
				ActualSpend: decimal.Zero,
				Price:       a.Price,
				WeightAfter: weightOf(a.Value(), futureTotal),
			})
			continue
		}

		// Proportional allocation by shortfall share. totalGap > 0 here
		// because this asset's own gap is positive.
		invest := g.gap.Mul(amount).Div(totalGap)

		// Whole units only, never rounded up: guarantees the plan never
		// overspends. A zero or negative price yields zero shares.
		var shares int64
		if a.Price.IsPositive() {
			shares = invest.Div(a.Price).Floor().IntPart()
		}
		actual := a.Price.Mul(decimal.NewFromInt(shares)).Round(2)
		totalSpent = totalSpent.Add(actual)

		items = append(items, domain.PlanItem{
			AssetID:     a.ID,
			Name:        a.Name,
			Invest:      invest.Round(2),
			Shares:      shares,
			ActualSpend: actual,
			Price:       a.Price,
			WeightAfter: weightOf(a.Value().Add(actual), futureTotal),
		})
	}

	leftover := amount.Sub(totalSpent).Round(2)

	return &domain.RebalancePlan{
		Amount:         amount,
		Items:          items,
		TotalSpent:     totalSpent.Round(2),
		Leftover:       leftover,
		LiquidityAfter: cash.Amount.Add(leftover).Round(2),
	}, nil
}

// weightOf returns value/total*100 rounded to 2 decimals, 0 when total is
// not positive
func weightOf(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return value.Div(total).Mul(oneHundred).Round(2)
}
