// Package valuation computes per-asset market values, gains and allocation
// weights. It is a pure function of the current portfolio state.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// AssetView is a single valued position. Monetary and percentage fields are
// rounded to 2 decimals at this output boundary, not during accumulation.
type AssetView struct {
	ID        string
	Name      string
	Ticker    string
	Symbol    string
	ISIN      string
	Type      domain.AssetType
	Qty       decimal.Decimal
	PMC       decimal.Decimal
	Price     decimal.Decimal
	TargetPct decimal.Decimal
	Value     decimal.Decimal
	Invested  decimal.Decimal
	GainEUR   decimal.Decimal
	GainPct   decimal.Decimal
	WeightPct decimal.Decimal
	DeltaPct  decimal.Decimal // present weight minus target
}

// CashView is the valued liquidity record
type CashView struct {
	Amount    decimal.Decimal
	TargetPct decimal.Decimal
	WeightPct decimal.Decimal
}

// PortfolioView is the full valued portfolio
type PortfolioView struct {
	Assets        []AssetView
	Cash          CashView
	TotalValue    decimal.Decimal
	TotalInvested decimal.Decimal
	TotalGainEUR  decimal.Decimal
	TotalGainPct  decimal.Decimal
}

// Valuate values every position against the portfolio total
// (sum of asset values plus cash). No side effects.
func Valuate(assets []*domain.Asset, cash *domain.Cash) *PortfolioView {
	totalValue := cash.Amount
	totalInvested := cash.Amount
	for _, a := range assets {
		totalValue = totalValue.Add(a.Value())
		totalInvested = totalInvested.Add(a.Invested())
	}

	views := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, valuateAsset(a, totalValue))
	}

	totalGain := totalValue.Sub(totalInvested).Round(2)

	return &PortfolioView{
		Assets: views,
		Cash: CashView{
			Amount:    cash.Amount,
			TargetPct: cash.TargetPct,
			WeightPct: ratioPct(cash.Amount, totalValue),
		},
		TotalValue:    totalValue.Round(2),
		TotalInvested: totalInvested.Round(2),
		TotalGainEUR:  totalGain,
		TotalGainPct:  ratioPct(totalGain, totalInvested),
	}
}

func valuateAsset(a *domain.Asset, totalValue decimal.Decimal) AssetView {
	value := a.Value().Round(2)
	invested := a.Invested().Round(2)
	gain := value.Sub(invested)
	weight := ratioPct(value, totalValue)

	return AssetView{
		ID:        a.ID,
		Name:      a.Name,
		Ticker:    a.Ticker,
		Symbol:    a.Symbol,
		ISIN:      a.ISIN,
		Type:      a.Type,
		Qty:       a.Qty,
		PMC:       a.PMC,
		Price:     a.Price,
		TargetPct: a.TargetPct,
		Value:     value,
		Invested:  invested,
		GainEUR:   gain,
		GainPct:   ratioPct(gain, invested),
		WeightPct: weight,
		DeltaPct:  weight.Sub(a.TargetPct).Round(2),
	}
}

// ratioPct returns part/whole*100 rounded to 2 decimals, 0 when the whole is
// zero (zero-invested and zero-value portfolios are legal states)
func ratioPct(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(oneHundred).Round(2)
}
