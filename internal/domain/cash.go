package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cash represents the portfolio's idle liquidity. Exactly one record exists;
// the repository lazily creates it with zero values when absent.
type Cash struct {
	Amount    decimal.Decimal
	TargetPct decimal.Decimal
	UpdatedAt time.Time
}
