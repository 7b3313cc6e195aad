package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashKey is the reserved target-map key for liquidity. It is structurally
// significant in every target map and must never collide with an asset id.
const CashKey = "cash"

// targetTolerance is the accepted absolute deviation from 100 for a fully
// specified target map.
var targetTolerance = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// TargetMap maps an asset id (or the reserved "cash" key) to a target
// allocation percentage.
type TargetMap map[string]decimal.Decimal

// Sum returns the total of all target percentages in the map
func (m TargetMap) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, pct := range m {
		total = total.Add(pct)
	}
	return total
}

// Validate ensures the target percentages sum to 100 within a 0.01 absolute
// tolerance. Returns a ValidationError carrying the computed total otherwise.
func (m TargetMap) Validate() error {
	total := m.Sum()
	if total.Sub(oneHundred).Abs().GreaterThan(targetTolerance) {
		return NewValidationError("targets must sum to 100%%, got %s%%", total.String())
	}
	return nil
}

// Floats converts the map to float64 values for JSON boundaries
// (stored JSONB column and wire DTOs).
func (m TargetMap) Floats() map[string]float64 {
	out := make(map[string]float64, len(m))
	for key, pct := range m {
		out[key] = pct.InexactFloat64()
	}
	return out
}

// TargetMapFromFloats builds a TargetMap from float64 values
func TargetMapFromFloats(in map[string]float64) TargetMap {
	out := make(TargetMap, len(in))
	for key, pct := range in {
		out[key] = decimal.NewFromFloat(pct)
	}
	return out
}

// Strategy represents a named, reusable target-allocation template.
// At most one strategy is active at any time.
type Strategy struct {
	ID          uuid.UUID
	Name        string
	Description string
	Targets     TargetMap
	IsActive    bool
	CreatedAt   time.Time
	ActivatedAt *time.Time // nil until first activation
}

// Validate ensures the strategy adheres to domain rules
// Returns an error if validation fails
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return NewValidationError("strategy name cannot be empty")
	}
	return s.Targets.Validate()
}

// StrategyHistory is an append-only activation log entry. The strategy name
// is captured by value so the entry survives strategy deletion.
type StrategyHistory struct {
	ID           uuid.UUID
	StrategyName string
	ActivatedAt  time.Time
}
