package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType represents the category of a tracked asset
type AssetType string

const (
	AssetTypeETF    AssetType = "etf"
	AssetTypeETC    AssetType = "etc"
	AssetTypeStock  AssetType = "stock"
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeBond   AssetType = "bond"
)

// AssetTypes lists every accepted asset category
var AssetTypes = []AssetType{
	AssetTypeETF,
	AssetTypeETC,
	AssetTypeStock,
	AssetTypeCrypto,
	AssetTypeBond,
}

// IsValid reports whether the asset type is one of the accepted categories
func (t AssetType) IsValid() bool {
	for _, known := range AssetTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Asset represents a single tracked investable position in the domain layer.
// The ID is a stable, caller-chosen string key (e.g. "world", "gold") and is
// immutable once created.
type Asset struct {
	ID        string
	Name      string
	Ticker    string    // descriptive instrument label
	Symbol    string    // optional lookup symbol for the external price source
	ISIN      string    // optional identifying code
	Type      AssetType
	Qty       decimal.Decimal // quantity held, non-negative
	PMC       decimal.Decimal // average cost paid per unit
	Price     decimal.Decimal // last known price per unit
	TargetPct decimal.Decimal // desired share of total portfolio value (0-100)
	UpdatedAt time.Time
}

// Validate ensures the asset adheres to domain rules
// Returns an error if validation fails
func (a *Asset) Validate() error {
	if a.ID == "" {
		return NewValidationError("asset id cannot be empty")
	}
	if a.ID == CashKey {
		return NewValidationError("asset id %q is reserved for liquidity", CashKey)
	}
	if a.Name == "" {
		return NewValidationError("asset name cannot be empty")
	}
	if !a.Type.IsValid() {
		return NewValidationError("invalid asset type %q, accepted: etf, etc, stock, crypto, bond", a.Type)
	}
	if a.Qty.IsNegative() {
		return NewValidationError("asset quantity cannot be negative")
	}
	return nil
}

// Value returns the current market value of the position (price x qty).
func (a *Asset) Value() decimal.Decimal {
	return a.Price.Mul(a.Qty)
}

// Invested returns the cost basis of the position (pmc x qty).
func (a *Asset) Invested() decimal.Decimal {
	return a.PMC.Mul(a.Qty)
}
