package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is a price returned by an external market-data source
type Quote struct {
	Symbol   string
	Price    decimal.Decimal
	Currency string // ISO code as reported by the source, e.g. "EUR", "USD"
}

// TickerMatch is a single result of a ticker search
type TickerMatch struct {
	Symbol   string
	Name     string
	Exchange string
	Type     string
	Currency string
}

// PriceSource is the injected capability for external price and ticker
// lookups. The valuation and planning core has no dependency on any
// concrete provider.
type PriceSource interface {
	// FetchQuote returns the latest price for a lookup symbol
	// Returns an ExternalSourceError when the source fails for the symbol
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)

	// Search looks up instruments by name or ticker
	Search(ctx context.Context, query string, limit int) ([]TickerMatch, error)
}
