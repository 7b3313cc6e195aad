// Package prices refreshes asset prices through the injected price source
// and exposes ticker search.
package prices

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// baseCurrency is the currency every stored price is expressed in
const baseCurrency = "EUR"

// searchLimit caps the number of ticker search results
const searchLimit = 10

// ItemStatus reports the outcome of a single asset's price update
type ItemStatus string

const (
	StatusOK      ItemStatus = "ok"
	StatusSkipped ItemStatus = "skipped"
	StatusError   ItemStatus = "error"
)

// ItemResult is the per-asset outcome of a refresh pass
type ItemResult struct {
	ID       string
	Name     string
	OldPrice decimal.Decimal
	NewPrice decimal.Decimal
	Status   ItemStatus
	Error    string
}

// Result is the outcome of a full refresh pass. Partial failure is the
// normal, expected case: price sources fail independently per symbol.
type Result struct {
	Updated int
	Skipped int
	Errors  int
	Items   []ItemResult
}

// Service handles price refresh and ticker search operations
type Service struct {
	Assets domain.AssetRepository
	Source domain.PriceSource
	Logger zerolog.Logger

	mu sync.Mutex // one in-flight refresh at a time
}

// NewService creates a new prices Service instance
func NewService(assets domain.AssetRepository, source domain.PriceSource, logger zerolog.Logger) *Service {
	return &Service{
		Assets: assets,
		Source: source,
		Logger: logger.With().Str("service", "prices").Logger(),
	}
}

// RefreshAll fetches a fresh price for every asset carrying a lookup symbol.
// Each asset's update is committed independently: a failed symbol marks only
// that item with an error status and the pass keeps going. Non-EUR quotes
// are converted through an FX quote (e.g. EURUSD=X) cached for the pass; a
// failed FX lookup leaves the quoted price unconverted.
// Returns a ConflictError when a refresh pass is already running.
func (s *Service) RefreshAll(ctx context.Context) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, domain.NewConflictError("a price refresh is already in progress")
	}
	defer s.mu.Unlock()

	assets, err := s.Assets.List(ctx)
	if err != nil {
		return nil, err
	}

	fxRates := make(map[string]decimal.Decimal)
	result := &Result{Items: make([]ItemResult, 0, len(assets))}
	now := time.Now().UTC()

	for _, asset := range assets {
		if asset.Symbol == "" {
			result.Skipped++
			result.Items = append(result.Items, ItemResult{
				ID: asset.ID, Name: asset.Name,
				OldPrice: asset.Price, NewPrice: asset.Price,
				Status: StatusSkipped,
			})
			continue
		}

		quote, err := s.Source.FetchQuote(ctx, asset.Symbol)
		if err != nil {
			s.Logger.Warn().Err(err).Str("asset", asset.ID).Str("symbol", asset.Symbol).Msg("price lookup failed")
			result.Errors++
			result.Items = append(result.Items, ItemResult{
				ID: asset.ID, Name: asset.Name,
				OldPrice: asset.Price, NewPrice: asset.Price,
				Status: StatusError, Error: err.Error(),
			})
			continue
		}

		newPrice := s.toBaseCurrency(ctx, fxRates, quote).Round(4)
		oldPrice := asset.Price
		asset.Price = newPrice
		asset.UpdatedAt = now

		if err := s.Assets.Update(ctx, asset); err != nil {
			s.Logger.Warn().Err(err).Str("asset", asset.ID).Msg("price persist failed")
			result.Errors++
			result.Items = append(result.Items, ItemResult{
				ID: asset.ID, Name: asset.Name,
				OldPrice: oldPrice, NewPrice: oldPrice,
				Status: StatusError, Error: err.Error(),
			})
			continue
		}

		result.Updated++
		result.Items = append(result.Items, ItemResult{
			ID: asset.ID, Name: asset.Name,
			OldPrice: oldPrice, NewPrice: newPrice,
			Status: StatusOK,
		})
	}

	s.Logger.Info().
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Msg("price refresh complete")

	return result, nil
}

// Search looks up instruments by name or ticker through the price source
func (s *Service) Search(ctx context.Context, query string) ([]domain.TickerMatch, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return nil, domain.NewValidationError("search query must be at least 2 characters")
	}
	return s.Source.Search(ctx, query, searchLimit)
}

func (s *Service) toBaseCurrency(ctx context.Context, fxRates map[string]decimal.Decimal, quote *domain.Quote) decimal.Decimal {
	currency := strings.ToUpper(quote.Currency)
	if currency == "" || currency == baseCurrency {
		return quote.Price
	}

	rate, ok := fxRates[currency]
	if !ok {
		fxQuote, err := s.Source.FetchQuote(ctx, baseCurrency+currency+"=X")
		if err != nil {
			s.Logger.Warn().Err(err).Str("currency", currency).Msg("fx lookup failed, keeping source-currency price")
			return quote.Price
		}
		rate = fxQuote.Price
		fxRates[currency] = rate
	}

	if !rate.IsPositive() {
		return quote.Price
	}
	return quote.Price.Div(rate)
}
