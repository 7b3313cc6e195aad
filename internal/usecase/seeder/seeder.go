package seeder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// seedAsset defines the structure for an asset to be seeded on first run
type seedAsset struct {
	ID        string
	Name      string
	Ticker    string
	Type      domain.AssetType
	Qty       float64
	PMC       float64
	Price     float64
	TargetPct float64
}

var seedAssets = []seedAsset{
	{ID: "world", Name: "MSCI AC World", Ticker: "Xtrackers MSCI AC World Scr. UCITS ETF 1C",
		Type: domain.AssetTypeETF, Qty: 211, PMC: 40.0320, Price: 44.6650, TargetPct: 70},
	{ID: "em", Name: "Emerging Markets", Ticker: "Xtrackers MSCI Emerging Markets UCITS ETF 1C",
		Type: domain.AssetTypeETF, Qty: 15, PMC: 64.4460, Price: 71.7520, TargetPct: 15},
	{ID: "gold", Name: "Gold ETC", Ticker: "Invesco Physical Gold ETC",
		Type: domain.AssetTypeETC, Qty: 2, PMC: 272.0300, Price: 409.0900, TargetPct: 10},
	{ID: "bond13", Name: "Bond 1-3Y", Ticker: "iShares EUR Govt Bond 1-3yr UCITS ETF EUR (Acc)",
		Type: domain.AssetTypeETF, Qty: 32, PMC: 114.0963, Price: 116.4300, TargetPct: 5},
	{ID: "bond710", Name: "Bond 7-10Y", Ticker: "Amundi Euro Government Bond 7-10Y UCITS ETF Acc",
		Type: domain.AssetTypeETF, Qty: 17, PMC: 166.2000, Price: 172.4300, TargetPct: 0},
}

// strategyTemplate defines a ready-to-use strategy inserted when missing
type strategyTemplate struct {
	Name        string
	Description string
	Targets     map[string]float64
}

var strategyTemplates = []strategyTemplate{
	{"Aggressive 20Y", "Long horizon, equity heavy",
		map[string]float64{"world": 75, "em": 15, "gold": 5, "bond13": 0, "bond710": 0, "cash": 5}},
	{"Moderate 10Y", "Balanced, medium horizon",
		map[string]float64{"world": 50, "em": 10, "gold": 10, "bond13": 15, "bond710": 5, "cash": 10}},
	{"Pre-Retirement", "Conservative, high liquidity and bonds",
		map[string]float64{"world": 30, "em": 5, "gold": 10, "bond13": 25, "bond710": 10, "cash": 20}},
}

// defaultStrategyName is the strategy created and activated on first run
const defaultStrategyName = "Default"

// Seeder populates an empty store with the initial portfolio, the default
// active strategy and the ready-to-use strategy templates
type Seeder struct {
	Assets     domain.AssetRepository
	Cash       domain.CashRepository
	Strategies domain.StrategyRepository
}

// NewSeeder creates a new Seeder instance
func NewSeeder(assets domain.AssetRepository, cash domain.CashRepository, strategies domain.StrategyRepository) *Seeder {
	return &Seeder{Assets: assets, Cash: cash, Strategies: strategies}
}

// Seed ensures the initial data exists. Assets are only seeded into an empty
// portfolio; templates are inserted individually when missing by name.
func (s *Seeder) Seed(ctx context.Context) error {
	count, err := s.Assets.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		now := time.Now().UTC()
		for _, seed := range seedAssets {
			asset := &domain.Asset{
				ID:        seed.ID,
				Name:      seed.Name,
				Ticker:    seed.Ticker,
				Type:      seed.Type,
				Qty:       decimal.NewFromFloat(seed.Qty),
				PMC:       decimal.NewFromFloat(seed.PMC),
				Price:     decimal.NewFromFloat(seed.Price),
				TargetPct: decimal.NewFromFloat(seed.TargetPct),
				UpdatedAt: now,
			}
			if err := asset.Validate(); err != nil {
				return err
			}
			if err := s.Assets.Create(ctx, asset); err != nil {
				return err
			}
		}
	}

	// The cash row is lazily created by the repository
	if _, err := s.Cash.Get(ctx); err != nil {
		return err
	}

	existing, err := s.Strategies.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		targets := make(domain.TargetMap, len(seedAssets)+1)
		for _, seed := range seedAssets {
			targets[seed.ID] = decimal.NewFromFloat(seed.TargetPct)
		}
		targets[domain.CashKey] = decimal.Zero

		def := &domain.Strategy{
			ID:          uuid.New(),
			Name:        defaultStrategyName,
			Description: "Initial portfolio allocation",
			Targets:     targets,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.Strategies.Create(ctx, def); err != nil {
			return err
		}
		if _, err := s.Strategies.Activate(ctx, def.ID, time.Now().UTC()); err != nil {
			return err
		}
	}

	for _, tpl := range strategyTemplates {
		found, err := s.Strategies.GetByName(ctx, tpl.Name)
		if err != nil {
			return err
		}
		if found != nil {
			continue
		}
		strat := &domain.Strategy{
			ID:          uuid.New(),
			Name:        tpl.Name,
			Description: tpl.Description,
			Targets:     domain.TargetMapFromFloats(tpl.Targets),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.Strategies.Create(ctx, strat); err != nil {
			return err
		}
	}

	return nil
}
