package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucarosati/folio-backend/internal/adapter/pricesource/yahoo"
	"github.com/lucarosati/folio-backend/internal/adapter/repository/postgres"
	"github.com/lucarosati/folio-backend/internal/adapter/rest"
	"github.com/lucarosati/folio-backend/internal/common"
	"github.com/lucarosati/folio-backend/internal/config"
	"github.com/lucarosati/folio-backend/internal/usecase/portfolio"
	"github.com/lucarosati/folio-backend/internal/usecase/prices"
	"github.com/lucarosati/folio-backend/internal/usecase/seeder"
	"github.com/lucarosati/folio-backend/internal/usecase/strategy"
	"github.com/lucarosati/folio-backend/internal/usecase/targets"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := common.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	db, err := postgres.NewDB(cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.InitSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize schema")
	}

	// Repositories
	assetRepo := postgres.NewAssetRepository(db)
	cashRepo := postgres.NewCashRepository(db)
	strategyRepo := postgres.NewStrategyRepository(db)
	portfolioRepo := postgres.NewPortfolioRepository(db)
	snapshotRepo := postgres.NewSnapshotRepository(db)
	rebalanceLogRepo := postgres.NewRebalanceLogRepository(db)

	// External price source
	sourceOpts := []yahoo.ClientOption{
		yahoo.WithTimeout(cfg.Prices.GetRequestTimeout()),
		yahoo.WithRateLimit(cfg.Prices.RateLimit),
	}
	if cfg.Prices.BaseURL != "" {
		sourceOpts = append(sourceOpts, yahoo.WithBaseURL(cfg.Prices.BaseURL))
	}
	priceSource := yahoo.NewClient(sourceOpts...)

	// Services
	portfolioService := portfolio.NewService(assetRepo, cashRepo, snapshotRepo, rebalanceLogRepo)
	targetsService := targets.NewService(portfolioRepo)
	strategyService := strategy.NewService(strategyRepo)
	pricesService := prices.NewService(assetRepo, priceSource, logger)

	if err := seeder.NewSeeder(assetRepo, cashRepo, strategyRepo).Seed(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed initial data")
	}
	logger.Info().Msg("initial data seeded")

	// HTTP server
	handler := rest.NewHandler(portfolioService, targetsService, strategyService, pricesService, logger)
	router := rest.NewRouter(handler, logger, cfg.Server.StaticDir)

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Background price refresh
	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()
	if interval := cfg.Prices.GetRefreshInterval(); interval > 0 {
		go refreshLoop(refreshCtx, pricesService, interval, logger)
	}

	waitForShutdown(server, logger)
}

// refreshLoop refreshes prices on a fixed interval until the context is
// cancelled. Overlapping passes are rejected by the service itself.
func refreshLoop(ctx context.Context, svc *prices.Service, interval time.Duration, logger zerolog.Logger) {
	logger.Info().Dur("interval", interval).Msg("price refresh loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.RefreshAll(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("scheduled price refresh failed")
				continue
			}
			logger.Info().
				Int("updated", result.Updated).
				Int("skipped", result.Skipped).
				Int("errors", result.Errors).
				Msg("scheduled price refresh done")
		}
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and drains the HTTP server
func waitForShutdown(server *http.Server, logger zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return
	}
	logger.Info().Msg("server stopped")
}
