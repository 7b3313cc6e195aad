//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucarosati/folio-backend/internal/domain"
)

var testDB *DB

// TestMain sets up the test database connection and schema
func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer testDB.Close()

	if err := testDB.InitSchema(ctx); err != nil {
		panic(fmt.Sprintf("Failed to initialize schema: %v", err))
	}

	os.Exit(m.Run())
}

// getDBConnectionString returns the database connection string from environment or defaults
func getDBConnectionString() string {
	connStr := os.Getenv("DB_CONN_STR")
	if connStr != "" {
		return connStr
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("DB_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dbname := os.Getenv("DB_NAME")
	if dbname == "" {
		dbname = "folio"
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// resetTables wipes every table so each test starts from a clean slate
func resetTables(t *testing.T, ctx context.Context) {
	t.Helper()
	for _, table := range []string{"strategy_history", "strategies", "assets", "cash", "snapshots", "rebalance_log"} {
		_, err := testDB.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err, "failed to reset table %s", table)
	}
}

func seedAsset(t *testing.T, ctx context.Context, repo domain.AssetRepository, id, name string, targetPct float64) {
	t.Helper()
	err := repo.Create(ctx, &domain.Asset{
		ID:        id,
		Name:      name,
		Type:      domain.AssetTypeETF,
		Qty:       decimal.NewFromInt(10),
		PMC:       decimal.NewFromInt(90),
		Price:     decimal.NewFromInt(100),
		TargetPct: decimal.NewFromFloat(targetPct),
		UpdatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

func seedStrategy(t *testing.T, ctx context.Context, repo domain.StrategyRepository, name string, targets map[string]float64) *domain.Strategy {
	t.Helper()
	strat := &domain.Strategy{
		ID:        uuid.New(),
		Name:      name,
		Targets:   domain.TargetMapFromFloats(targets),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, strat))
	return strat
}

func TestStrategyActivationFlow(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)

	assets := NewAssetRepository(testDB)
	cash := NewCashRepository(testDB)
	strategies := NewStrategyRepository(testDB)

	seedAsset(t, ctx, assets, "world", "World Equity", 0)
	seedAsset(t, ctx, assets, "gold", "Physical Gold", 0)

	first := seedStrategy(t, ctx, strategies, "Starter", map[string]float64{
		"world": 80, "gold": 10, "cash": 10,
	})
	second := seedStrategy(t, ctx, strategies, "Defensive", map[string]float64{
		"world": 55, "gold": 25, "cash": 20,
	})

	_, err := strategies.Activate(ctx, first.ID, time.Now().UTC())
	require.NoError(t, err)

	activatedAt := time.Now().UTC()
	activated, err := strategies.Activate(ctx, second.ID, activatedAt)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	// Activating the second strategy must have deactivated the first
	var activeCount int
	require.NoError(t, testDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM strategies WHERE is_active`).Scan(&activeCount))
	assert.Equal(t, 1, activeCount)

	active, err := strategies.GetActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	// The activated map is copied onto the live positions in the same transaction
	world, err := assets.GetByID(ctx, "world")
	require.NoError(t, err)
	assert.True(t, world.TargetPct.Equal(decimal.NewFromInt(55)),
		"world target_pct = %s", world.TargetPct)

	gold, err := assets.GetByID(ctx, "gold")
	require.NoError(t, err)
	assert.True(t, gold.TargetPct.Equal(decimal.NewFromInt(25)))

	liquidity, err := cash.Get(ctx)
	require.NoError(t, err)
	assert.True(t, liquidity.TargetPct.Equal(decimal.NewFromInt(20)))

	// Both activations were logged, newest first
	history, err := strategies.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Defensive", history[0].StrategyName)
	assert.Equal(t, "Starter", history[1].StrategyName)
}

func TestAssetDeletePurgesStrategyTargets(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)

	assets := NewAssetRepository(testDB)
	strategies := NewStrategyRepository(testDB)

	seedAsset(t, ctx, assets, "world", "World Equity", 60)
	seedAsset(t, ctx, assets, "gold", "Physical Gold", 30)

	withWorld := seedStrategy(t, ctx, strategies, "Starter", map[string]float64{
		"world": 60, "gold": 30, "cash": 10,
	})
	withoutWorld := seedStrategy(t, ctx, strategies, "Metals", map[string]float64{
		"gold": 90, "cash": 10,
	})

	require.NoError(t, assets.Delete(ctx, "world"))

	_, err := assets.GetByID(ctx, "world")
	assert.True(t, domain.IsNotFound(err))

	// The key is dropped from every stored map, remaining entries untouched
	purged, err := strategies.GetByID(ctx, withWorld.ID)
	require.NoError(t, err)
	_, hasWorld := purged.Targets["world"]
	assert.False(t, hasWorld)
	assert.True(t, purged.Targets["gold"].Equal(decimal.NewFromInt(30)))
	assert.True(t, purged.Targets["cash"].Equal(decimal.NewFromInt(10)))

	untouched, err := strategies.GetByID(ctx, withoutWorld.ID)
	require.NoError(t, err)
	assert.True(t, untouched.Targets["gold"].Equal(decimal.NewFromInt(90)))

	err = assets.Delete(ctx, "world")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}
