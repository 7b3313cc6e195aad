package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lucarosati/folio-backend/internal/common"
	"github.com/lucarosati/folio-backend/internal/domain"
	"github.com/lucarosati/folio-backend/internal/usecase/portfolio"
	"github.com/lucarosati/folio-backend/internal/usecase/prices"
	"github.com/lucarosati/folio-backend/internal/usecase/strategy"
	"github.com/lucarosati/folio-backend/internal/usecase/targets"
)

type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockAssetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockAssetRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAssetRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCashRepository struct {
	mock.Mock
}

func (m *MockCashRepository) Get(ctx context.Context) (*domain.Cash, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cash), args.Error(1)
}

func (m *MockCashRepository) Update(ctx context.Context, cash *domain.Cash) error {
	args := m.Called(ctx, cash)
	return args.Error(0)
}

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) List(ctx context.Context) ([]*domain.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockRebalanceLogRepository struct {
	mock.Mock
}

func (m *MockRebalanceLogRepository) Append(ctx context.Context, log *domain.RebalanceLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockRebalanceLogRepository) List(ctx context.Context, limit int) ([]*domain.RebalanceLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RebalanceLog), args.Error(1)
}

type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) ApplyTargets(ctx context.Context, targets domain.TargetMap, syncActiveStrategy bool) error {
	args := m.Called(ctx, targets, syncActiveStrategy)
	return args.Error(0)
}

type MockStrategyRepository struct {
	mock.Mock
}

func (m *MockStrategyRepository) List(ctx context.Context) ([]*domain.Strategy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Strategy), args.Error(1)
}

func (m *MockStrategyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Strategy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Strategy), args.Error(1)
}

func (m *MockStrategyRepository) GetByName(ctx context.Context, name string) (*domain.Strategy, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Strategy), args.Error(1)
}

func (m *MockStrategyRepository) GetActive(ctx context.Context) (*domain.Strategy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Strategy), args.Error(1)
}

func (m *MockStrategyRepository) Create(ctx context.Context, strategy *domain.Strategy) error {
	args := m.Called(ctx, strategy)
	return args.Error(0)
}

func (m *MockStrategyRepository) Update(ctx context.Context, strategy *domain.Strategy, applyTargets bool) error {
	args := m.Called(ctx, strategy, applyTargets)
	return args.Error(0)
}

func (m *MockStrategyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStrategyRepository) Activate(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Strategy, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Strategy), args.Error(1)
}

func (m *MockStrategyRepository) History(ctx context.Context, limit int) ([]*domain.StrategyHistory, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StrategyHistory), args.Error(1)
}

type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) FetchQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func (m *MockPriceSource) Search(ctx context.Context, query string, limit int) ([]domain.TickerMatch, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TickerMatch), args.Error(1)
}

type testEnv struct {
	router        *gin.Engine
	assets        *MockAssetRepository
	cash          *MockCashRepository
	snapshots     *MockSnapshotRepository
	rebalanceLogs *MockRebalanceLogRepository
	portfolioRepo *MockPortfolioRepository
	strategies    *MockStrategyRepository
	source        *MockPriceSource
}

func newTestEnv() *testEnv {
	env := &testEnv{
		assets:        new(MockAssetRepository),
		cash:          new(MockCashRepository),
		snapshots:     new(MockSnapshotRepository),
		rebalanceLogs: new(MockRebalanceLogRepository),
		portfolioRepo: new(MockPortfolioRepository),
		strategies:    new(MockStrategyRepository),
		source:        new(MockPriceSource),
	}

	logger := common.NewSilentLogger()
	handler := NewHandler(
		portfolio.NewService(env.assets, env.cash, env.snapshots, env.rebalanceLogs),
		targets.NewService(env.portfolioRepo),
		strategy.NewService(env.strategies),
		prices.NewService(env.assets, env.source, logger),
		logger,
	)

	env.router = NewRouter(handler, logger, "")
	return env
}

func (env *testEnv) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testAssets() []*domain.Asset {
	return []*domain.Asset{
		{
			ID: "world", Name: "MSCI AC World", Type: domain.AssetTypeETF,
			Qty: dec("211"), PMC: dec("40.0320"), Price: dec("44.6650"), TargetPct: dec("70"),
		},
		{
			ID: "gold", Name: "Gold ETC", Type: domain.AssetTypeETC,
			Qty: dec("2"), PMC: dec("272.03"), Price: dec("409.09"), TargetPct: dec("10"),
		},
	}
}

func TestGetPortfolio(t *testing.T) {
	env := newTestEnv()
	env.assets.On("List", mock.Anything).Return(testAssets(), nil)
	env.cash.On("Get", mock.Anything).Return(&domain.Cash{Amount: dec("500"), TargetPct: dec("20")}, nil)

	w := env.request(t, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body PortfolioDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Len(t, body.Assets, 2)
	assert.Equal(t, "world", body.Assets[0].ID)
	assert.InDelta(t, 9424.32, body.Assets[0].Value, 0.001)
	assert.InDelta(t, 500, body.Liquidity.Amount, 0.001)
	assert.InDelta(t, 10742.50, body.TotalValue, 0.001)
}

func TestCreateAssetValidation(t *testing.T) {
	env := newTestEnv()

	// unknown type never reaches the repository
	w := env.request(t, http.MethodPost, "/api/assets",
		`{"id": "x", "name": "X", "type": "mystery", "qty": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid asset type")

	env.assets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateAssetMissingFields(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, http.MethodPost, "/api/assets", `{"name": "no id"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteLastAssetConflict(t *testing.T) {
	env := newTestEnv()
	env.assets.On("GetByID", mock.Anything, "world").Return(testAssets()[0], nil)
	env.assets.On("Count", mock.Anything).Return(1, nil)

	w := env.request(t, http.MethodDelete, "/api/assets/world", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "last remaining asset")
}

func TestDeleteAssetNotFound(t *testing.T) {
	env := newTestEnv()
	env.assets.On("GetByID", mock.Anything, "ghost").
		Return(nil, domain.NewNotFoundError("asset", "ghost"))

	w := env.request(t, http.MethodDelete, "/api/assets/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplyTargetsRejectsBadSum(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, http.MethodPut, "/api/targets", `{"targets": {"world": 80, "cash": 30}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sum to 100")

	env.portfolioRepo.AssertNotCalled(t, "ApplyTargets", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyTargets(t *testing.T) {
	env := newTestEnv()
	env.portfolioRepo.On("ApplyTargets", mock.Anything, mock.Anything, true).Return(nil)

	w := env.request(t, http.MethodPut, "/api/targets", `{"targets": {"world": 80, "cash": 20}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	env.portfolioRepo.AssertExpectations(t)
}

func TestApplyTargetsRequiresWrappedPayload(t *testing.T) {
	env := newTestEnv()

	// a bare map without the "targets" wrapper is not the wire contract
	w := env.request(t, http.MethodPut, "/api/targets", `{"world": 80, "cash": 20}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.portfolioRepo.AssertNotCalled(t, "ApplyTargets", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlanRebalance(t *testing.T) {
	env := newTestEnv()
	env.assets.On("List", mock.Anything).Return(testAssets(), nil)
	env.cash.On("Get", mock.Anything).Return(&domain.Cash{Amount: dec("500"), TargetPct: dec("20")}, nil)

	w := env.request(t, http.MethodGet, "/api/rebalance?amount=1000", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body PlanDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.InDelta(t, 1000, body.Amount, 0.001)
	assert.Len(t, body.Items, 2)
	// the unspent remainder always folds back into liquidity
	assert.InDelta(t, body.Amount, body.TotalSpent+body.Leftover, 0.001)
}

func TestPlanRebalanceRejectsBadAmount(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, http.MethodGet, "/api/rebalance?amount=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodGet, "/api/rebalance?amount=-50", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteRebalance(t *testing.T) {
	env := newTestEnv()
	env.rebalanceLogs.On("Append", mock.Anything, mock.AnythingOfType("*domain.RebalanceLog")).Return(nil)

	w := env.request(t, http.MethodPost, "/api/rebalance/execute", `{
		"amount": 1000,
		"total_spent": 836.36,
		"plan": [{"id": "gold", "name": "Gold ETC", "invest_eur": 900, "shares_to_buy": 2, "actual_spend": 818.18, "price_per_share": 409.09, "weight_after_pct": 20.1}]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body RebalanceLogDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.ID)
	assert.InDelta(t, 836.36, body.TotalSpent, 0.001)
	require.Len(t, body.Plan, 1)
	assert.Equal(t, int64(2), body.Plan[0].SharesToBuy)

	env.rebalanceLogs.AssertExpectations(t)
}

func TestCreateStrategyConflict(t *testing.T) {
	env := newTestEnv()
	env.strategies.On("GetByName", mock.Anything, "Default").
		Return(&domain.Strategy{Name: "Default"}, nil)

	w := env.request(t, http.MethodPost, "/api/strategies",
		`{"name": "Default", "targets": {"world": 80, "cash": 20}}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestActivateStrategyBadID(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, http.MethodPost, "/api/strategies/not-a-uuid/activate", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivateStrategy(t *testing.T) {
	env := newTestEnv()
	id := uuid.New()
	now := time.Now().UTC()
	env.strategies.On("Activate", mock.Anything, id, mock.AnythingOfType("time.Time")).
		Return(&domain.Strategy{
			ID: id, Name: "Moderate 10Y", IsActive: true, ActivatedAt: &now,
			Targets: domain.TargetMapFromFloats(map[string]float64{"world": 80, "cash": 20}),
		}, nil)

	w := env.request(t, http.MethodPost, "/api/strategies/"+id.String()+"/activate", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body StrategyDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.IsActive)
	assert.Equal(t, "Moderate 10Y", body.Name)
}

func TestActiveStrategy(t *testing.T) {
	env := newTestEnv()
	now := time.Now().UTC()
	env.strategies.On("GetActive", mock.Anything).
		Return(&domain.Strategy{
			ID: uuid.New(), Name: "Moderate 10Y", IsActive: true, ActivatedAt: &now,
			Targets: domain.TargetMapFromFloats(map[string]float64{"world": 80, "cash": 20}),
		}, nil)

	w := env.request(t, http.MethodGet, "/api/strategies/active", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body StrategyDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Moderate 10Y", body.Name)
	assert.True(t, body.IsActive)
}

func TestActiveStrategyNoneActive(t *testing.T) {
	env := newTestEnv()
	env.strategies.On("GetActive", mock.Anything).Return(nil, nil)

	w := env.request(t, http.MethodGet, "/api/strategies/active", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchTickerShortQuery(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, http.MethodGet, "/api/ticker/search?q=a", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchTicker(t *testing.T) {
	env := newTestEnv()
	env.source.On("Search", mock.Anything, "gold", 10).Return([]domain.TickerMatch{
		{Symbol: "SGLD.L", Name: "Invesco Physical Gold ETC", Exchange: "LSE", Type: "ETF", Currency: "USD"},
	}, nil)

	w := env.request(t, http.MethodGet, "/api/ticker/search?q=gold", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body []TickerMatchDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "SGLD.L", body[0].Symbol)
}

func TestRefreshPricesListFailure(t *testing.T) {
	env := newTestEnv()
	env.assets.On("List", mock.Anything).Return(nil, assert.AnError)

	w := env.request(t, http.MethodPost, "/api/prices/update", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCreateSnapshotRequiresDate(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, http.MethodPost, "/api/snapshots", `{"total_value": 100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownAPIRouteIs404(t *testing.T) {
	env := newTestEnv()

	w := env.request(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
