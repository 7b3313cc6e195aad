package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lucarosati/folio-backend/internal/domain"
	"github.com/lucarosati/folio-backend/internal/usecase/portfolio"
	"github.com/lucarosati/folio-backend/internal/usecase/prices"
	"github.com/lucarosati/folio-backend/internal/usecase/strategy"
	"github.com/lucarosati/folio-backend/internal/usecase/targets"
)

// Handler wires the REST surface onto the usecase services
type Handler struct {
	Portfolio  *portfolio.Service
	Targets    *targets.Service
	Strategies *strategy.Service
	Prices     *prices.Service
	Logger     zerolog.Logger
}

// NewHandler creates a new REST handler
func NewHandler(
	portfolioSvc *portfolio.Service,
	targetsSvc *targets.Service,
	strategiesSvc *strategy.Service,
	pricesSvc *prices.Service,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		Portfolio:  portfolioSvc,
		Targets:    targetsSvc,
		Strategies: strategiesSvc,
		Prices:     pricesSvc,
		Logger:     logger.With().Str("component", "rest").Logger(),
	}
}

// RegisterRoutes mounts every API route on the router
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/portfolio", h.GetPortfolio)
		api.GET("/summary", h.GetSummary)

		api.POST("/assets", h.CreateAsset)
		api.PUT("/assets/:id", h.UpdateAsset)
		api.DELETE("/assets/:id", h.DeleteAsset)

		api.PUT("/cash", h.UpdateCash)
		api.PUT("/targets", h.ApplyTargets)

		api.GET("/rebalance", h.PlanRebalance)
		api.POST("/rebalance/execute", h.ExecuteRebalance)
		api.GET("/rebalance/history", h.RebalanceHistory)

		api.GET("/strategies", h.ListStrategies)
		api.GET("/strategies/active", h.ActiveStrategy)
		api.POST("/strategies", h.CreateStrategy)
		api.PUT("/strategies/:id", h.UpdateStrategy)
		api.DELETE("/strategies/:id", h.DeleteStrategy)
		api.POST("/strategies/:id/activate", h.ActivateStrategy)
		api.GET("/strategies/history", h.StrategyHistory)

		api.GET("/snapshots", h.ListSnapshots)
		api.POST("/snapshots", h.CreateSnapshot)
		api.DELETE("/snapshots/:id", h.DeleteSnapshot)

		api.POST("/prices/update", h.RefreshPrices)
		api.GET("/ticker/search", h.SearchTicker)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	if !domain.IsValidation(err) && !domain.IsNotFound(err) && !domain.IsConflict(err) && !domain.IsExternalSource(err) {
		h.Logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	writeError(c, err)
}

// GetPortfolio returns the full valued portfolio
func (h *Handler) GetPortfolio(c *gin.Context) {
	view, err := h.Portfolio.GetPortfolio(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPortfolioDTO(view))
}

// GetSummary returns portfolio totals plus weight and target maps
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.Portfolio.GetSummary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toSummaryDTO(summary))
}

// CreateAssetRequest is the payload for adding a position
type CreateAssetRequest struct {
	ID        string  `json:"id" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Ticker    string  `json:"ticker"`
	Symbol    string  `json:"symbol"`
	ISIN      string  `json:"isin"`
	Type      string  `json:"type" binding:"required"`
	Qty       float64 `json:"qty"`
	PMC       float64 `json:"pmc"`
	Price     float64 `json:"price"`
	TargetPct float64 `json:"target_pct"`
}

// CreateAsset adds a new position to the portfolio
func (h *Handler) CreateAsset(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	asset := &domain.Asset{
		ID:        req.ID,
		Name:      req.Name,
		Ticker:    req.Ticker,
		Symbol:    req.Symbol,
		ISIN:      req.ISIN,
		Type:      domain.AssetType(req.Type),
		Qty:       decimal.NewFromFloat(req.Qty),
		PMC:       decimal.NewFromFloat(req.PMC),
		Price:     decimal.NewFromFloat(req.Price),
		TargetPct: decimal.NewFromFloat(req.TargetPct),
	}

	view, err := h.Portfolio.CreateAsset(c.Request.Context(), asset)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAssetDTO(view))
}

// UpdateAssetRequest carries optional position fields; absent fields are left
// untouched
type UpdateAssetRequest struct {
	Price  *float64 `json:"price"`
	PMC    *float64 `json:"pmc"`
	Qty    *float64 `json:"qty"`
	Symbol *string  `json:"symbol"`
	ISIN   *string  `json:"isin"`
	Type   *string  `json:"type"`
}

// UpdateAsset updates a position's mutable fields
func (h *Handler) UpdateAsset(c *gin.Context) {
	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	input := portfolio.UpdateAssetInput{
		Symbol: req.Symbol,
		ISIN:   req.ISIN,
	}
	if req.Price != nil {
		price := decimal.NewFromFloat(*req.Price)
		input.Price = &price
	}
	if req.PMC != nil {
		pmc := decimal.NewFromFloat(*req.PMC)
		input.PMC = &pmc
	}
	if req.Qty != nil {
		qty := decimal.NewFromFloat(*req.Qty)
		input.Qty = &qty
	}
	if req.Type != nil {
		assetType := domain.AssetType(*req.Type)
		input.Type = &assetType
	}

	view, err := h.Portfolio.UpdateAsset(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAssetDTO(view))
}

// DeleteAsset removes a position and purges it from stored strategies
func (h *Handler) DeleteAsset(c *gin.Context) {
	if err := h.Portfolio.DeleteAsset(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// UpdateCashRequest carries optional liquidity fields
type UpdateCashRequest struct {
	Amount    *float64 `json:"amount"`
	TargetPct *float64 `json:"target_pct"`
}

// UpdateCash updates the liquidity record
func (h *Handler) UpdateCash(c *gin.Context) {
	var req UpdateCashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	input := portfolio.UpdateCashInput{}
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		input.Amount = &amount
	}
	if req.TargetPct != nil {
		target := decimal.NewFromFloat(*req.TargetPct)
		input.TargetPct = &target
	}

	view, err := h.Portfolio.UpdateCash(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CashDTO{
		Amount:    view.Amount.InexactFloat64(),
		TargetPct: view.TargetPct.InexactFloat64(),
		WeightPct: view.WeightPct.InexactFloat64(),
	})
}

// ApplyTargetsRequest wraps the id -> percent map
type ApplyTargetsRequest struct {
	Targets map[string]float64 `json:"targets" binding:"required"`
}

// ApplyTargets sets target percentages in one shot
func (h *Handler) ApplyTargets(c *gin.Context) {
	var req ApplyTargetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	if err := h.Targets.Apply(c.Request.Context(), domain.TargetMapFromFloats(req.Targets)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": len(req.Targets)})
}

// PlanRebalance computes the buy plan for the amount query parameter
func (h *Handler) PlanRebalance(c *gin.Context) {
	raw := c.Query("amount")
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(c, domain.NewValidationError("invalid amount %q", raw))
		return
	}

	plan, err := h.Portfolio.PlanRebalance(c.Request.Context(), decimal.NewFromFloat(amount))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlanDTO(plan))
}

// ExecuteRebalanceRequest is the payload confirming a computed plan
type ExecuteRebalanceRequest struct {
	Amount     float64       `json:"amount" binding:"required"`
	TotalSpent float64       `json:"total_spent"`
	Plan       []PlanItemDTO `json:"plan"`
}

// ExecuteRebalance records a confirmed plan in the append-only log
func (h *Handler) ExecuteRebalance(c *gin.Context) {
	var req ExecuteRebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	log, err := h.Portfolio.ExecuteRebalance(
		c.Request.Context(),
		decimal.NewFromFloat(req.Amount),
		decimal.NewFromFloat(req.TotalSpent),
		fromPlanItemDTOs(req.Plan),
	)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRebalanceLogDTO(log))
}

// RebalanceHistory returns executed rebalances, newest first
func (h *Handler) RebalanceHistory(c *gin.Context) {
	logs, err := h.Portfolio.RebalanceHistory(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]RebalanceLogDTO, len(logs))
	for i, log := range logs {
		out[i] = toRebalanceLogDTO(log)
	}
	c.JSON(http.StatusOK, out)
}

// ListStrategies returns all saved strategies
func (h *Handler) ListStrategies(c *gin.Context) {
	strategies, err := h.Strategies.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]StrategyDTO, len(strategies))
	for i, s := range strategies {
		out[i] = toStrategyDTO(s)
	}
	c.JSON(http.StatusOK, out)
}

// ActiveStrategy returns the strategy currently applied to the portfolio
func (h *Handler) ActiveStrategy(c *gin.Context) {
	strat, err := h.Strategies.Active(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStrategyDTO(strat))
}

// CreateStrategyRequest is the payload for saving a new strategy
type CreateStrategyRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Targets     map[string]float64 `json:"targets" binding:"required"`
}

// CreateStrategy saves a new named allocation strategy
func (h *Handler) CreateStrategy(c *gin.Context) {
	var req CreateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	created, err := h.Strategies.Create(c.Request.Context(), req.Name, req.Description, domain.TargetMapFromFloats(req.Targets))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStrategyDTO(created))
}

// UpdateStrategyRequest carries optional strategy fields
type UpdateStrategyRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Targets     map[string]float64 `json:"targets"`
}

// UpdateStrategy edits a saved strategy; editing the active one re-applies
// its targets to the live portfolio
func (h *Handler) UpdateStrategy(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req UpdateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	input := strategy.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Targets != nil {
		input.Targets = domain.TargetMapFromFloats(req.Targets)
	}

	updated, err := h.Strategies.Update(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStrategyDTO(updated))
}

// DeleteStrategy removes a non-active strategy
func (h *Handler) DeleteStrategy(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.Strategies.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id.String()})
}

// ActivateStrategy makes the strategy current and applies its targets
func (h *Handler) ActivateStrategy(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	activated, err := h.Strategies.Activate(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStrategyDTO(activated))
}

// StrategyHistory returns activation log entries, newest first
func (h *Handler) StrategyHistory(c *gin.Context) {
	entries, err := h.Strategies.History(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]StrategyHistoryDTO, len(entries))
	for i, entry := range entries {
		out[i] = StrategyHistoryDTO{
			ID:           entry.ID.String(),
			StrategyName: entry.StrategyName,
			ActivatedAt:  entry.ActivatedAt,
		}
	}
	c.JSON(http.StatusOK, out)
}

// ListSnapshots returns all snapshots ordered by date
func (h *Handler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.Portfolio.ListSnapshots(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]SnapshotDTO, len(snapshots))
	for i, s := range snapshots {
		out[i] = toSnapshotDTO(s)
	}
	c.JSON(http.StatusOK, out)
}

// CreateSnapshotRequest is the payload for recording a snapshot
type CreateSnapshotRequest struct {
	Date          string  `json:"date" binding:"required"`
	TotalValue    float64 `json:"total_value"`
	TotalInvested float64 `json:"total_invested"`
}

// CreateSnapshot records a point-in-time portfolio total
func (h *Handler) CreateSnapshot(c *gin.Context) {
	var req CreateSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("invalid request body: %v", err))
		return
	}

	snapshot, err := h.Portfolio.CreateSnapshot(
		c.Request.Context(),
		req.Date,
		decimal.NewFromFloat(req.TotalValue),
		decimal.NewFromFloat(req.TotalInvested),
	)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSnapshotDTO(snapshot))
}

// DeleteSnapshot removes a snapshot
func (h *Handler) DeleteSnapshot(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.Portfolio.DeleteSnapshot(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id.String()})
}

// RefreshPrices runs a full price refresh pass against the external source
func (h *Handler) RefreshPrices(c *gin.Context) {
	result, err := h.Prices.RefreshAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toRefreshResultDTO(result))
}

// SearchTicker looks up instruments by name or ticker via the q parameter
func (h *Handler) SearchTicker(c *gin.Context) {
	matches, err := h.Prices.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTickerMatchDTOs(matches))
}

func parseID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("invalid id %q", c.Param("id"))
	}
	return id, nil
}
