package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/export"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/response"
)

// PricingHandler HTTP 处理器
// 负责处理与定价相关的 HTTP 请求
type PricingHandler struct {
	app *application.PricingService
}

// NewPricingHandler 创建 HTTP 处理器实例
func NewPricingHandler(app *application.PricingService) *PricingHandler {
	return &PricingHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *PricingHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/pricing")
	{
		api.POST("/option/price", h.PriceOption)
		api.POST("/option/greeks", h.GetGreeks)
		api.POST("/option/surface", h.GetSurface)
		api.POST("/option/batch", h.BatchPriceOptions)
		api.GET("/result/:symbol", h.GetLatestResult)
		api.GET("/history/:symbol", h.GetHistory)
		api.GET("/models", h.ListModels)
	}
}

// PricingRequest 定价请求，expiry_date 与 time_to_maturity 二选一
type PricingRequest struct {
	Symbol          string     `json:"symbol" binding:"required"`
	OptionType      string     `json:"option_type" binding:"required"`
	StrikePrice     float64    `json:"strike_price" binding:"required"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	TimeToMaturity  float64    `json:"time_to_maturity"`
	UnderlyingPrice float64    `json:"underlying_price" binding:"required"`
	Volatility      float64    `json:"volatility" binding:"required"`
	RiskFreeRate    float64    `json:"risk_free_rate"`
	PricingModel    string     `json:"pricing_model"`
}

func (r PricingRequest) command() application.PriceOptionCommand {
	cmd := application.PriceOptionCommand{
		Symbol:          r.Symbol,
		OptionType:      r.OptionType,
		StrikePrice:     r.StrikePrice,
		TimeToMaturity:  r.TimeToMaturity,
		UnderlyingPrice: r.UnderlyingPrice,
		Volatility:      r.Volatility,
		RiskFreeRate:    r.RiskFreeRate,
		PricingModel:    r.PricingModel,
	}
	if r.ExpiryDate != nil {
		cmd.ExpiryDate = r.ExpiryDate.UnixMilli()
	}
	return cmd
}

// SurfaceRequest 曲面请求
type SurfaceRequest struct {
	PricingRequest
	Intervals int     `json:"intervals"`
	LowRatio  float64 `json:"low_ratio"`
	HighRatio float64 `json:"high_ratio"`
}

// BatchRequest 批量定价请求
type BatchRequest struct {
	BatchID   string           `json:"batch_id"`
	Contracts []PricingRequest `json:"contracts" binding:"required,min=1,dive"`
}

// PriceOption 定价并落库
func (h *PricingHandler) PriceOption(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		return
	}

	result, err := h.app.PriceOption(c.Request.Context(), req.command())
	if err != nil {
		h.fail(c, "Failed to calculate option price", err)
		return
	}
	response.Success(c, result)
}

// GetGreeks 计算价格与希腊字母
func (h *PricingHandler) GetGreeks(c *gin.Context) {
	var req PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		return
	}

	greeks, err := h.app.GetGreeks(c.Request.Context(), req.command())
	if err != nil {
		h.fail(c, "Failed to calculate Greeks", err)
		return
	}
	response.Success(c, greeks)
}

// GetSurface 导出敏感度曲面，?format=csv|json|yaml
func (h *PricingHandler) GetSurface(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.fail(c, "Unsupported surface format", err)
		return
	}
	var req SurfaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		return
	}

	points, err := h.app.GetSurface(c.Request.Context(), application.SurfaceQuery{
		PriceOptionCommand: req.command(),
		Intervals:          req.Intervals,
		LowRatio:           req.LowRatio,
		HighRatio:          req.HighRatio,
	})
	if err != nil {
		h.fail(c, "Failed to build surface", err)
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", format.ContentType())
	if err := export.Write(c.Writer, format, points); err != nil {
		logger.Error(c.Request.Context(), "Failed to write surface", "error", err)
	}
}

// BatchPriceOptions 批量定价
func (h *PricingHandler) BatchPriceOptions(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		return
	}
	cmd := application.BatchPriceOptionsCommand{
		BatchID:   req.BatchID,
		Contracts: make([]application.PriceOptionCommand, len(req.Contracts)),
	}
	for i, r := range req.Contracts {
		cmd.Contracts[i] = r.command()
	}

	res, err := h.app.BatchPriceOptions(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, "Batch pricing failed", err)
		return
	}
	response.Success(c, res)
}

// GetLatestResult 最新定价结果
func (h *PricingHandler) GetLatestResult(c *gin.Context) {
	res, err := h.app.GetLatestResult(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.fail(c, "Failed to load pricing result", err)
		return
	}
	response.Success(c, res)
}

// GetHistory 定价历史，?limit=N
func (h *PricingHandler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "limit must be an integer", "INVALID_REQUEST")
			return
		}
		limit = n
	}
	res, err := h.app.GetHistory(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		h.fail(c, "Failed to load pricing history", err)
		return
	}
	response.Success(c, res)
}

// ListModels 可用的定价模型
func (h *PricingHandler) ListModels(c *gin.Context) {
	response.Success(c, domain.ModelNames())
}

func (h *PricingHandler) fail(c *gin.Context, msg string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), msg, "error", err)
	} else {
		logger.Warn(c.Request.Context(), msg, "error", err)
	}
	response.ErrorWithStatus(c, status, err.Error(), domain.ErrorCode(err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
