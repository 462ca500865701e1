package application

import (
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PriceOptionCommand 期权定价命令
// TimeToMaturity 优先；为 0 时由 ExpiryDate（毫秒时间戳）推算剩余年限
type PriceOptionCommand struct {
	Symbol          string  `json:"symbol"`
	OptionType      string  `json:"option_type"`
	StrikePrice     float64 `json:"strike_price"`
	ExpiryDate      int64   `json:"expiry_date,omitempty"`
	TimeToMaturity  float64 `json:"time_to_maturity,omitempty"`
	UnderlyingPrice float64 `json:"underlying_price"`
	Volatility      float64 `json:"volatility"`
	RiskFreeRate    float64 `json:"risk_free_rate"`
	PricingModel    string  `json:"pricing_model,omitempty"`
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string               `json:"batch_id"`
	Contracts []PriceOptionCommand `json:"contracts"`
}

// BatchFailure 批量定价中的单笔失败
type BatchFailure struct {
	Symbol    string `json:"symbol"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string                  `json:"batch_id"`
	Results      []*domain.PricingResult `json:"results"`
	Failures     []BatchFailure          `json:"failures,omitempty"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	AverageTime  float64                 `json:"average_time"` // 秒
}

// GreeksResult 仅计算不落库的价格与希腊字母
type GreeksResult struct {
	Symbol       string        `json:"symbol"`
	PricingModel string        `json:"pricing_model"`
	Price        float64       `json:"price"`
	Greeks       domain.Greeks `json:"greeks"`
}

// SurfaceQuery 敏感度曲面查询，区间参数为 0 时使用默认值
type SurfaceQuery struct {
	PriceOptionCommand
	Intervals int     `json:"intervals,omitempty"`
	LowRatio  float64 `json:"low_ratio,omitempty"`
	HighRatio float64 `json:"high_ratio,omitempty"`
}

// Recorder 定价指标记录，由 pkg/metrics 实现
type Recorder interface {
	RecordPricing(model string, d time.Duration, err error)
	RecordGreeks(model string, d time.Duration)
	RecordCappedLayers(n int)
	RecordCacheLookup(hit bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordPricing(string, time.Duration, error) {}
func (noopRecorder) RecordGreeks(string, time.Duration)         {}
func (noopRecorder) RecordCappedLayers(int)                     {}
func (noopRecorder) RecordCacheLookup(bool)                     {}
