package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingResult 定价结果实体
type PricingResult struct {
	ID              uint            `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Symbol          string          `json:"symbol"`
	OptionType      ExerciseKind    `json:"option_type"`
	StrikePrice     decimal.Decimal `json:"strike_price"`
	OptionPrice     decimal.Decimal `json:"option_price"`
	UnderlyingPrice decimal.Decimal `json:"underlying_price"`
	Volatility      float64         `json:"volatility"`
	RiskFreeRate    float64         `json:"risk_free_rate"`
	TimeToMaturity  float64         `json:"time_to_maturity"`
	Delta           decimal.Decimal `json:"delta"`
	Gamma           decimal.Decimal `json:"gamma"`
	Theta           decimal.Decimal `json:"theta"`
	Vega            decimal.Decimal `json:"vega"`
	Rho             decimal.Decimal `json:"rho"`
	CalculatedAt    int64           `json:"calculated_at"`
	PricingModel    string          `json:"pricing_model"`
}

// NewPricingResult 由期权、价格与希腊字母组装定价结果
func NewPricingResult(symbol, model string, opt Option, price float64, g Greeks, at time.Time) *PricingResult {
	return &PricingResult{
		Symbol:          symbol,
		OptionType:      opt.Kind(),
		StrikePrice:     decimal.NewFromFloat(opt.Strike()),
		OptionPrice:     decimal.NewFromFloat(price),
		UnderlyingPrice: decimal.NewFromFloat(opt.Spot()),
		Volatility:      opt.Volatility(),
		RiskFreeRate:    opt.Rate(),
		TimeToMaturity:  opt.Maturity(),
		Delta:           decimal.NewFromFloat(g.Delta),
		Gamma:           decimal.NewFromFloat(g.Gamma),
		Theta:           decimal.NewFromFloat(g.Theta),
		Vega:            decimal.NewFromFloat(g.Vega),
		Rho:             decimal.NewFromFloat(g.Rho),
		CalculatedAt:    at.Unix(),
		PricingModel:    model,
	}
}

// Greeks 以浮点形式返回希腊字母
func (r *PricingResult) Greeks() Greeks {
	return Greeks{
		Delta: r.Delta.InexactFloat64(),
		Gamma: r.Gamma.InexactFloat64(),
		Theta: r.Theta.InexactFloat64(),
		Vega:  r.Vega.InexactFloat64(),
		Rho:   r.Rho.InexactFloat64(),
	}
}
