package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// PricingResultModel 定价结果数据库模型
type PricingResultModel struct {
	ID              uint            `gorm:"primaryKey;autoIncrement"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
	Symbol          string          `gorm:"column:symbol;type:varchar(32);not null;index:idx_symbol_calculated,priority:1"`
	OptionType      string          `gorm:"column:option_type;type:varchar(8);not null"`
	StrikePrice     decimal.Decimal `gorm:"column:strike_price;type:decimal(32,18);not null"`
	OptionPrice     decimal.Decimal `gorm:"column:option_price;type:decimal(32,18);not null"`
	UnderlyingPrice decimal.Decimal `gorm:"column:underlying_price;type:decimal(32,18);not null"`
	Volatility      float64         `gorm:"column:volatility"`
	RiskFreeRate    float64         `gorm:"column:risk_free_rate"`
	TimeToMaturity  float64         `gorm:"column:time_to_maturity"`
	Delta           decimal.Decimal `gorm:"column:delta;type:decimal(32,18)"`
	Gamma           decimal.Decimal `gorm:"column:gamma;type:decimal(32,18)"`
	Theta           decimal.Decimal `gorm:"column:theta;type:decimal(32,18)"`
	Vega            decimal.Decimal `gorm:"column:vega;type:decimal(32,18)"`
	Rho             decimal.Decimal `gorm:"column:rho;type:decimal(32,18)"`
	CalculatedAt    int64           `gorm:"column:calculated_at;type:bigint;not null;index:idx_symbol_calculated,priority:2"`
	PricingModel    string          `gorm:"column:pricing_model;type:varchar(32)"`
}

func (PricingResultModel) TableName() string { return "pricing_results" }

// mapping helpers

func toPricingResultModel(res *domain.PricingResult) *PricingResultModel {
	if res == nil {
		return nil
	}
	return &PricingResultModel{
		ID:              res.ID,
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
		Symbol:          res.Symbol,
		OptionType:      string(res.OptionType),
		StrikePrice:     res.StrikePrice,
		OptionPrice:     res.OptionPrice,
		UnderlyingPrice: res.UnderlyingPrice,
		Volatility:      res.Volatility,
		RiskFreeRate:    res.RiskFreeRate,
		TimeToMaturity:  res.TimeToMaturity,
		Delta:           res.Delta,
		Gamma:           res.Gamma,
		Theta:           res.Theta,
		Vega:            res.Vega,
		Rho:             res.Rho,
		CalculatedAt:    res.CalculatedAt,
		PricingModel:    res.PricingModel,
	}
}

func toPricingResult(m *PricingResultModel) *domain.PricingResult {
	if m == nil {
		return nil
	}
	return &domain.PricingResult{
		ID:              m.ID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Symbol:          m.Symbol,
		OptionType:      domain.ExerciseKind(m.OptionType),
		StrikePrice:     m.StrikePrice,
		OptionPrice:     m.OptionPrice,
		UnderlyingPrice: m.UnderlyingPrice,
		Volatility:      m.Volatility,
		RiskFreeRate:    m.RiskFreeRate,
		TimeToMaturity:  m.TimeToMaturity,
		Delta:           m.Delta,
		Gamma:           m.Gamma,
		Theta:           m.Theta,
		Vega:            m.Vega,
		Rho:             m.Rho,
		CalculatedAt:    m.CalculatedAt,
		PricingModel:    m.PricingModel,
	}
}
