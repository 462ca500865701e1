package application

import (
	"fmt"
	"time"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

const yearDuration = 365 * 24 * time.Hour

// Engines 按名称解析定价模型，未指定时使用默认模型
type Engines struct {
	defaultModel string
	settings     domain.EngineSettings
}

// NewEngines 校验默认模型可用
func NewEngines(defaultModel string, settings domain.EngineSettings) (*Engines, error) {
	if defaultModel == "" {
		defaultModel = domain.ModelBlackScholes
	}
	if _, err := domain.NewModel(defaultModel, settings); err != nil {
		return nil, err
	}
	return &Engines{defaultModel: defaultModel, settings: settings}, nil
}

// Settings 引擎参数
func (e *Engines) Settings() domain.EngineSettings { return e.settings }

// Resolve 返回实际使用的模型名与模型实例
func (e *Engines) Resolve(name string) (string, domain.Model, error) {
	if name == "" {
		name = e.defaultModel
	}
	m, err := domain.NewModel(name, e.settings)
	if err != nil {
		return name, nil, err
	}
	return name, m, nil
}

// buildOption 由命令构造期权，now 用于换算到期日
func buildOption(cmd PriceOptionCommand, now time.Time) (domain.Option, error) {
	if cmd.Symbol == "" {
		return domain.Option{}, fmt.Errorf("%w: symbol is required", domain.ErrInvalidConfig)
	}
	kind, err := domain.ParseExerciseKind(cmd.OptionType)
	if err != nil {
		return domain.Option{}, err
	}
	maturity := cmd.TimeToMaturity
	if maturity == 0 && cmd.ExpiryDate > 0 {
		maturity = float64(time.UnixMilli(cmd.ExpiryDate).Sub(now)) / float64(yearDuration)
	}
	return domain.NewOption(cmd.UnderlyingPrice, cmd.StrikePrice, cmd.RiskFreeRate, cmd.Volatility, maturity, kind)
}
