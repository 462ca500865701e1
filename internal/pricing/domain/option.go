// Package domain 期权定价服务的领域模型：期权参数、定价引擎、希腊字母与领域事件
package domain

import (
	"fmt"
	"strings"
)

// ExerciseKind 期权方向
type ExerciseKind string

const (
	Call ExerciseKind = "call" // 看涨期权
	Put  ExerciseKind = "put"  // 看跌期权
)

// ParseExerciseKind 解析期权方向，不区分大小写
func ParseExerciseKind(s string) (ExerciseKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Call):
		return Call, nil
	case string(Put):
		return Put, nil
	default:
		return "", fmt.Errorf("%w: unknown option type %q", ErrInvalidConfig, s)
	}
}

// Valid 是否为受支持的期权方向
func (k ExerciseKind) Valid() bool {
	return k == Call || k == Put
}

func (k ExerciseKind) String() string { return string(k) }

// Option 单一标的期权的定价参数，创建后不可变
type Option struct {
	spot       float64
	strike     float64
	rate       float64
	volatility float64
	maturity   float64
	kind       ExerciseKind
}

// NewOption 创建并校验期权参数
// spot、strike、volatility、maturity 必须为正，rate 允许任意值
func NewOption(spot, strike, rate, volatility, maturity float64, kind ExerciseKind) (Option, error) {
	switch {
	case !(spot > 0):
		return Option{}, fmt.Errorf("%w: spot must be positive, got %g", ErrInvalidConfig, spot)
	case !(strike > 0):
		return Option{}, fmt.Errorf("%w: strike must be positive, got %g", ErrInvalidConfig, strike)
	case !(volatility > 0):
		return Option{}, fmt.Errorf("%w: volatility must be positive, got %g", ErrInvalidConfig, volatility)
	case !(maturity > 0):
		return Option{}, fmt.Errorf("%w: maturity must be positive, got %g", ErrInvalidConfig, maturity)
	case !kind.Valid():
		return Option{}, fmt.Errorf("%w: unknown option type %q", ErrInvalidConfig, kind)
	}
	return Option{
		spot:       spot,
		strike:     strike,
		rate:       rate,
		volatility: volatility,
		maturity:   maturity,
		kind:       kind,
	}, nil
}

func (o Option) Spot() float64       { return o.spot }
func (o Option) Strike() float64     { return o.strike }
func (o Option) Rate() float64       { return o.rate }
func (o Option) Volatility() float64 { return o.volatility }
func (o Option) Maturity() float64   { return o.maturity }
func (o Option) Kind() ExerciseKind  { return o.kind }
func (o Option) IsCall() bool        { return o.kind == Call }

// Payoff 到期收益
func (o Option) Payoff(s float64) float64 {
	if o.kind == Call {
		return max(s-o.strike, 0)
	}
	return max(o.strike-s, 0)
}

// WithSpot 返回替换标的价格后的新期权
func (o Option) WithSpot(spot float64) (Option, error) {
	return NewOption(spot, o.strike, o.rate, o.volatility, o.maturity, o.kind)
}

// WithVolatility 返回替换波动率后的新期权
func (o Option) WithVolatility(volatility float64) (Option, error) {
	return NewOption(o.spot, o.strike, o.rate, volatility, o.maturity, o.kind)
}

// WithRate 返回替换无风险利率后的新期权
func (o Option) WithRate(rate float64) (Option, error) {
	return NewOption(o.spot, o.strike, rate, o.volatility, o.maturity, o.kind)
}

// WithMaturity 返回替换剩余期限后的新期权
func (o Option) WithMaturity(maturity float64) (Option, error) {
	return NewOption(o.spot, o.strike, o.rate, o.volatility, maturity, o.kind)
}

func (o Option) String() string {
	return fmt.Sprintf("%s(S=%g K=%g r=%g sigma=%g T=%g)", o.kind, o.spot, o.strike, o.rate, o.volatility, o.maturity)
}
