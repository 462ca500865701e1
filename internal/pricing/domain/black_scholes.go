package domain

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesPricer 欧式期权闭式解
type BlackScholesPricer struct{}

// NewBlackScholesPricer 创建闭式解定价器
func NewBlackScholesPricer() *BlackScholesPricer { return &BlackScholesPricer{} }

// Bumps 价格步长为 spot 的 1%
func (BlackScholesPricer) Bumps(opt Option) Bumps {
	return standardBumps(spotBumpRatio * opt.Spot())
}

// Price 实现 Pricer
func (BlackScholesPricer) Price(opt Option) (float64, error) {
	d1, d2 := blackScholesD(opt)
	s, k, r, t := opt.Spot(), opt.Strike(), opt.Rate(), opt.Maturity()
	df := math.Exp(-r * t)
	if opt.IsCall() {
		return s*distuv.UnitNormal.CDF(d1) - k*df*distuv.UnitNormal.CDF(d2), nil
	}
	return k*df*distuv.UnitNormal.CDF(-d2) - s*distuv.UnitNormal.CDF(-d1), nil
}

// AnalyticGreeks Black-Scholes 解析希腊字母
// Theta 采用与差分引擎一致的符号约定：对剩余期限 T 的导数
func AnalyticGreeks(opt Option) Greeks {
	d1, d2 := blackScholesD(opt)
	s, k, r, sigma, t := opt.Spot(), opt.Strike(), opt.Rate(), opt.Volatility(), opt.Maturity()
	sqrtT := math.Sqrt(t)
	df := math.Exp(-r * t)
	pdf := distuv.UnitNormal.Prob(d1)

	g := Greeks{
		Gamma: pdf / (s * sigma * sqrtT),
		Vega:  s * pdf * sqrtT,
	}
	decay := s * pdf * sigma / (2 * sqrtT)
	if opt.IsCall() {
		g.Delta = distuv.UnitNormal.CDF(d1)
		g.Theta = decay + r*k*df*distuv.UnitNormal.CDF(d2)
		g.Rho = k * t * df * distuv.UnitNormal.CDF(d2)
	} else {
		g.Delta = distuv.UnitNormal.CDF(d1) - 1
		g.Theta = decay - r*k*df*distuv.UnitNormal.CDF(-d2)
		g.Rho = -k * t * df * distuv.UnitNormal.CDF(-d2)
	}
	return g
}

func blackScholesD(opt Option) (d1, d2 float64) {
	s, k, r, sigma, t := opt.Spot(), opt.Strike(), opt.Rate(), opt.Volatility(), opt.Maturity()
	vt := sigma * math.Sqrt(t)
	d1 = (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / vt
	return d1, d1 - vt
}
