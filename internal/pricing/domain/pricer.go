package domain

// Pricer 定价契约：给定期权返回理论价格
type Pricer interface {
	Price(opt Option) (float64, error)
}

// PricerFunc 允许普通函数作为 Pricer 使用
type PricerFunc func(opt Option) (float64, error)

// Price 实现 Pricer
func (f PricerFunc) Price(opt Option) (float64, error) { return f(opt) }

// Bumps 有限差分希腊字母使用的扰动步长
type Bumps struct {
	Spot       float64 // Delta/Gamma
	Volatility float64 // Vega
	Rate       float64 // Rho
	Time       float64 // Theta
}

const (
	volatilityBump = 1e-4
	rateBump       = 1e-4
	timeBump       = 1.0 / 365.0
	spotBumpRatio  = 0.01
)

// standardBumps 除标的价格外各模型共用的步长
func standardBumps(spot float64) Bumps {
	return Bumps{
		Spot:       spot,
		Volatility: volatilityBump,
		Rate:       rateBump,
		Time:       timeBump,
	}
}

// Model 带有模型专属扰动步长的定价引擎
type Model interface {
	Pricer
	Bumps(opt Option) Bumps
}
