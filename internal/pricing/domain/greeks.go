package domain

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Greeks 价格对各参数的一阶/二阶敏感度
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// CalculateDelta 中心差分 (P(S+h) - P(S-h)) / 2h
func CalculateDelta(p Pricer, opt Option, h float64) (float64, error) {
	up, down, err := priceSpotPair(p, opt, h)
	if err != nil {
		return 0, err
	}
	return (up - down) / (2 * h), nil
}

// CalculateGamma 二阶中心差分 (P(S+h) - 2P(S) + P(S-h)) / h²
func CalculateGamma(p Pricer, opt Option, h float64) (float64, error) {
	up, down, err := priceSpotPair(p, opt, h)
	if err != nil {
		return 0, err
	}
	center, err := p.Price(opt)
	if err != nil {
		return 0, err
	}
	return (up - 2*center + down) / (h * h), nil
}

// CalculateVega 对波动率的中心差分
func CalculateVega(p Pricer, opt Option, h float64) (float64, error) {
	upOpt, err := opt.WithVolatility(opt.Volatility() + h)
	if err != nil {
		return 0, err
	}
	downOpt, err := opt.WithVolatility(opt.Volatility() - h)
	if err != nil {
		return 0, err
	}
	return centralDifference(p, upOpt, downOpt, h)
}

// CalculateRho 对无风险利率的中心差分
func CalculateRho(p Pricer, opt Option, h float64) (float64, error) {
	upOpt, err := opt.WithRate(opt.Rate() + h)
	if err != nil {
		return 0, err
	}
	downOpt, err := opt.WithRate(opt.Rate() - h)
	if err != nil {
		return 0, err
	}
	return centralDifference(p, upOpt, downOpt, h)
}

// CalculateTheta 前向差分 -(P(T-h) - P(T)) / h，剩余期限不超过 h 时为 0
func CalculateTheta(p Pricer, opt Option, h float64) (float64, error) {
	if opt.Maturity() <= h {
		return 0, nil
	}
	shorter, err := opt.WithMaturity(opt.Maturity() - h)
	if err != nil {
		return 0, err
	}
	before, err := p.Price(shorter)
	if err != nil {
		return 0, err
	}
	now, err := p.Price(opt)
	if err != nil {
		return 0, err
	}
	return -(before - now) / h, nil
}

// Delta 使用模型自带的价格步长
func Delta(m Model, opt Option) (float64, error) {
	return CalculateDelta(m, opt, m.Bumps(opt).Spot)
}

// Gamma 使用模型自带的价格步长
func Gamma(m Model, opt Option) (float64, error) {
	return CalculateGamma(m, opt, m.Bumps(opt).Spot)
}

// Vega 使用模型自带的波动率步长
func Vega(m Model, opt Option) (float64, error) {
	return CalculateVega(m, opt, m.Bumps(opt).Volatility)
}

// Theta 使用模型自带的时间步长
func Theta(m Model, opt Option) (float64, error) {
	return CalculateTheta(m, opt, m.Bumps(opt).Time)
}

// Rho 使用模型自带的利率步长
func Rho(m Model, opt Option) (float64, error) {
	return CalculateRho(m, opt, m.Bumps(opt).Rate)
}

// ComputeGreeks 并发计算五个希腊字母，任一失败即返回该错误
func ComputeGreeks(ctx context.Context, m Model, opt Option) (Greeks, error) {
	var g Greeks
	eg, ctx := errgroup.WithContext(ctx)
	run := func(dst *float64, fn func(Model, Option) (float64, error)) {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := fn(m, opt)
			if err != nil {
				return err
			}
			*dst = v
			return nil
		})
	}
	run(&g.Delta, Delta)
	run(&g.Gamma, Gamma)
	run(&g.Theta, Theta)
	run(&g.Vega, Vega)
	run(&g.Rho, Rho)
	if err := eg.Wait(); err != nil {
		return Greeks{}, err
	}
	return g, nil
}

func priceSpotPair(p Pricer, opt Option, h float64) (up, down float64, err error) {
	upOpt, err := opt.WithSpot(opt.Spot() + h)
	if err != nil {
		return 0, 0, err
	}
	downOpt, err := opt.WithSpot(opt.Spot() - h)
	if err != nil {
		return 0, 0, err
	}
	if up, err = p.Price(upOpt); err != nil {
		return 0, 0, err
	}
	if down, err = p.Price(downOpt); err != nil {
		return 0, 0, err
	}
	return up, down, nil
}

func centralDifference(p Pricer, upOpt, downOpt Option, h float64) (float64, error) {
	up, err := p.Price(upOpt)
	if err != nil {
		return 0, err
	}
	down, err := p.Price(downOpt)
	if err != nil {
		return 0, err
	}
	return (up - down) / (2 * h), nil
}
