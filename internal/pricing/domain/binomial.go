package domain

import (
	"fmt"
	"math"
)

// BinomialPricer Cox-Ross-Rubinstein 二叉树定价，可选提前行权
type BinomialPricer struct {
	steps    int
	american bool
}

// NewBinomialPricer 创建二叉树定价器
func NewBinomialPricer(steps int, american bool) (*BinomialPricer, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("%w: binomial steps must be positive, got %d", ErrInvalidConfig, steps)
	}
	return &BinomialPricer{steps: steps, american: american}, nil
}

// Bumps 价格步长为 spot 的 1%
func (p *BinomialPricer) Bumps(opt Option) Bumps {
	return standardBumps(spotBumpRatio * opt.Spot())
}

// Price 实现 Pricer
func (p *BinomialPricer) Price(opt Option) (float64, error) {
	s, r, sigma, t := opt.Spot(), opt.Rate(), opt.Volatility(), opt.Maturity()
	dt := t / float64(p.steps)
	u := math.Exp(sigma * math.Sqrt(dt))
	d := 1 / u
	growth := math.Exp(r * dt)
	q := (growth - d) / (u - d)
	if q <= 0 || q >= 1 {
		return 0, fmt.Errorf("%w: risk-neutral probability %g outside (0, 1)", ErrNumeric, q)
	}
	disc := 1 / growth

	values := make([]float64, p.steps+1)
	for i := 0; i <= p.steps; i++ {
		values[i] = opt.Payoff(s * math.Pow(u, float64(i)) * math.Pow(d, float64(p.steps-i)))
	}
	for j := p.steps - 1; j >= 0; j-- {
		for i := 0; i <= j; i++ {
			values[i] = disc * (q*values[i+1] + (1-q)*values[i])
			if p.american {
				values[i] = math.Max(values[i], opt.Payoff(s*math.Pow(u, float64(i))*math.Pow(d, float64(j-i))))
			}
		}
	}
	return values[0], nil
}
