package domain

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// LSMPricer 基于 Longstaff-Schwartz 最小二乘蒙特卡洛的美式期权定价
// 回归基函数为 1, x, x²，x 为标的价格与行权价之比
type LSMPricer struct {
	paths int
	steps int
	seed  int64
}

// NewLSMPricer 创建 LSM 定价器
func NewLSMPricer(paths, steps int, seed int64) (*LSMPricer, error) {
	if paths <= 0 || steps <= 0 {
		return nil, fmt.Errorf("%w: paths and steps must be positive, got %d and %d", ErrInvalidConfig, paths, steps)
	}
	return &LSMPricer{paths: paths, steps: steps, seed: seed}, nil
}

// Bumps 价格步长为 spot 的 1%
func (p *LSMPricer) Bumps(opt Option) Bumps {
	return standardBumps(spotBumpRatio * opt.Spot())
}

// Price 实现 Pricer
func (p *LSMPricer) Price(opt Option) (float64, error) {
	s, k, r, sigma, t := opt.Spot(), opt.Strike(), opt.Rate(), opt.Volatility(), opt.Maturity()
	dt := t / float64(p.steps)
	drift := (r - 0.5*sigma*sigma) * dt
	vol := sigma * math.Sqrt(dt)
	disc := math.Exp(-r * dt)

	rng := rand.New(rand.NewSource(p.seed))
	paths := make([][]float64, p.paths)
	for i := range paths {
		path := make([]float64, p.steps+1)
		path[0] = s
		for j := 1; j <= p.steps; j++ {
			path[j] = path[j-1] * math.Exp(drift+vol*rng.NormFloat64())
		}
		paths[i] = path
	}

	cashflow := make([]float64, p.paths)
	exercise := make([]int, p.paths)
	for i, path := range paths {
		cashflow[i] = opt.Payoff(path[p.steps])
		exercise[i] = p.steps
	}

	itm := make([]int, 0, p.paths)
	for j := p.steps - 1; j >= 1; j-- {
		itm = itm[:0]
		for i, path := range paths {
			if opt.Payoff(path[j]) > 0 {
				itm = append(itm, i)
			}
		}
		if len(itm) < 3 {
			continue
		}

		x := mat.NewDense(len(itm), 3, nil)
		y := mat.NewVecDense(len(itm), nil)
		for row, i := range itm {
			m := paths[i][j] / k
			x.SetRow(row, []float64{1, m, m * m})
			y.SetVec(row, cashflow[i]*math.Pow(disc, float64(exercise[i]-j)))
		}
		var beta mat.VecDense
		if err := beta.SolveVec(x, y); err != nil {
			continue
		}

		for row, i := range itm {
			continuation := mat.Dot(x.RowView(row), &beta)
			if immediate := opt.Payoff(paths[i][j]); immediate > continuation {
				cashflow[i] = immediate
				exercise[i] = j
			}
		}
	}

	total := 0.0
	for i := range paths {
		total += cashflow[i] * math.Pow(disc, float64(exercise[i]))
	}
	return math.Max(total/float64(p.paths), opt.Payoff(s)), nil
}
