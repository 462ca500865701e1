package domain

import (
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// MonteCarloPricer 欧式期权蒙特卡洛定价
// 路径按 worker 均分，每个 worker 使用独立的随机源 seed+workerIndex，结果可复现
type MonteCarloPricer struct {
	simulations int
	workers     int
	seed        int64
}

// NewMonteCarloPricer 创建蒙特卡洛定价器
func NewMonteCarloPricer(simulations, workers int, seed int64) (*MonteCarloPricer, error) {
	if simulations <= 0 {
		return nil, fmt.Errorf("%w: simulations must be positive, got %d", ErrInvalidConfig, simulations)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, workers)
	}
	return &MonteCarloPricer{simulations: simulations, workers: min(workers, simulations), seed: seed}, nil
}

func (p *MonteCarloPricer) Simulations() int { return p.simulations }

// Bumps 固定种子下各次重定价共享随机数，价格步长为 spot 的 1%
func (p *MonteCarloPricer) Bumps(opt Option) Bumps {
	return standardBumps(spotBumpRatio * opt.Spot())
}

// Price 实现 Pricer
func (p *MonteCarloPricer) Price(opt Option) (float64, error) {
	s, r, sigma, t := opt.Spot(), opt.Rate(), opt.Volatility(), opt.Maturity()
	drift := math.Exp((r - 0.5*sigma*sigma) * t)
	vol := sigma * math.Sqrt(t)

	partial := make([]float64, p.workers)
	chunk := p.simulations / p.workers
	var g errgroup.Group
	for w := 0; w < p.workers; w++ {
		paths := chunk
		if w == p.workers-1 {
			paths = p.simulations - chunk*(p.workers-1)
		}
		g.Go(func() error {
			rng := rand.New(rand.NewSource(p.seed + int64(w)))
			sum := 0.0
			for i := 0; i < paths; i++ {
				st := s * drift * math.Exp(vol*rng.NormFloat64())
				sum += opt.Payoff(st)
			}
			partial[w] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0.0
	for _, v := range partial {
		total += v
	}
	return math.Exp(-r*t) * total / float64(p.simulations), nil
}
