package domain

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SurfaceSpec 敏感度曲面的标的价格区间，以行权价的倍数表示
type SurfaceSpec struct {
	Intervals int     // 区间等分数，共 Intervals+1 行
	LowRatio  float64 // 下限 = LowRatio·K
	HighRatio float64 // 上限 = HighRatio·K
	Workers   int     // 并发行数，<=0 时取 GOMAXPROCS
}

// DefaultSurfaceSpec 0.5K 到 1.5K，100 等分
func DefaultSurfaceSpec() SurfaceSpec {
	return SurfaceSpec{Intervals: 100, LowRatio: 0.5, HighRatio: 1.5}
}

// SurfacePoint 曲面上的一行
type SurfacePoint struct {
	Spot  float64 `json:"spot" yaml:"spot"`
	Price float64 `json:"price" yaml:"price"`
	Delta float64 `json:"delta" yaml:"delta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
	Theta float64 `json:"theta" yaml:"theta"`
	Rho   float64 `json:"rho" yaml:"rho"`
	Vega  float64 `json:"vega" yaml:"vega"`
}

// BuildSurface 在标的价格区间上逐点计算价格和希腊字母
func BuildSurface(ctx context.Context, m Model, base Option, spec SurfaceSpec) ([]SurfacePoint, error) {
	if spec.Intervals <= 0 || !(spec.LowRatio > 0) || spec.HighRatio <= spec.LowRatio {
		return nil, fmt.Errorf("%w: bad surface spec %+v", ErrInvalidConfig, spec)
	}
	workers := spec.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	k := base.Strike()
	low, high := spec.LowRatio*k, spec.HighRatio*k
	step := (high - low) / float64(spec.Intervals)

	points := make([]SurfacePoint, spec.Intervals+1)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range points {
		spot := low + float64(i)*step
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			opt, err := base.WithSpot(spot)
			if err != nil {
				return err
			}
			price, err := m.Price(opt)
			if err != nil {
				return fmt.Errorf("spot %g: %w", spot, err)
			}
			g, err := ComputeGreeks(ctx, m, opt)
			if err != nil {
				return fmt.Errorf("spot %g: %w", spot, err)
			}
			points[i] = SurfacePoint{
				Spot:  spot,
				Price: price,
				Delta: g.Delta,
				Gamma: g.Gamma,
				Theta: g.Theta,
				Rho:   g.Rho,
				Vega:  g.Vega,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}
