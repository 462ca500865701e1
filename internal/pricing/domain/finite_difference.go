package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// FiniteDifferencePricer 欧式期权 Crank-Nicolson 有限差分定价
// 时间步数由稳定性条件 (σ·S_max/ds)²·T 推导，timeSteps 仅作为配置记录
type FiniteDifferencePricer struct {
	timeSteps  int
	assetSteps int
}

// NewFiniteDifferencePricer 创建有限差分定价器
func NewFiniteDifferencePricer(timeSteps, assetSteps int) (*FiniteDifferencePricer, error) {
	if timeSteps <= 0 || assetSteps <= 0 {
		return nil, fmt.Errorf("%w: time steps and asset steps must be positive, got %d and %d", ErrInvalidConfig, timeSteps, assetSteps)
	}
	return &FiniteDifferencePricer{timeSteps: timeSteps, assetSteps: assetSteps}, nil
}

func (p *FiniteDifferencePricer) TimeSteps() int  { return p.timeSteps }
func (p *FiniteDifferencePricer) AssetSteps() int { return p.assetSteps }

// Bumps 价格步长取 S_max=2K 时的网格间距
func (p *FiniteDifferencePricer) Bumps(opt Option) Bumps {
	return standardBumps(2 * opt.Strike() / float64(p.assetSteps))
}

// Price 在价格网格上倒推求解 Black-Scholes PDE，并在 spot 处线性插值
func (p *FiniteDifferencePricer) Price(opt Option) (float64, error) {
	s, k, r, sigma, t := opt.Spot(), opt.Strike(), opt.Rate(), opt.Volatility(), opt.Maturity()
	m := p.assetSteps

	sMax := math.Max(1.5*s, 2*k)
	ds := sMax / float64(m)
	n := int(math.Pow(sigma*sMax/ds, 2)*t) + 1
	dt := t / float64(n)

	implicit, explicit := crankNicolsonOperators(m, sigma, r, dt)

	grid := mat.NewVecDense(m+1, nil)
	for i := 0; i <= m; i++ {
		grid.SetVec(i, opt.Payoff(float64(i)*ds))
	}

	solver, err := factorTridiagonal(implicit)
	if err != nil {
		return 0, err
	}

	rhs := mat.NewVecDense(m+1, nil)
	for step := n - 1; step >= 0; step-- {
		tau := float64(n-step) * dt
		discounted := k * math.Exp(-r*tau)
		if opt.IsCall() {
			grid.SetVec(0, 0)
			grid.SetVec(m, sMax-discounted)
		} else {
			grid.SetVec(0, discounted)
			grid.SetVec(m, 0)
		}

		rhs.MulVec(explicit, grid)
		solver.solveTo(grid, rhs)
	}

	idx := int(s / ds)
	if idx < 0 || idx >= m {
		return 0, fmt.Errorf("%w: index %d not in [0, %d)", ErrOutOfRange, idx, m)
	}
	theta := (s - float64(idx)*ds) / ds
	price := (1-theta)*grid.AtVec(idx) + theta*grid.AtVec(idx+1)
	return math.Max(price, 0), nil
}

// crankNicolsonOperators 构造三对角的隐式算子 C 与显式算子 D，首末行为单位行
func crankNicolsonOperators(m int, sigma, r, dt float64) (implicit, explicit *mat.BandDense) {
	implicit = mat.NewBandDense(m+1, m+1, 1, 1, nil)
	explicit = mat.NewBandDense(m+1, m+1, 1, 1, nil)

	implicit.SetBand(0, 0, 1)
	explicit.SetBand(0, 0, 1)
	implicit.SetBand(m, m, 1)
	explicit.SetBand(m, m, 1)

	for i := 1; i < m; i++ {
		fi := float64(i)
		sigma2 := sigma * sigma * fi * fi
		mu := r * fi

		alpha := dt / 4 * (sigma2 - mu)
		beta := -dt / 2 * (sigma2 + r)
		gamma := dt / 4 * (sigma2 + mu)

		implicit.SetBand(i, i-1, -alpha)
		implicit.SetBand(i, i, 1-beta)
		implicit.SetBand(i, i+1, -gamma)

		explicit.SetBand(i, i-1, alpha)
		explicit.SetBand(i, i, 1+beta)
		explicit.SetBand(i, i+1, gamma)
	}
	return implicit, explicit
}

// tridiagonal 三对角矩阵的 Thomas 分解，分解一次后每个时间步 O(M) 回代
type tridiagonal struct {
	sub   []float64 // 下对角 a_i
	upper []float64 // 消元后的上对角 c_i / p_i
	inv   []float64 // 主元倒数 1 / p_i
}

// factorTridiagonal 对带宽为 1 的方阵做无选主元 LU 分解，主元为 0 时返回 ErrNumeric
func factorTridiagonal(a *mat.BandDense) (*tridiagonal, error) {
	n, _ := a.Dims()
	f := &tridiagonal{
		sub:   make([]float64, n),
		upper: make([]float64, n),
		inv:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		pivot := a.At(i, i)
		if i > 0 {
			f.sub[i] = a.At(i, i-1)
			pivot -= f.sub[i] * f.upper[i-1]
		}
		if pivot == 0 || math.IsNaN(pivot) || math.IsInf(pivot, 0) {
			return nil, fmt.Errorf("%w: implicit operator is singular at row %d", ErrNumeric, i)
		}
		f.inv[i] = 1 / pivot
		if i < n-1 {
			f.upper[i] = a.At(i, i+1) * f.inv[i]
		}
	}
	return f, nil
}

// solveTo 求解 A·x = rhs 并写入 dst，dst 可与 rhs 为同一向量
func (f *tridiagonal) solveTo(dst, rhs *mat.VecDense) {
	n := len(f.inv)
	prev := 0.0
	for i := 0; i < n; i++ {
		prev = (rhs.AtVec(i) - f.sub[i]*prev) * f.inv[i]
		dst.SetVec(i, prev)
	}
	for i := n - 2; i >= 0; i-- {
		dst.SetVec(i, dst.AtVec(i)-f.upper[i]*dst.AtVec(i+1))
	}
}
