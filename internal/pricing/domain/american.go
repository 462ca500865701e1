package domain

import (
	"fmt"
	"math"
)

const (
	sorRelaxation = 1.5  // 超松弛因子 ω
	sorTolerance  = 1e-8 // 单层迭代的平方变化量阈值
	sorMaxSweeps  = 100  // 单层最大迭代次数，超过即接受当前结果
)

// AmericanEngine 美式期权 Crank-Nicolson + PSOR 定价引擎的网格配置
type AmericanEngine struct {
	gridPoints    int
	timeIncrement float64
}

// NewAmericanEngine 创建美式期权引擎
func NewAmericanEngine(gridPoints int, timeIncrement float64) (*AmericanEngine, error) {
	if gridPoints < 2 {
		return nil, fmt.Errorf("%w: grid points must be at least 2, got %d", ErrInvalidConfig, gridPoints)
	}
	if !(timeIncrement > 0) {
		return nil, fmt.Errorf("%w: time increment must be positive, got %g", ErrInvalidConfig, timeIncrement)
	}
	return &AmericanEngine{gridPoints: gridPoints, timeIncrement: timeIncrement}, nil
}

func (e *AmericanEngine) GridPoints() int        { return e.gridPoints }
func (e *AmericanEngine) TimeIncrement() float64 { return e.timeIncrement }

// Bumps 价格步长为 2K/I，默认 I=120 时即 K/60
func (e *AmericanEngine) Bumps(opt Option) Bumps {
	return standardBumps(2 * opt.Strike() / float64(e.gridPoints))
}

// Build 用本引擎的网格参数为给定期权构造一个新的定价器
func (e *AmericanEngine) Build(opt Option) (*AmericanPricer, error) {
	p := &AmericanPricer{engine: *e, option: opt}
	if err := p.solve(); err != nil {
		return nil, err
	}
	return p, nil
}

// Price 实现 Pricer
func (e *AmericanEngine) Price(opt Option) (float64, error) {
	p, err := e.Build(opt)
	if err != nil {
		return 0, err
	}
	return p.Value(), nil
}

// AmericanPricer 单个美式期权的定价结果，构造时即完成求解
type AmericanPricer struct {
	engine       AmericanEngine
	option       Option
	value        float64
	cappedLayers int
}

// NewAmericanPricer 校验参数并立即求解
func NewAmericanPricer(spot, strike, maturity, volatility, rate float64, gridPoints int, timeIncrement float64, kind ExerciseKind) (*AmericanPricer, error) {
	engine, err := NewAmericanEngine(gridPoints, timeIncrement)
	if err != nil {
		return nil, err
	}
	opt, err := NewOption(spot, strike, rate, volatility, maturity, kind)
	if err != nil {
		return nil, err
	}
	return engine.Build(opt)
}

// Value 构造时计算出的价格
func (p *AmericanPricer) Value() float64 { return p.value }

// Option 定价器对应的期权
func (p *AmericanPricer) Option() Option { return p.option }

// Engine 定价器使用的网格配置
func (p *AmericanPricer) Engine() *AmericanEngine {
	e := p.engine
	return &e
}

// CappedLayers 达到 SOR 最大迭代次数仍未满足阈值的时间层数量
func (p *AmericanPricer) CappedLayers() int { return p.cappedLayers }

// Price 对另一只期权复用相同的 I 与 Δt 重新定价，不修改本实例
func (p *AmericanPricer) Price(opt Option) (float64, error) {
	return p.engine.Price(opt)
}

// Bumps 实现 Model
func (p *AmericanPricer) Bumps(opt Option) Bumps {
	return p.engine.Bumps(opt)
}

func (p *AmericanPricer) solve() error {
	o := p.option
	s, k, r, sigma, t := o.Spot(), o.Strike(), o.Rate(), o.Volatility(), o.Maturity()
	n := p.engine.gridPoints

	ds := 3 * k / float64(n)
	iStar := int(s / ds)
	if iStar > n {
		return fmt.Errorf("%w: spot %g beyond grid maximum %g", ErrOutOfRange, s, 3*k)
	}
	weight := (s - float64(iStar)*ds) / ds

	layers := max(int(t/p.engine.timeIncrement), 1)
	dt := t / float64(layers)

	// 显式部分 a,b,c 与隐式部分 lower,diag,upper
	a := make([]float64, n+1)
	b := make([]float64, n+1)
	c := make([]float64, n+1)
	lower := make([]float64, n+1)
	diag := make([]float64, n+1)
	upper := make([]float64, n+1)
	for i := 1; i < n; i++ {
		fi := float64(i)
		s2 := sigma * sigma * fi * fi
		a[i] = dt / 4 * (s2 - r*fi)
		b[i] = 1 - dt/2*(r+s2)
		c[i] = dt / 4 * (s2 + r*fi)
		lower[i] = -a[i]
		diag[i] = 1 + dt/2*(r+s2)
		upper[i] = -c[i]
	}

	intrinsic := func(i int) float64 {
		if o.IsCall() {
			return float64(i)*ds - k
		}
		return k - float64(i)*ds
	}

	prev := make([]float64, n+1)
	cur := make([]float64, n+1)
	predictor := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		prev[i] = o.Payoff(float64(i) * ds)
	}

	capped := 0
	for j := 1; j <= layers; j++ {
		discounted := k * math.Exp(-r*float64(j)*dt)
		if o.IsCall() {
			cur[0] = 0
			cur[n] = float64(n)*ds - discounted
		} else {
			cur[0] = discounted
			cur[n] = 0
		}
		copy(cur[1:n], prev[1:n])

		for i := 1; i < n; i++ {
			predictor[i] = a[i]*prev[i-1] + b[i]*prev[i] + c[i]*prev[i+1]
		}

		var residual float64
		for sweep := 0; ; {
			residual = 0
			for i := 1; i < n; i++ {
				diff := (predictor[i]-lower[i]*cur[i-1]-upper[i]*cur[i+1])/diag[i] - cur[i]
				residual += diff * diff
				cur[i] += sorRelaxation * diff
			}
			sweep++
			if residual <= sorTolerance || sweep >= sorMaxSweeps {
				break
			}
		}
		if residual > sorTolerance {
			capped++
		}

		for i := 1; i < n; i++ {
			cur[i] = math.Max(cur[i], intrinsic(i))
		}
		prev, cur = cur, prev
	}

	if iStar+1 <= n {
		p.value = (1-weight)*prev[iStar] + weight*prev[iStar+1]
	} else {
		p.value = prev[iStar]
	}
	p.cappedLayers = capped
	return nil
}
