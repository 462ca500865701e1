package domain

import (
	"context"
	"errors"
	"testing"
)

// 闭式模型的差分希腊字母应与解析值一致
func TestBumpGreeksMatchAnalytic(t *testing.T) {
	bs := NewBlackScholesPricer()
	for _, kind := range []ExerciseKind{Call, Put} {
		opt := mustOption(t, 100, 100, 0.05, 0.2, 1, kind)
		want := AnalyticGreeks(opt)
		got, err := ComputeGreeks(context.Background(), bs, opt)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		checks := []struct {
			name      string
			got, want float64
			tol       float64
		}{
			{"delta", got.Delta, want.Delta, 1e-3},
			{"gamma", got.Gamma, want.Gamma, 1e-3},
			{"vega", got.Vega, want.Vega, 1e-2},
			{"theta", got.Theta, want.Theta, 5e-2},
			{"rho", got.Rho, want.Rho, 1e-2},
		}
		for _, c := range checks {
			if !almostEqual(c.got, c.want, c.tol) {
				t.Errorf("%s %s = %.6f, analytic %.6f", kind, c.name, c.got, c.want)
			}
		}
	}
}

func TestFiniteDifferenceGreeksSigns(t *testing.T) {
	fd, _ := NewFiniteDifferencePricer(100, 100)
	ctx := context.Background()

	call, err := ComputeGreeks(ctx, fd, mustOption(t, 100, 100, 0.05, 0.2, 1, Call))
	if err != nil {
		t.Fatal(err)
	}
	put, err := ComputeGreeks(ctx, fd, mustOption(t, 100, 100, 0.05, 0.2, 1, Put))
	if err != nil {
		t.Fatal(err)
	}

	if call.Delta <= 0 || call.Delta >= 1 {
		t.Errorf("call delta %.6f not in (0, 1)", call.Delta)
	}
	if put.Delta >= 0 || put.Delta <= -1 {
		t.Errorf("put delta %.6f not in (-1, 0)", put.Delta)
	}
	if call.Gamma <= 0 || put.Gamma <= 0 {
		t.Errorf("gamma must be positive: call %.6f put %.6f", call.Gamma, put.Gamma)
	}
	if call.Vega <= 0 || put.Vega <= 0 {
		t.Errorf("vega must be positive: call %.6f put %.6f", call.Vega, put.Vega)
	}
	if call.Rho <= 0 || put.Rho >= 0 {
		t.Errorf("rho signs wrong: call %.6f put %.6f", call.Rho, put.Rho)
	}

	ref := AnalyticGreeks(mustOption(t, 100, 100, 0.05, 0.2, 1, Call))
	if !almostEqual(call.Delta, ref.Delta, 0.02) {
		t.Errorf("call delta %.6f far from analytic %.6f", call.Delta, ref.Delta)
	}
}

func TestAmericanGreeksSigns(t *testing.T) {
	engine, _ := NewAmericanEngine(120, 0.005)
	g, err := ComputeGreeks(context.Background(), engine, mustOption(t, 100, 100, 0.05, 0.2, 1, Put))
	if err != nil {
		t.Fatal(err)
	}
	if g.Delta >= 0 || g.Delta <= -1 {
		t.Errorf("put delta %.6f not in (-1, 0)", g.Delta)
	}
	if g.Gamma < 0 {
		t.Errorf("gamma %.6f negative", g.Gamma)
	}
	if g.Vega <= 0 {
		t.Errorf("vega %.6f not positive", g.Vega)
	}
}

// 剩余期限不超过一天时 Theta 为 0，恰好一天也归零
func TestThetaZeroNearExpiry(t *testing.T) {
	tests := []struct {
		name     string
		maturity float64
		zero     bool
	}{
		{"under one day", 1.0 / 400, true},
		{"exactly one day", 1.0 / 365, true},
		{"two days", 2.0 / 365, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := mustOption(t, 100, 100, 0.05, 0.2, tt.maturity, Call)
			theta, err := Theta(NewBlackScholesPricer(), opt)
			if err != nil {
				t.Fatal(err)
			}
			if tt.zero && theta != 0 {
				t.Fatalf("theta = %g, want exactly 0", theta)
			}
			if !tt.zero && theta >= 0 {
				t.Fatalf("theta = %g, want negative time decay", theta)
			}
		})
	}
}

func TestGreeksPropagatePricerError(t *testing.T) {
	boom := errors.New("boom")
	failing := PricerFunc(func(Option) (float64, error) { return 0, boom })
	opt := mustOption(t, 100, 100, 0.05, 0.2, 1, Call)

	for name, fn := range map[string]func(Pricer, Option, float64) (float64, error){
		"delta": CalculateDelta,
		"gamma": CalculateGamma,
		"vega":  CalculateVega,
		"theta": CalculateTheta,
		"rho":   CalculateRho,
	} {
		if _, err := fn(failing, opt, 0.01); !errors.Is(err, boom) {
			t.Errorf("%s: expected pricer error, got %v", name, err)
		}
	}
}

// 下方扰动使标的价格非正时返回配置错误
func TestDeltaRejectsNonPositiveBump(t *testing.T) {
	opt := mustOption(t, 1, 100, 0.05, 0.2, 1, Call)
	if _, err := CalculateDelta(NewBlackScholesPricer(), opt, 2); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestPricerFuncLinearDelta(t *testing.T) {
	linear := PricerFunc(func(o Option) (float64, error) { return 3 * o.Spot(), nil })
	d, err := CalculateDelta(linear, mustOption(t, 50, 100, 0.05, 0.2, 1, Call), 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(d, 3, 1e-9) {
		t.Fatalf("delta = %g, want 3", d)
	}
}
