package domain

import (
	"context"
	"errors"
	"testing"
)

func TestBlackScholesReferencePrices(t *testing.T) {
	bs := NewBlackScholesPricer()
	call, _ := bs.Price(mustOption(t, 100, 100, 0.05, 0.2, 1, Call))
	put, _ := bs.Price(mustOption(t, 100, 100, 0.05, 0.2, 1, Put))
	if !almostEqual(call, refCallPrice, 1e-9) {
		t.Errorf("call = %.12f, want %.12f", call, refCallPrice)
	}
	if !almostEqual(put, refPutPrice, 1e-9) {
		t.Errorf("put = %.12f, want %.12f", put, refPutPrice)
	}
}

func TestMonteCarloNearClosedForm(t *testing.T) {
	mc, err := NewMonteCarloPricer(200000, 4, 7)
	if err != nil {
		t.Fatal(err)
	}
	got, err := mc.Price(mustOption(t, 100, 100, 0.05, 0.2, 1, Call))
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(got, refCallPrice, 0.15) {
		t.Fatalf("monte carlo call = %.4f, want ≈ %.4f", got, refCallPrice)
	}
}

// 相同种子与 worker 数结果可复现
func TestMonteCarloDeterministic(t *testing.T) {
	opt := mustOption(t, 100, 100, 0.05, 0.2, 1, Put)
	a, _ := NewMonteCarloPricer(10001, 3, 11)
	b, _ := NewMonteCarloPricer(10001, 3, 11)
	pa, _ := a.Price(opt)
	pb, _ := b.Price(opt)
	if pa != pb {
		t.Fatalf("same seed gave %.10f and %.10f", pa, pb)
	}
}

func TestMonteCarloRejectsBadConfig(t *testing.T) {
	if _, err := NewMonteCarloPricer(0, 1, 1); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewMonteCarloPricer(10, 0, 1); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBinomialEuropeanNearClosedForm(t *testing.T) {
	tree, _ := NewBinomialPricer(500, false)
	got, err := tree.Price(mustOption(t, 100, 100, 0.05, 0.2, 1, Put))
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(got, refPutPrice, 0.03) {
		t.Fatalf("binomial put = %.6f, want ≈ %.6f", got, refPutPrice)
	}
}

func TestLSMAmericanPut(t *testing.T) {
	lsm, err := NewLSMPricer(20000, 50, 3)
	if err != nil {
		t.Fatal(err)
	}
	tree, _ := NewBinomialPricer(1000, true)
	opt := mustOption(t, 100, 100, 0.05, 0.2, 1, Put)

	got, err := lsm.Price(opt)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := tree.Price(opt)
	if !almostEqual(got, want, 0.25) {
		t.Fatalf("lsm put = %.4f, binomial american = %.4f", got, want)
	}
}

func TestFactoryBuildsEveryModel(t *testing.T) {
	settings := DefaultEngineSettings()
	settings.Simulations = 1000
	settings.LSMPaths = 500
	opt := mustOption(t, 100, 100, 0.05, 0.2, 1, Call)

	for _, name := range ModelNames() {
		m, err := NewModel(name, settings)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		p, err := m.Price(opt)
		if err != nil {
			t.Fatalf("%s price: %v", name, err)
		}
		if p <= 0 {
			t.Fatalf("%s price = %g", name, p)
		}
	}
}

func TestFactoryUnknownModel(t *testing.T) {
	if _, err := NewModel("Heston", DefaultEngineSettings()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBuildSurface(t *testing.T) {
	opt := mustOption(t, 100, 100, 0.05, 0.2, 1, Call)
	spec := SurfaceSpec{Intervals: 4, LowRatio: 0.5, HighRatio: 1.5, Workers: 2}
	points, err := BuildSurface(context.Background(), NewBlackScholesPricer(), opt, spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Fatalf("got %d rows, want 5", len(points))
	}
	wantSpots := []float64{50, 75, 100, 125, 150}
	for i, p := range points {
		if !almostEqual(p.Spot, wantSpots[i], 1e-9) {
			t.Fatalf("row %d spot = %g, want %g", i, p.Spot, wantSpots[i])
		}
		if i > 0 && (p.Price <= points[i-1].Price || p.Delta <= points[i-1].Delta) {
			t.Fatalf("call price and delta must increase with spot at row %d", i)
		}
	}
}

func TestBuildSurfaceRejectsBadSpec(t *testing.T) {
	opt := mustOption(t, 100, 100, 0.05, 0.2, 1, Call)
	_, err := BuildSurface(context.Background(), NewBlackScholesPricer(), opt, SurfaceSpec{Intervals: 0, LowRatio: 0.5, HighRatio: 1.5})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
