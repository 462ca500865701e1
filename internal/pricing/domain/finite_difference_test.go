package domain

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewFiniteDifferencePricerRejectsBadSteps(t *testing.T) {
	for _, steps := range [][2]int{{0, 100}, {100, 0}, {-1, -1}} {
		if _, err := NewFiniteDifferencePricer(steps[0], steps[1]); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("steps %v: expected ErrInvalidConfig, got %v", steps, err)
		}
	}
}

func TestFiniteDifferenceMatchesBlackScholes(t *testing.T) {
	fd, err := NewFiniteDifferencePricer(100, 100)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		kind ExerciseKind
		want float64
	}{
		{Call, refCallPrice},
		{Put, refPutPrice},
	}
	for _, tt := range tests {
		got, err := fd.Price(mustOption(t, 100, 100, 0.05, 0.2, 1, tt.kind))
		if err != nil {
			t.Fatalf("%s: %v", tt.kind, err)
		}
		if !almostEqual(got, tt.want, 0.05) {
			t.Errorf("%s price = %.6f, want %.6f ± 0.05", tt.kind, got, tt.want)
		}
	}
}

// 看涨看跌平价：C - P = S - K·e^{-rT}
func TestFiniteDifferencePutCallParity(t *testing.T) {
	fd, _ := NewFiniteDifferencePricer(100, 100)
	for _, spot := range []float64{80, 100, 120} {
		call, err := fd.Price(mustOption(t, spot, 100, 0.05, 0.2, 1, Call))
		if err != nil {
			t.Fatal(err)
		}
		put, err := fd.Price(mustOption(t, spot, 100, 0.05, 0.2, 1, Put))
		if err != nil {
			t.Fatal(err)
		}
		want := spot - 100*math.Exp(-0.05)
		if !almostEqual(call-put, want, 0.05) {
			t.Errorf("spot %g: C-P = %.6f, want %.6f", spot, call-put, want)
		}
	}
}

func TestFiniteDifferenceConverges(t *testing.T) {
	opt := mustOption(t, 100, 100, 0.05, 0.2, 1, Call)
	prices := make([]float64, 0, 3)
	for _, m := range []int{50, 100, 200} {
		fd, _ := NewFiniteDifferencePricer(100, m)
		p, err := fd.Price(opt)
		if err != nil {
			t.Fatalf("M=%d: %v", m, err)
		}
		prices = append(prices, p)
	}
	coarse := math.Abs(prices[1] - prices[0])
	fine := math.Abs(prices[2] - prices[1])
	if fine >= coarse {
		t.Fatalf("refinement did not shrink the change: %.6f then %.6f", coarse, fine)
	}
	if fine > 0.05 {
		t.Fatalf("M=100→200 changed price by %.6f", fine)
	}
}

func TestFiniteDifferencePriceIsNonNegative(t *testing.T) {
	fd, _ := NewFiniteDifferencePricer(100, 100)
	// 深度虚值
	p, err := fd.Price(mustOption(t, 40, 100, 0.05, 0.2, 0.25, Call))
	if err != nil {
		t.Fatal(err)
	}
	if p < 0 {
		t.Fatalf("price = %g, want >= 0", p)
	}
}

func TestCrankNicolsonOperatorsBoundaryRows(t *testing.T) {
	c, d := crankNicolsonOperators(10, 0.2, 0.05, 0.01)
	for _, i := range []int{0, 10} {
		for j := 0; j <= 10; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if c.At(i, j) != want || d.At(i, j) != want {
				t.Fatalf("row %d is not an identity row at column %d", i, j)
			}
		}
	}
}

func TestTridiagonalSolveMatchesDenseSolve(t *testing.T) {
	implicit, _ := crankNicolsonOperators(50, 0.3, 0.05, 0.002)
	solver, err := factorTridiagonal(implicit)
	if err != nil {
		t.Fatal(err)
	}

	rhs := mat.NewVecDense(51, nil)
	for i := 0; i <= 50; i++ {
		rhs.SetVec(i, math.Sin(float64(i))+2)
	}
	var want mat.VecDense
	if err := want.SolveVec(mat.DenseCopyOf(implicit), rhs); err != nil {
		t.Fatal(err)
	}

	got := mat.VecDenseCopyOf(rhs)
	solver.solveTo(got, got)
	for i := 0; i <= 50; i++ {
		if !almostEqual(got.AtVec(i), want.AtVec(i), 1e-10) {
			t.Fatalf("x[%d] = %.12f, want %.12f", i, got.AtVec(i), want.AtVec(i))
		}
	}
}

func TestTridiagonalRejectsZeroPivot(t *testing.T) {
	a := mat.NewBandDense(3, 3, 1, 1, nil)
	a.SetBand(0, 0, 1)
	a.SetBand(0, 1, 1)
	a.SetBand(1, 0, 1)
	a.SetBand(1, 1, 1)
	a.SetBand(2, 2, 1)
	if _, err := factorTridiagonal(a); !errors.Is(err, ErrNumeric) {
		t.Fatalf("err = %v, want ErrNumeric", err)
	}
}
