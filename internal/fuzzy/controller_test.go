package fuzzy

import (
	"math"
	"testing"
)

func TestEvaluateReference(t *testing.T) {
	ctrl := NewDefault()
	tests := []struct {
		rate float64
		want float64
	}{
		{1, -0.27265037593984975},
		{3, -0.3553501557473752},
		{5, -0.3553501557473752},
		{10, -0.47249676353734216},
		{15, -0.6083721246304914},
		{20, -0.9163925438596491},
		{30, -0.9163925438596491},
		{-10, 0.47249676353734216},
	}
	for _, tt := range tests {
		got := ctrl.Evaluate(0, tt.rate, 0)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Evaluate(rate=%v) = %v, want %v", tt.rate, got, tt.want)
		}
	}
}

func TestEvaluateZeroRate(t *testing.T) {
	ctrl := NewDefault()
	for _, tc := range [][2]float64{{0, 0}, {12.5, -170}, {1e6, 45}} {
		got := ctrl.Evaluate(tc[0], 0, tc[1])
		if got != 0 || math.Signbit(got) {
			t.Errorf("Evaluate(t=%v, 0, phi=%v) = %v, want +0", tc[0], tc[1], got)
		}
	}
}

func TestEvaluateSignAndBounds(t *testing.T) {
	ctrl := NewDefault()
	for rate := -40.0; rate <= 40; rate += 0.25 {
		u := ctrl.Evaluate(0, rate, 0)
		if math.Abs(u) > 1 {
			t.Fatalf("|u| > 1 for rate %v: %v", rate, u)
		}
		if rate > 0 && u >= 0 {
			t.Fatalf("expected negative command for rate %v, got %v", rate, u)
		}
		if rate < 0 && u <= 0 {
			t.Fatalf("expected positive command for rate %v, got %v", rate, u)
		}
	}
}

func TestEvaluateOddSymmetry(t *testing.T) {
	ctrl := NewDefault()
	for _, rate := range []float64{0.3, 1, 2.9, 4, 10, 17.2, 25} {
		pos := ctrl.Evaluate(1, rate, 10)
		neg := ctrl.Evaluate(1, -rate, 10)
		if pos != -neg {
			t.Errorf("rate %v: %v vs %v", rate, pos, neg)
		}
	}
}

func TestEvaluatePure(t *testing.T) {
	ctrl := NewDefault()
	a := ctrl.Evaluate(3.2, 7.7, -12)
	b := ctrl.Evaluate(3.2, 7.7, -12)
	if math.Float64bits(a) != math.Float64bits(b) {
		t.Errorf("repeated evaluation differs: %v vs %v", a, b)
	}
	if c := ctrl.Evaluate(99, 7.7, 180); c != a {
		t.Errorf("time and angle changed the command: %v vs %v", c, a)
	}
}

func TestLargeRateDominates(t *testing.T) {
	ctrl := NewDefault()
	large := math.Abs(ctrl.Evaluate(0, 10, 0))
	small := math.Abs(ctrl.Evaluate(0, 1, 0))
	if large <= small {
		t.Errorf("expected |u(10)| > |u(1)|, got %v <= %v", large, small)
	}
}

func TestInferDegrees(t *testing.T) {
	ctrl := NewDefault()

	inf := ctrl.Infer(3)
	if inf.Needed != 0 {
		t.Errorf("needed at rate 3 = %v, want 0", inf.Needed)
	}
	inf = ctrl.Infer(20)
	if inf.Large != 1 {
		t.Errorf("large at rate 20 = %v, want 1", inf.Large)
	}

	inf = ctrl.Infer(10)
	if math.Abs(inf.Large-1.0/3) > 1e-12 || inf.Needed != 0 {
		t.Errorf("rate 10: large=%v needed=%v", inf.Large, inf.Needed)
	}
	if math.Abs(inf.Antecedents[2]-2.0/3) > 1e-12 {
		t.Errorf("rate 10: neither = %v, want 2/3", inf.Antecedents[2])
	}
	if len(inf.Grid) != DefaultResolution || inf.Grid[0] != 0 || math.Abs(inf.Grid[DefaultResolution-1]-1) > 1e-12 {
		t.Errorf("unexpected grid %v", inf.Grid)
	}
	for i, a := range inf.Aggregate {
		if a < 0 || a > 1 {
			t.Errorf("aggregate[%d] = %v out of range", i, a)
		}
	}
	if err := inf.Err(); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestInferNegativeRateUsesMagnitude(t *testing.T) {
	ctrl := NewDefault()
	a := ctrl.Infer(-6)
	b := ctrl.Infer(6)
	if a.Centroid != b.Centroid {
		t.Errorf("centroid differs: %v vs %v", a.Centroid, b.Centroid)
	}
}

func TestDegenerateAggregateFallsBackToZero(t *testing.T) {
	tn := DefaultTuning()
	tn.Max = Ramp{A: 2, B: 3}
	tn.Zero = Ramp{A: -3, B: -2}
	tn.Mid = Trap{A: 3, B: 4, C: 5, D: 6}
	ctrl := New(tn)

	for _, rate := range []float64{0.5, 4, 12, -30} {
		inf := ctrl.Infer(rate)
		if !inf.Degenerate {
			t.Fatalf("rate %v: expected degenerate aggregate", rate)
		}
		if inf.Err() != ErrDegenerateAggregate {
			t.Errorf("rate %v: err = %v", rate, inf.Err())
		}
		u := ctrl.Evaluate(0, rate, 0)
		if u != 0 || math.IsNaN(u) {
			t.Errorf("rate %v: fallback command = %v, want 0", rate, u)
		}
	}
}

func TestNonFiniteRate(t *testing.T) {
	ctrl := NewDefault()
	if u := ctrl.Evaluate(0, math.NaN(), 0); u != 0 {
		t.Errorf("NaN rate: got %v, want 0", u)
	}
	pos := ctrl.Evaluate(0, math.Inf(1), 0)
	if math.Abs(pos+0.9163925438596491) > 1e-9 {
		t.Errorf("+Inf rate: got %v", pos)
	}
	neg := ctrl.Evaluate(0, math.Inf(-1), 0)
	if neg != -pos {
		t.Errorf("-Inf rate: got %v, want %v", neg, -pos)
	}
}

func TestResolutionFallback(t *testing.T) {
	tn := DefaultTuning()
	tn.Resolution = 1
	ctrl := New(tn)
	if got := ctrl.Tuning().Resolution; got != DefaultResolution {
		t.Errorf("resolution = %d, want %d", got, DefaultResolution)
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	ctrl := NewDefault()
	want := ctrl.Evaluate(0, 8, 0)
	done := make(chan float64, 16)
	for i := 0; i < 16; i++ {
		go func() { done <- ctrl.Evaluate(0, 8, 0) }()
	}
	for i := 0; i < 16; i++ {
		if got := <-done; got != want {
			t.Errorf("concurrent evaluation = %v, want %v", got, want)
		}
	}
}
