package rig

import (
	"errors"
	"math"
	"testing"
)

func TestToBody(t *testing.T) {
	var f Frame
	for i := range f {
		f[i] = float64(i)
	}
	b := ToBody(f)

	if b.U != 0 {
		t.Errorf("U = %v", b.U)
	}
	checks := []struct {
		name      string
		got, want Vec3
	}{
		{"accel", b.Accel, Vec3{3, -2, 1}},
		{"gyro", b.Gyro, Vec3{6, -5, 4}},
		{"magAK", b.MagAK, Vec3{-9, -7, 8}},
		{"magQMC", b.MagQMC, Vec3{-12, -10, 11}},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestBodyState(t *testing.T) {
	tests := []struct {
		name      string
		m2x, m2z  float64
		gz        float64
		wantAngle float64
	}{
		{"north", 0, -1, 0, 0},
		{"east", -1, 0, 2.5, 90},
		{"west", 1, 0, -4, -90},
		{"north-east", -1, -1, 0.5, 45},
	}
	for _, tt := range tests {
		var f Frame
		f[4] = tt.gz
		f[10] = tt.m2x
		f[12] = tt.m2z
		s := ToBody(f).State()
		if math.Abs(s.Angle-tt.wantAngle) > 1e-9 {
			t.Errorf("%s: angle = %v, want %v", tt.name, s.Angle, tt.wantAngle)
		}
		if s.Rate != tt.gz {
			t.Errorf("%s: rate = %v, want %v", tt.name, s.Rate, tt.gz)
		}
	}
}

func TestFrameIsValid(t *testing.T) {
	var f Frame
	if !f.IsValid() {
		t.Error("zero frame should be valid")
	}
	f[7] = math.NaN()
	if f.IsValid() {
		t.Error("frame with NaN should be invalid")
	}
	f[7] = math.Inf(-1)
	if f.IsValid() {
		t.Error("frame with Inf should be invalid")
	}
}

func TestClamp(t *testing.T) {
	tests := map[float64]float64{2: 1, -3: -1, 0.25: 0.25, -0.5: -0.5}
	for in, want := range tests {
		if got := Clamp(in); got != want {
			t.Errorf("Clamp(%v) = %v, want %v", in, got, want)
		}
	}
	if got := Clamp(math.NaN()); got != 0 {
		t.Errorf("Clamp(NaN) = %v", got)
	}
}

func TestLoopErrorUnwrap(t *testing.T) {
	err := &LoopError{Iteration: 4, Time: 1.5, Wrapped: ErrLinkTimeout}
	if !errors.Is(err, ErrLinkTimeout) {
		t.Error("LoopError should unwrap to ErrLinkTimeout")
	}
	if err.Error() != "iteration 4 (t=1.500s): rig: link timeout" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
