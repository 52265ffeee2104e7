package control

import (
	"errors"
	"testing"

	"github.com/san-kum/remotelab/internal/fuzzy"
	"github.com/san-kum/remotelab/internal/rig"
)

func TestNone(t *testing.T) {
	ctrl := NewNone()
	if u := ctrl.Compute(rig.State{Angle: 10, Rate: 30}, 0); u != 0 {
		t.Errorf("expected 0, got %f", u)
	}
}

func TestFuzzyMatchesCore(t *testing.T) {
	ctrl := NewFuzzy(fuzzy.DefaultTuning())
	core := fuzzy.NewDefault()
	for _, rate := range []float64{-12, -2, 0, 0.5, 7, 25} {
		x := rig.State{Angle: 33, Rate: rate}
		if got, want := ctrl.Compute(x, 1.5), core.Evaluate(1.5, rate, 33); got != want {
			t.Errorf("rate %v: got %v, want %v", rate, got, want)
		}
	}
}

func TestFuzzySetParam(t *testing.T) {
	ctrl := NewFuzzy(fuzzy.DefaultTuning())
	before := ctrl.Compute(rig.State{Rate: 4}, 0)

	if err := ctrl.SetParam("large_a", 2); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if ctrl.GetParams()["large_a"] != 2 {
		t.Error("large_a not updated")
	}
	if after := ctrl.Compute(rig.State{Rate: 4}, 0); after >= before {
		t.Errorf("earlier large ramp should push the command further: %v >= %v", after, before)
	}

	if err := ctrl.SetParam("large_a", 50); !errors.Is(err, rig.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
	if err := ctrl.SetParam("bogus", 1); !errors.Is(err, rig.ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter, got %v", err)
	}
}

func TestPID(t *testing.T) {
	ctrl := NewPID(0.05, 0.01, 0.0, 0.0)
	u := ctrl.Compute(rig.State{Rate: 10}, 0.0)
	if u >= 0 {
		t.Error("PID should output negative command for positive rate")
	}
	u = ctrl.Compute(rig.State{Rate: 10}, 0.1)
	if u < -1 || u > 1 {
		t.Errorf("command out of range: %f", u)
	}
}

func TestPIDSaturates(t *testing.T) {
	ctrl := NewPID(1, 1, 0, 0)
	for i := 0; i < 10; i++ {
		u := ctrl.Compute(rig.State{Rate: 100}, float64(i))
		if u != -1 {
			t.Fatalf("step %d: expected saturation at -1, got %v", i, u)
		}
	}
	if ctrl.integral != 0 {
		t.Errorf("integral should not wind up while saturated, got %v", ctrl.integral)
	}
}

func TestPIDResetAndParams(t *testing.T) {
	ctrl := NewPID(0.1, 0.2, 0.3, 1)
	ctrl.Compute(rig.State{Rate: 2}, 0)
	ctrl.Compute(rig.State{Rate: 2}, 1)
	ctrl.Reset()
	if !ctrl.first || ctrl.integral != 0 {
		t.Error("reset did not clear state")
	}
	if err := ctrl.SetParam("Kd", 0.5); err != nil {
		t.Fatal(err)
	}
	if ctrl.GetParams()["Kd"] != 0.5 {
		t.Error("Kd not updated")
	}
	if err := ctrl.SetParam("Kx", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestManual(t *testing.T) {
	ctrl := NewManual(0.4)
	if u := ctrl.Compute(rig.State{Rate: -50}, 3); u != 0.4 {
		t.Errorf("expected 0.4, got %v", u)
	}
	ctrl.Set(5)
	if u := ctrl.Compute(rig.State{}, 0); u != 1 {
		t.Errorf("expected clamp to 1, got %v", u)
	}
	if err := ctrl.SetParam("u", -2); !errors.Is(err, rig.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	names := reg.List()
	want := []string{"fuzzy", "manual", "none", "pid"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	ctrl, err := reg.Get("manual", map[string]float64{"u": -0.3})
	if err != nil {
		t.Fatal(err)
	}
	if u := ctrl.Compute(rig.State{}, 0); u != -0.3 {
		t.Errorf("manual from registry = %v", u)
	}

	if _, err := reg.Get("lqr", nil); err == nil {
		t.Error("expected error for unknown controller")
	}
}

func TestLocked(t *testing.T) {
	pid := NewLocked(NewPID(0.05, 0, 0, 0))
	if err := pid.SetParam("Kp", 0.1); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if got := pid.GetParams()["Kp"]; got != 0.1 {
		t.Errorf("Kp = %v, want 0.1", got)
	}
	if u := pid.Compute(rig.State{Rate: 5}, 0); u != -0.5 {
		t.Errorf("u = %v, want -0.5", u)
	}

	none := NewLocked(NewNone())
	if none.GetParams() != nil {
		t.Error("none should expose no parameters")
	}
	if err := none.SetParam("Kp", 1); !errors.Is(err, rig.ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter, got %v", err)
	}
}

func TestRegistryFuzzyParams(t *testing.T) {
	reg := NewRegistry()

	ctrl, err := reg.Get("fuzzy", map[string]float64{"large_a": 25, "large_b": 40})
	if err != nil {
		t.Fatalf("params applied together should keep ramp order: %v", err)
	}
	params := ctrl.(rig.Configurable).GetParams()
	if params["large_a"] != 25 || params["large_b"] != 40 {
		t.Errorf("params = %v", params)
	}

	if _, err := reg.Get("fuzzy", map[string]float64{"kp": 1}); !errors.Is(err, rig.ErrUnknownParameter) {
		t.Errorf("expected ErrUnknownParameter, got %v", err)
	}
	if _, err := reg.Get("manual", map[string]float64{"u": 3}); !errors.Is(err, rig.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}

func TestFuzzyResolution(t *testing.T) {
	ctrl := NewFuzzy(fuzzy.DefaultTuning())
	if err := ctrl.SetParam("resolution", 41); err != nil {
		t.Fatal(err)
	}
	if ctrl.GetParams()["resolution"] != 41 {
		t.Error("resolution not updated")
	}
	if err := ctrl.SetParam("resolution", 1); !errors.Is(err, rig.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}
