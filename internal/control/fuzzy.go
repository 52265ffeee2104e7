package control

import (
	"fmt"
	"math"

	"github.com/san-kum/remotelab/internal/fuzzy"
	"github.com/san-kum/remotelab/internal/rig"
)

// Fuzzy adapts the fuzzy rule base to the rig controller interface.
type Fuzzy struct {
	ctrl *fuzzy.Controller
}

func NewFuzzy(tuning fuzzy.Tuning) *Fuzzy {
	return &Fuzzy{ctrl: fuzzy.New(tuning)}
}

func (f *Fuzzy) Compute(x rig.State, t float64) float64 {
	return f.ctrl.Evaluate(t, x.Rate, x.Angle)
}

// GetParams returns the input ramp corners for display and run metadata.
func (f *Fuzzy) GetParams() map[string]float64 {
	tn := f.ctrl.Tuning()
	return map[string]float64{
		"desired_a":  tn.Desired.A,
		"desired_b":  tn.Desired.B,
		"large_a":    tn.Large.A,
		"large_b":    tn.Large.B,
		"resolution": float64(tn.Resolution),
	}
}

// SetParam retunes an input ramp corner or the output grid resolution. The
// controller is rebuilt, so in-flight evaluations keep the previous tuning.
func (f *Fuzzy) SetParam(name string, value float64) error {
	tn, err := applyTuning(f.ctrl.Tuning(), map[string]float64{name: value})
	if err != nil {
		return err
	}
	f.ctrl = fuzzy.New(tn)
	return nil
}

// applyTuning sets every named parameter on tn and checks the ramp order once
// all of them are applied.
func applyTuning(tn fuzzy.Tuning, params map[string]float64) (fuzzy.Tuning, error) {
	for name, value := range params {
		switch name {
		case "desired_a":
			tn.Desired.A = value
		case "desired_b":
			tn.Desired.B = value
		case "large_a":
			tn.Large.A = value
		case "large_b":
			tn.Large.B = value
		case "resolution":
			if value < 2 {
				return tn, fmt.Errorf("%w: resolution=%g", rig.ErrParameterBounds, value)
			}
			tn.Resolution = int(math.Round(value))
		default:
			return tn, fmt.Errorf("%w: %s", rig.ErrUnknownParameter, name)
		}
	}
	if tn.Desired.A > tn.Desired.B || tn.Large.A > tn.Large.B {
		return tn, fmt.Errorf("%w: ramp corners out of order", rig.ErrParameterBounds)
	}
	return tn, nil
}
