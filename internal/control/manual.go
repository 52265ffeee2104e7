package control

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/san-kum/remotelab/internal/rig"
)

// Manual sends a fixed command regardless of state. Used to check the actuator
// and to identify the plant with open-loop steps.
type Manual struct {
	u atomic.Uint64
}

func NewManual(u float64) *Manual {
	m := &Manual{}
	m.Set(u)
	return m
}

// Set updates the command; it is safe to call while the loop runs.
func (m *Manual) Set(u float64) {
	m.u.Store(math.Float64bits(rig.Clamp(u)))
}

func (m *Manual) Compute(x rig.State, t float64) float64 {
	return math.Float64frombits(m.u.Load())
}

func (m *Manual) GetParams() map[string]float64 {
	return map[string]float64{"u": math.Float64frombits(m.u.Load())}
}

func (m *Manual) SetParam(name string, value float64) error {
	if name != "u" {
		return fmt.Errorf("%w: %s", rig.ErrUnknownParameter, name)
	}
	if value < -1 || value > 1 {
		return fmt.Errorf("%w: u=%g", rig.ErrParameterBounds, value)
	}
	m.Set(value)
	return nil
}
