package plant

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is a single-input ODE dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u float64, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(sys System, x State, u float64, t float64, dt float64) State
}
