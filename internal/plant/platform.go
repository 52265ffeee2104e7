package plant

import (
	"fmt"

	"github.com/san-kum/remotelab/internal/rig"
)

// Platform is the rotating stage: state is [angle deg, rate deg/s], input is
// the fan command in [-1, 1].
type Platform struct {
	Gain        float64 // deg/s² at full command
	Damping     float64 // 1/s
	Disturbance float64 // deg/s², constant torque from cable drag or imbalance
}

func NewPlatform() *Platform {
	return &Platform{
		Gain:    30.0,
		Damping: 0.05,
	}
}

func (p *Platform) StateDim() int { return 2 }

func (p *Platform) Derive(x State, u float64, t float64) State {
	rate := x[1]
	accel := p.Gain*rig.Clamp(u) - p.Damping*rate + p.Disturbance
	return State{rate, accel}
}

// Energy is the kinetic energy per unit inertia.
func (p *Platform) Energy(x State) float64 {
	return 0.5 * x[1] * x[1]
}

func (p *Platform) GetParams() map[string]float64 {
	return map[string]float64{
		"gain":        p.Gain,
		"damping":     p.Damping,
		"disturbance": p.Disturbance,
	}
}

func (p *Platform) SetParam(name string, value float64) error {
	switch name {
	case "gain":
		p.Gain = value
	case "damping":
		if value < 0 {
			return fmt.Errorf("%w: damping=%g", rig.ErrParameterBounds, value)
		}
		p.Damping = value
	case "disturbance":
		p.Disturbance = value
	default:
		return fmt.Errorf("%w: %s", rig.ErrUnknownParameter, name)
	}
	return nil
}
