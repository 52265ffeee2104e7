package control

import (
	"fmt"

	"github.com/san-kum/remotelab/internal/rig"
)

// PID regulates the rate toward Target. The output is clamped to [-1, 1] and
// the integral is frozen while the output saturates.
type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	Target   float64
	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

func (p *PID) Compute(x rig.State, t float64) float64 {
	err := p.Target - x.Rate

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return rig.Clamp(p.Kp * err)
	}

	dt := t - p.prevT
	if dt <= 0 {
		return rig.Clamp(p.Kp * err)
	}

	integral := p.integral + err*dt
	derivative := (err - p.prevErr) / dt
	u := p.Kp*err + p.Ki*integral + p.Kd*derivative

	p.prevErr = err
	p.prevT = t
	if u == rig.Clamp(u) {
		p.integral = integral
	}
	return rig.Clamp(u)
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	default:
		return fmt.Errorf("%w: %s", rig.ErrUnknownParameter, name)
	}
	return nil
}
