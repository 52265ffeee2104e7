package metrics

import (
	"math"

	"github.com/san-kum/remotelab/internal/rig"
)

type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(s rig.Sample) {
	c.sum += math.Abs(s.Command)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// MeanRate is the mean rate magnitude, the quantity the controller damps.
type MeanRate struct {
	sum     float64
	samples int
}

func NewMeanRate() *MeanRate { return &MeanRate{} }

func (m *MeanRate) Name() string { return "mean_rate" }

func (m *MeanRate) Observe(s rig.Sample) {
	m.sum += math.Abs(s.Rate)
	m.samples++
}

func (m *MeanRate) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanRate) Reset() {
	m.sum = 0
	m.samples = 0
}
