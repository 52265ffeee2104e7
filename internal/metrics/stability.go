package metrics

import (
	"math"

	"github.com/san-kum/remotelab/internal/rig"
)

// Stability is the fraction of samples whose rate magnitude is within threshold.
type Stability struct {
	name      string
	threshold float64
	settled   int
	samples   int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x rig.Sample) {
	s.samples++
	if math.Abs(x.Rate) <= s.threshold {
		s.settled++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.settled) / float64(s.samples)
}

func (s *Stability) Reset() {
	s.settled = 0
	s.samples = 0
}

// LoopPeriod is the mean time between consecutive samples, in seconds.
type LoopPeriod struct {
	first, last float64
	samples     int
}

func NewLoopPeriod() *LoopPeriod { return &LoopPeriod{} }

func (p *LoopPeriod) Name() string { return "loop_period" }

func (p *LoopPeriod) Observe(s rig.Sample) {
	if p.samples == 0 {
		p.first = s.T
	}
	p.last = s.T
	p.samples++
}

func (p *LoopPeriod) Value() float64 {
	if p.samples < 2 {
		return 0
	}
	return (p.last - p.first) / float64(p.samples-1)
}

func (p *LoopPeriod) Reset() {
	p.first, p.last = 0, 0
	p.samples = 0
}
