package fuzzy

import (
	"errors"
	"math"
)

// DefaultResolution is the number of output grid points used for the centroid.
const DefaultResolution = 20

// ErrDegenerateAggregate reports that no rule fired anywhere on the output grid.
var ErrDegenerateAggregate = errors.New("fuzzy: aggregate membership is zero on the whole grid")

// Tuning holds the membership constants of the rule base. Input ramps are over
// the rate magnitude in deg/s, output shapes over the command magnitude [0, 1].
type Tuning struct {
	Desired    Ramp `yaml:"desired" toml:"desired" json:"desired"`
	Large      Ramp `yaml:"large" toml:"large" json:"large"`
	Zero       Ramp `yaml:"zero" toml:"zero" json:"zero"`
	Mid        Trap `yaml:"mid" toml:"mid" json:"mid"`
	Max        Ramp `yaml:"max" toml:"max" json:"max"`
	Resolution int  `yaml:"resolution" toml:"resolution" json:"resolution"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Desired:    Ramp{A: 0, B: 3},
		Large:      Ramp{A: 5, B: 20},
		Zero:       Ramp{A: 0, B: 0.1},
		Mid:        Trap{A: 0.07, B: 0.2, C: 0.5, D: 0.65},
		Max:        Ramp{A: 0.7, B: 1},
		Resolution: DefaultResolution,
	}
}

// Inference is the trace of one evaluation of the rule base.
type Inference struct {
	Needed      float64
	Large       float64
	Antecedents [3]float64
	Grid        []float64
	Aggregate   []float64
	Centroid    float64
	Degenerate  bool
}

// Controller evaluates the three-rule base:
//
//	large rate        -> output near max
//	desired rate      -> output near zero
//	neither           -> output mid-band
type Controller struct {
	tuning Tuning
}

func New(tuning Tuning) *Controller {
	if tuning.Resolution < 2 {
		tuning.Resolution = DefaultResolution
	}
	return &Controller{tuning: tuning}
}

func NewDefault() *Controller {
	return New(DefaultTuning())
}

func (c *Controller) Tuning() Tuning { return c.tuning }

// Evaluate returns the command for the measured rate. Elapsed time and angle are
// accepted for the loop contract but do not enter the rule base.
//
// The result is -sign(rate) times the defuzzified magnitude. A zero or NaN rate
// gives 0, as does a degenerate aggregate.
func (c *Controller) Evaluate(t, rate, angle float64) float64 {
	if rate == 0 || math.IsNaN(rate) {
		return 0
	}
	inf := c.Infer(rate)
	if inf.Degenerate {
		return 0
	}
	if rate > 0 {
		return -inf.Centroid
	}
	return inf.Centroid
}

// Infer runs the rule base on |rate| and returns every intermediate degree.
func (c *Controller) Infer(rate float64) Inference {
	tn := c.tuning
	w := math.Abs(rate)
	if math.IsNaN(w) {
		w = 0
	}

	needed := tn.Desired.Falling(w)
	large := tn.Large.Rising(w)
	ants := [3]float64{
		large,
		needed,
		Intersection([]float64{Complement(needed), Complement(large)}),
	}
	consequents := [3]func(float64) float64{
		tn.Max.Rising,
		tn.Zero.Falling,
		tn.Mid.Degree,
	}

	n := tn.Resolution
	inf := Inference{
		Needed:      needed,
		Large:       large,
		Antecedents: ants,
		Grid:        make([]float64, n),
		Aggregate:   make([]float64, n),
	}

	step := 1.0 / float64(n-1)
	var implied [3]float64
	var moment, mass float64
	for i := 0; i < n; i++ {
		y := float64(i) * step
		for r := range ants {
			implied[r] = Intersection([]float64{ants[r], consequents[r](y)})
		}
		agg := Union(implied[:])
		inf.Grid[i] = y
		inf.Aggregate[i] = agg
		moment += y * agg
		mass += agg
	}

	if mass == 0 {
		inf.Degenerate = true
		return inf
	}
	inf.Centroid = moment / mass
	return inf
}

// Err reports ErrDegenerateAggregate for a degenerate inference.
func (inf Inference) Err() error {
	if inf.Degenerate {
		return ErrDegenerateAggregate
	}
	return nil
}
