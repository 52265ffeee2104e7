package fuzzy

// RisingLinear is 0 below a, ramps linearly to 1 between a and b and is 1 above b.
// Callers must pass a <= b.
func RisingLinear(x, a, b float64) float64 {
	switch {
	case x < a:
		return 0
	case x >= b:
		return 1
	default:
		return (x - a) / (b - a)
	}
}

// FallingLinear is 1 below a, ramps linearly to 0 between a and b and is 0 above b.
// Callers must pass a <= b.
func FallingLinear(x, a, b float64) float64 {
	switch {
	case x < a:
		return 1
	case x >= b:
		return 0
	default:
		return 1 - (x-a)/(b-a)
	}
}

// Trapezoid rises from 0 at a to 1 at b, stays at 1 until c and falls back to 0
// at d. Outside [a, d] it is 0. Callers must pass a <= b <= c <= d.
func Trapezoid(x, a, b, c, d float64) float64 {
	switch {
	case x < a:
		return 0
	case x < b:
		return (x - a) / (b - a)
	case x <= c:
		return 1
	case x < d:
		return (d - x) / (d - c)
	default:
		return 0
	}
}

// Ramp holds the corners of a linear membership shape.
type Ramp struct {
	A float64 `yaml:"a" toml:"a" json:"a"`
	B float64 `yaml:"b" toml:"b" json:"b"`
}

func (r Ramp) Rising(x float64) float64  { return RisingLinear(x, r.A, r.B) }
func (r Ramp) Falling(x float64) float64 { return FallingLinear(x, r.A, r.B) }

// Trap holds the corners of a trapezoidal membership shape.
type Trap struct {
	A float64 `yaml:"a" toml:"a" json:"a"`
	B float64 `yaml:"b" toml:"b" json:"b"`
	C float64 `yaml:"c" toml:"c" json:"c"`
	D float64 `yaml:"d" toml:"d" json:"d"`
}

func (t Trap) Degree(x float64) float64 { return Trapezoid(x, t.A, t.B, t.C, t.D) }
