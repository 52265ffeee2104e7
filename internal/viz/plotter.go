package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/remotelab/internal/rig"
)

const (
	KeyTheta = "theta"
	KeyOmega = "omega"
	KeyU     = "u"

	DefaultMaxPoints = 300
)

var (
	seriesKeys  = []string{KeyTheta, KeyOmega, KeyU}
	seriesUnits = map[string]string{KeyTheta: "deg", KeyOmega: "deg/s", KeyU: "-1..1"}
)

// Plotter keeps the last MaxPoints samples of each series.
type Plotter struct {
	maxPoints int
	times     []float64
	series    map[string][]float64
}

func NewPlotter(maxPoints int) *Plotter {
	if maxPoints < 2 {
		maxPoints = DefaultMaxPoints
	}
	p := &Plotter{
		maxPoints: maxPoints,
		times:     make([]float64, 0, maxPoints),
		series:    make(map[string][]float64, len(seriesKeys)),
	}
	for _, k := range seriesKeys {
		p.series[k] = make([]float64, 0, maxPoints)
	}
	return p
}

// OnSample makes the plotter a loop observer.
func (p *Plotter) OnSample(s rig.Sample) { p.Push(s) }

func (p *Plotter) Push(s rig.Sample) {
	p.times = appendWindow(p.times, s.T, p.maxPoints)
	p.series[KeyTheta] = appendWindow(p.series[KeyTheta], s.Angle, p.maxPoints)
	p.series[KeyOmega] = appendWindow(p.series[KeyOmega], s.Rate, p.maxPoints)
	p.series[KeyU] = appendWindow(p.series[KeyU], s.Command, p.maxPoints)
}

func appendWindow(buf []float64, v float64, n int) []float64 {
	if len(buf) >= n {
		copy(buf, buf[1:])
		buf = buf[:len(buf)-1]
	}
	return append(buf, v)
}

func (p *Plotter) Len() int { return len(p.times) }

// Series returns a copy of the named series.
func (p *Plotter) Series(key string) []float64 {
	src := p.series[key]
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// MeanDt is the mean spacing of the sample times in the window, in seconds.
func (p *Plotter) MeanDt() float64 {
	if len(p.times) < 2 {
		return 0
	}
	return (p.times[len(p.times)-1] - p.times[0]) / float64(len(p.times)-1)
}

// Title is the loop period header shown above the charts.
func (p *Plotter) Title() string {
	return fmt.Sprintf("dt = %5.2f ms", 1000*p.MeanDt())
}

// Render draws the three charts, each height rows tall and width columns wide.
func (p *Plotter) Render(width, height int) string {
	var b strings.Builder
	b.WriteString(p.Title())
	b.WriteString("\n\n")

	for i, key := range seriesKeys {
		caption := fmt.Sprintf("%s [%s]", key, seriesUnits[key])
		data := p.series[key]
		if len(data) < 2 {
			b.WriteString(caption + ": waiting for samples\n")
			continue
		}
		opts := []asciigraph.Option{
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(caption),
		}
		if key == KeyU {
			opts = append(opts, asciigraph.LowerBound(-1), asciigraph.UpperBound(1))
		} else if lo, hi := bounds(data); lo == hi {
			opts = append(opts, asciigraph.LowerBound(lo-1), asciigraph.UpperBound(hi+1))
		}
		b.WriteString(seriesStyles[key].Render(asciigraph.Plot(data, opts...)))
		if i < len(seriesKeys)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func bounds(data []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
