package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/remotelab/internal/rig"
)

// Field selects one value of a sample.
type Field func(rig.Sample) float64

var fields = map[string]Field{
	"t":       func(s rig.Sample) float64 { return s.T },
	"angle":   func(s rig.Sample) float64 { return s.Angle },
	"rate":    func(s rig.Sample) float64 { return s.Rate },
	"command": func(s rig.Sample) float64 { return s.Command },
}

// FieldByName returns the selector for t, angle, rate or command.
func FieldByName(name string) (Field, error) {
	f, ok := fields[name]
	if !ok {
		return nil, fmt.Errorf("unknown sample field: %s", name)
	}
	return f, nil
}

// Series extracts one field from every sample.
func Series(samples []rig.Sample, f Field) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out
}

type Point struct{ X, Y float64 }

// PhasePortrait holds a 2D scatter of two sample fields.
type PhasePortrait struct {
	XLabel, YLabel string
	Points         []Point
}

func NewPhasePortrait(samples []rig.Sample, xName, yName string) (*PhasePortrait, error) {
	fx, err := FieldByName(xName)
	if err != nil {
		return nil, err
	}
	fy, err := FieldByName(yName)
	if err != nil {
		return nil, err
	}
	p := &PhasePortrait{XLabel: xName, YLabel: yName, Points: make([]Point, len(samples))}
	for i, s := range samples {
		p.Points[i] = Point{X: fx(s), Y: fy(s)}
	}
	return p, nil
}

// ASCII draws the portrait on a width x height character grid with axes
// through the origin when it is visible.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := 0; r < height; r++ {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := 0; c < width; c++ {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
			} else {
				canvas[r][c] = '─'
			}
		}
	}
	for _, pt := range p.Points {
		canvas[row(pt.Y)][col(pt.X)] = '•'
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s vs %s  x:[%.3g, %.3g] y:[%.3g, %.3g]\n", p.YLabel, p.XLabel, minX, maxX, minY, maxY)
	for _, r := range canvas {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}
