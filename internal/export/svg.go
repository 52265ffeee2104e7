// Package export renders recorded runs for use outside the terminal.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/remotelab/internal/rig"
)

type panel struct {
	label  string
	color  string
	value  func(rig.Sample) float64
	lo, hi float64 // fixed bounds when lo < hi
}

var panels = []panel{
	{label: "theta [deg]", color: "#1f77b4", value: func(s rig.Sample) float64 { return s.Angle }},
	{label: "omega [deg/s]", color: "#ff7f0e", value: func(s rig.Sample) float64 { return s.Rate }},
	{label: "u [-1..1]", color: "#2ca02c", value: func(s rig.Sample) float64 { return s.Command }, lo: -1, hi: 1},
}

const margin = 40.0

// RunToSVG draws the angle, rate and command of a run as three stacked line
// charts sharing the time axis.
func RunToSVG(title string, samples []rig.Sample, width, height int) string {
	if len(samples) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	w, h := float64(width), float64(height)
	panelH := (h - margin) / float64(len(panels))
	t0, t1 := samples[0].T, samples[len(samples)-1].T
	if t1 <= t0 {
		t1 = t0 + 1
	}
	plotW := w - 2*margin

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#ffffff"/>
<text x="%.1f" y="20" font-family="monospace" font-size="14" text-anchor="middle">%s</text>
`, width, height, width, height, w/2, escape(title))

	for i, p := range panels {
		top := margin + float64(i)*panelH
		lo, hi := p.lo, p.hi
		if lo >= hi {
			lo, hi = bounds(samples, p.value)
		}
		if hi == lo {
			lo, hi = lo-1, hi+1
		}
		innerH := panelH - 20

		fmt.Fprintf(&sb, `<g>
<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="#cccccc"/>
<text x="%.1f" y="%.1f" font-family="monospace" font-size="11">%s</text>
`, margin, top, plotW, innerH, margin+4, top+12, escape(p.label))

		if lo < 0 && hi > 0 {
			y := top + innerH*(hi/(hi-lo))
			fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#eeeeee"/>
`, margin, y, margin+plotW, y)
		}

		sb.WriteString(`<polyline fill="none" stroke="` + p.color + `" stroke-width="1.2" points="`)
		for j, s := range samples {
			x := margin + (s.T-t0)/(t1-t0)*plotW
			y := top + innerH*(hi-p.value(s))/(hi-lo)
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" font-family="monospace" font-size="10" text-anchor="end">%.3g</text>
<text x="%.1f" y="%.1f" font-family="monospace" font-size="10" text-anchor="end">%.3g</text>
</g>
`, margin-4, top+10, hi, margin-4, top+innerH, lo)
	}

	fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" font-family="monospace" font-size="11" text-anchor="middle">t [s] %.2f .. %.2f</text>
</svg>
`, w/2, h-6, t0, t1)
	return sb.String()
}

func bounds(samples []rig.Sample, value func(rig.Sample) float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		v := value(s)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
