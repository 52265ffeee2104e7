package export

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/san-kum/remotelab/internal/rig"
)

func TestRunToSVG(t *testing.T) {
	samples := []rig.Sample{
		{T: 0, Angle: 10, Rate: 40, Command: -0.9},
		{T: 0.05, Angle: 12, Rate: 20, Command: -0.5},
		{T: 0.10, Angle: 13, Rate: 0, Command: 0},
	}
	svg := RunToSVG("run <1> & co", samples, 640, 480)

	if got := strings.Count(svg, "<polyline"); got != 3 {
		t.Errorf("expected 3 polylines, got %d", got)
	}
	if !strings.Contains(svg, "run &lt;1&gt; &amp; co") {
		t.Error("title should be escaped")
	}
	if !strings.Contains(svg, `points="40.0,`) {
		t.Error("first point should sit on the left margin")
	}

	dec := xml.NewDecoder(strings.NewReader(svg))
	for {
		_, err := dec.Token()
		if err != nil {
			if err != io.EOF {
				t.Fatalf("svg is not well formed: %v", err)
			}
			break
		}
	}
}

func TestRunToSVGEmpty(t *testing.T) {
	if RunToSVG("x", nil, 640, 480) != "" {
		t.Error("no samples should give no document")
	}
	if RunToSVG("x", []rig.Sample{{}}, 0, 480) != "" {
		t.Error("zero width should give no document")
	}
}

func TestRunToSVGFlatSeries(t *testing.T) {
	svg := RunToSVG("flat", []rig.Sample{{T: 1}}, 300, 200)
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Errorf("flat single-sample run produced non-finite coordinates:\n%s", svg)
	}
}
