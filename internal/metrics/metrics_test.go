package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/remotelab/internal/rig"
)

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	if m.Value() != 0 {
		t.Error("expected zero effort with no samples")
	}
	m.Observe(rig.Sample{Command: -0.5})
	m.Observe(rig.Sample{Command: 0.25})
	if got := m.Value(); math.Abs(got-0.375) > 1e-12 {
		t.Errorf("expected 0.375, got %f", got)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero effort after reset")
	}
}

func TestStability(t *testing.T) {
	m := NewStability(3)
	for _, r := range []float64{10, -5, 2, -1} {
		m.Observe(rig.Sample{Rate: r})
	}
	if got := m.Value(); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestMeanRateAndPeriod(t *testing.T) {
	rate := NewMeanRate()
	period := NewLoopPeriod()
	for i, r := range []float64{4, -2, 0} {
		s := rig.Sample{T: float64(i) * 0.02, Rate: r}
		rate.Observe(s)
		period.Observe(s)
	}
	if got := rate.Value(); got != 2 {
		t.Errorf("mean rate = %v, want 2", got)
	}
	if got := period.Value(); math.Abs(got-0.02) > 1e-12 {
		t.Errorf("loop period = %v, want 0.02", got)
	}
}

func TestDefaultsNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Defaults(3) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected 4 metrics, got %d", len(seen))
	}
}

func TestLatency(t *testing.T) {
	l := NewLatency()
	if len(l.Summary()) != 0 {
		t.Error("empty histogram should have an empty summary")
	}
	for i := 1; i <= 100; i++ {
		l.Record(time.Duration(i) * time.Millisecond)
	}
	if l.Count() != 100 {
		t.Errorf("count = %d", l.Count())
	}
	p50 := l.Quantile(50)
	if p50 < 49*time.Millisecond || p50 > 51*time.Millisecond {
		t.Errorf("p50 = %v", p50)
	}
	s := l.Summary()
	if s["rtt_max_ms"] < 99 || s["rtt_max_ms"] > 101 {
		t.Errorf("max = %v", s["rtt_max_ms"])
	}
}

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.OnSample(rig.Sample{Angle: 15, Rate: -2, Command: 0.3})
	c.OnSample(rig.Sample{Angle: 16, Rate: -1, Command: 0.2})
	c.Timeouts.Inc()

	if got := testutil.ToFloat64(c.Iterations); got != 2 {
		t.Errorf("iterations = %v", got)
	}
	if got := testutil.ToFloat64(c.Command); got != 0.2 {
		t.Errorf("command gauge = %v", got)
	}
	if got := testutil.ToFloat64(c.Timeouts); got != 1 {
		t.Errorf("timeouts = %v", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 7 {
		t.Errorf("gathered %d metrics, err %v", n, err)
	}
}

func TestLatencyClampsLongRoundTrips(t *testing.T) {
	l := NewLatency()
	l.Record(time.Minute)
	l.Record(2 * time.Millisecond)
	if n := l.Count(); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if got := l.Quantile(100); got < 9*time.Second || got > 11*time.Second {
		t.Errorf("max = %v, want about 10s", got)
	}
}
