package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latency records send-to-receive round trips with microsecond resolution up
// to ten seconds. Longer round trips are recorded as ten seconds.
type Latency struct {
	hist *hdrhistogram.Histogram
}

func NewLatency() *Latency {
	return &Latency{hist: hdrhistogram.New(1, 10_000_000, 3)}
}

func (l *Latency) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if limit := l.hist.HighestTrackableValue(); us > limit {
		us = limit
	}
	_ = l.hist.RecordValue(us)
}

func (l *Latency) Count() int64 { return l.hist.TotalCount() }

// Quantile returns the q-th percentile (0..100) round trip.
func (l *Latency) Quantile(q float64) time.Duration {
	return time.Duration(l.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (l *Latency) Mean() time.Duration {
	return time.Duration(l.hist.Mean() * float64(time.Microsecond))
}

// Summary returns p50, p99 and max round trips in milliseconds, keyed for run metadata.
func (l *Latency) Summary() map[string]float64 {
	if l.hist.TotalCount() == 0 {
		return map[string]float64{}
	}
	ms := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
	return map[string]float64{
		"rtt_p50_ms": ms(l.Quantile(50)),
		"rtt_p99_ms": ms(l.Quantile(99)),
		"rtt_max_ms": ms(time.Duration(l.hist.Max()) * time.Microsecond),
	}
}

func (l *Latency) Reset() { l.hist.Reset() }
