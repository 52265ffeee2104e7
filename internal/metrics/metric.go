// Package metrics scores loop runs and exports live counters.
package metrics

import "github.com/san-kum/remotelab/internal/rig"

// Metric accumulates one figure of merit over the samples of a run.
type Metric interface {
	Name() string
	Observe(s rig.Sample)
	Value() float64
	Reset()
}

// Defaults returns the metrics recorded for every run. threshold is the rate
// magnitude, in deg/s, below which the platform counts as settled.
func Defaults(threshold float64) []Metric {
	return []Metric{
		NewControlEffort(),
		NewStability(threshold),
		NewMeanRate(),
		NewLoopPeriod(),
	}
}
