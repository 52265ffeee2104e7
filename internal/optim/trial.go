// Package optim tunes controllers against the emulated rig.
package optim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/remotelab/internal/config"
	"github.com/san-kum/remotelab/internal/control"
	"github.com/san-kum/remotelab/internal/fuzzy"
	"github.com/san-kum/remotelab/internal/loop"
	"github.com/san-kum/remotelab/internal/metrics"
)

// Trial is one closed-loop simulation of a controller against the emulator.
type Trial struct {
	Controller string
	Params     map[string]float64
	Tuning     fuzzy.Tuning
	Plant      config.PlantConfig
	Duration   float64 // seconds of emulated time
	Settle     float64 // rate threshold of the stability metric, deg/s
	Keep       bool    // keep samples in the result
}

// DefaultTrial runs the fuzzy controller on the default plant for 20 s.
func DefaultTrial() Trial {
	cfg := config.DefaultConfig()
	return Trial{
		Controller: cfg.Controller,
		Tuning:     cfg.Fuzzy,
		Plant:      cfg.Plant,
		Duration:   20,
		Settle:     1,
	}
}

// With returns a copy of tr whose params are overlaid with extra.
func (tr Trial) With(extra map[string]float64) Trial {
	merged := make(map[string]float64, len(tr.Params)+len(extra))
	for k, v := range tr.Params {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	tr.Params = merged
	return tr
}

// Run simulates the trial with emulated time as the loop clock, so the result
// does not depend on how fast the host is.
func (tr Trial) Run(ctx context.Context) (*loop.Result, error) {
	if tr.Duration <= 0 {
		return nil, fmt.Errorf("trial duration must be positive, got %g", tr.Duration)
	}
	if !(tr.Plant.Dt > 0) {
		return nil, fmt.Errorf("plant dt must be positive, got %g", tr.Plant.Dt)
	}
	emu, err := tr.Plant.NewEmulator(nil)
	if err != nil {
		return nil, err
	}
	ctrl, err := control.NewRegistryWithTuning(tr.Tuning).Get(tr.Controller, tr.Params)
	if err != nil {
		return nil, err
	}

	epoch := time.Unix(0, 0)
	clock := func() time.Time { return epoch.Add(time.Duration(emu.Time() * float64(time.Second))) }
	l := loop.New(emu, ctrl, loop.WithClock(clock))
	for _, m := range metrics.Defaults(tr.Settle) {
		l.AddMetric(m)
	}

	steps := int(math.Ceil(tr.Duration / tr.Plant.Dt))
	return l.Run(ctx, loop.Config{MaxIterations: steps, KeepSamples: tr.Keep})
}
