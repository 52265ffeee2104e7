// Package automation runs batches of emulated trials: scripted scenarios and
// Monte Carlo robustness checks.
package automation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/remotelab/internal/config"
	"github.com/san-kum/remotelab/internal/loop"
	"github.com/san-kum/remotelab/internal/optim"
)

// Scenario defines a scripted sequence of simulations.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one simulation. Empty fields keep the base trial's value.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Controller string             `yaml:"controller"`
	Params     map[string]float64 `yaml:"params"`
	Preset     string             `yaml:"preset"`
	Duration   float64            `yaml:"duration"`
	InitAngle  *float64           `yaml:"init_angle"`
	InitRate   *float64           `yaml:"init_rate"`
	Save       bool               `yaml:"save"`
}

type StepResult struct {
	Step   ScenarioStep
	Result *loop.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// Trial resolves the step against base.
func (s ScenarioStep) Trial(base optim.Trial) (optim.Trial, error) {
	tr := base
	if s.Preset != "" {
		p, ok := config.GetPreset(s.Preset)
		if !ok {
			return tr, fmt.Errorf("unknown preset: %s", s.Preset)
		}
		tr.Plant = p
	}
	if s.Controller != "" {
		tr.Controller = s.Controller
		tr.Params = nil
	}
	if len(s.Params) > 0 {
		tr = tr.With(s.Params)
	}
	if s.Duration > 0 {
		tr.Duration = s.Duration
	}
	if s.InitAngle != nil {
		tr.Plant.InitAngle = *s.InitAngle
	}
	if s.InitRate != nil {
		tr.Plant.InitRate = *s.InitRate
	}
	tr.Keep = tr.Keep || s.Save
	return tr, nil
}

// RunScenario executes the steps in order and stops at the first failure,
// returning the results gathered so far.
func RunScenario(ctx context.Context, scenario *Scenario, base optim.Trial, log *zap.Logger) ([]StepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		tr, err := step.Trial(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log.Info("running step",
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("name", step.Name),
			zap.String("controller", tr.Controller))

		res, err := tr.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Step: step, Result: res})
	}
	return results, nil
}

// MonteCarloConfig perturbs the initial state of Base uniformly by up to
// AngleSpread and RateSpread.
type MonteCarloConfig struct {
	Base        optim.Trial
	AngleSpread float64
	RateSpread  float64
	NumTrials   int
	Seed        int64
	Workers     int
}

type MonteCarloResult struct {
	TrialID   int
	InitAngle float64
	InitRate  float64
	FinalRate float64
	Settled   bool // final |rate| below the trial's settle threshold
	Metrics   map[string]float64
}

// RunMonteCarlo runs the trials in parallel. Initial states are drawn up
// front, so results depend only on the seed.
func RunMonteCarlo(ctx context.Context, cfg MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, fmt.Errorf("monte carlo needs at least one trial, got %d", cfg.NumTrials)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	results := make([]MonteCarloResult, cfg.NumTrials)
	for i := range results {
		results[i] = MonteCarloResult{
			TrialID:   i,
			InitAngle: cfg.Base.Plant.InitAngle + (rng.Float64()-0.5)*2*cfg.AngleSpread,
			InitRate:  cfg.Base.Plant.InitRate + (rng.Float64()-0.5)*2*cfg.RateSpread,
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		eg.SetLimit(cfg.Workers)
	}
	for i := range results {
		i := i
		eg.Go(func() error {
			tr := cfg.Base
			tr.Keep = false
			tr.Plant.InitAngle = results[i].InitAngle
			tr.Plant.InitRate = results[i].InitRate
			res, err := tr.Run(ctx)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			results[i].FinalRate = res.Final.Rate
			results[i].Settled = math.Abs(res.Final.Rate) < cfg.Base.Settle
			results[i].Metrics = res.Metrics
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloStats counts settled and unsettled trials.
func MonteCarloStats(results []MonteCarloResult) (settled int, unsettled int) {
	for _, r := range results {
		if r.Settled {
			settled++
		} else {
			unsettled++
		}
	}
	return
}
