package loop

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/remotelab/internal/metrics"
	"github.com/san-kum/remotelab/internal/rig"
	"github.com/san-kum/remotelab/internal/transport"
)

// DefaultMaxTimeouts is the number of consecutive failed exchanges (timeouts or
// invalid frames) tolerated before the loop gives up.
const DefaultMaxTimeouts = 5

type Observer interface {
	OnSample(s rig.Sample)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s rig.Sample)

func (f ObserverFunc) OnSample(s rig.Sample) { f(s) }

type Config struct {
	MaxIterations int           // 0 means unbounded
	Duration      time.Duration // 0 means unbounded
	MaxTimeouts   int
	KeepSamples   bool
}

func DefaultConfig() Config {
	return Config{
		MaxTimeouts: DefaultMaxTimeouts,
		KeepSamples: true,
	}
}

type Result struct {
	Samples    []rig.Sample
	Metrics    map[string]float64
	Iterations int
	Timeouts   int
	Invalid    int
	Final      rig.State
}

type Loop struct {
	link       transport.Link
	controller rig.Controller
	metrics    []metrics.Metric
	observers  []Observer
	latency    *metrics.Latency
	collectors *metrics.Collectors
	log        *zap.Logger
	now        func() time.Time
}

type Option func(*Loop)

func WithLogger(log *zap.Logger) Option { return func(l *Loop) { l.log = log } }

// WithClock replaces time.Now, for deterministic sample times.
func WithClock(now func() time.Time) Option { return func(l *Loop) { l.now = now } }

// WithCollectors feeds timeouts, invalid frames and round trips to Prometheus.
func WithCollectors(c *metrics.Collectors) Option {
	return func(l *Loop) {
		l.collectors = c
		l.observers = append(l.observers, c)
	}
}

func New(link transport.Link, controller rig.Controller, opts ...Option) *Loop {
	l := &Loop{
		link:       link,
		controller: controller,
		metrics:    make([]metrics.Metric, 0),
		observers:  make([]Observer, 0),
		latency:    metrics.NewLatency(),
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) AddMetric(m metrics.Metric) { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o Observer)     { l.observers = append(l.observers, o) }

// Latency exposes the round-trip histogram of the last run.
func (l *Loop) Latency() *metrics.Latency { return l.latency }

// Run drives the rig until ctx is done or a configured bound is reached.
// Context cancellation is a normal stop and returns the partial result with a
// nil error.
func (l *Loop) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxTimeouts == 0 {
		cfg.MaxTimeouts = DefaultMaxTimeouts
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	result := &Result{Metrics: make(map[string]float64)}
	if cfg.KeepSamples && cfg.MaxIterations > 0 {
		result.Samples = make([]rig.Sample, 0, cfg.MaxIterations)
	}
	for _, m := range l.metrics {
		m.Reset()
	}
	l.latency.Reset()

	var state rig.State
	start := l.now()
	consecutive := 0

	for cfg.MaxIterations == 0 || result.Iterations < cfg.MaxIterations {
		if ctx.Err() != nil {
			break
		}
		t := l.now().Sub(start).Seconds()

		u := l.controller.Compute(state, t)
		if math.IsNaN(u) || math.IsInf(u, 0) {
			l.log.Warn("non-finite command replaced by zero", zap.Float64("t", t), zap.Float64("rate", state.Rate))
			u = 0
		}

		sent := l.now()
		if err := l.link.Send(ctx, u); err != nil {
			if ctx.Err() != nil || isContextErr(err) {
				break
			}
			l.finish(result, state)
			return result, &rig.LoopError{Iteration: result.Iterations, Time: t, Wrapped: err}
		}

		frame, err := l.link.Receive(ctx)
		switch {
		case err == nil:
			consecutive = 0
		case ctx.Err() != nil, isContextErr(err):
			l.finish(result, state)
			return result, nil
		case errors.Is(err, rig.ErrLinkTimeout):
			result.Timeouts++
			consecutive++
			if l.collectors != nil {
				l.collectors.Timeouts.Inc()
			}
			l.log.Warn("rig did not answer", zap.Int("consecutive", consecutive))
			if consecutive >= cfg.MaxTimeouts {
				l.finish(result, state)
				return result, &rig.LoopError{Iteration: result.Iterations, Time: t, Wrapped: err}
			}
			continue
		case errors.Is(err, rig.ErrInvalidFrame):
			result.Invalid++
			if l.collectors != nil {
				l.collectors.Invalid.Inc()
			}
			consecutive++
			l.log.Debug("dropping sensor frame", zap.Error(err))
			if consecutive >= cfg.MaxTimeouts {
				l.finish(result, state)
				return result, &rig.LoopError{Iteration: result.Iterations, Time: t, Wrapped: err}
			}
			continue
		default:
			l.finish(result, state)
			return result, &rig.LoopError{Iteration: result.Iterations, Time: t, Wrapped: err}
		}

		rtt := l.now().Sub(sent)
		l.latency.Record(rtt)
		if l.collectors != nil {
			l.collectors.RoundTrip.Observe(rtt.Seconds())
		}

		state = rig.ToBody(frame).State()
		sample := rig.Sample{T: t, Angle: state.Angle, Rate: state.Rate, Command: u}

		for _, m := range l.metrics {
			m.Observe(sample)
		}
		for _, obs := range l.observers {
			obs.OnSample(sample)
		}
		if cfg.KeepSamples {
			result.Samples = append(result.Samples, sample)
		}
		result.Iterations++
	}

	l.finish(result, state)
	return result, nil
}

func (l *Loop) finish(result *Result, state rig.State) {
	result.Final = state
	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	for k, v := range l.latency.Summary() {
		result.Metrics[k] = v
	}
	l.log.Info("loop stopped",
		zap.Int("iterations", result.Iterations),
		zap.Int("timeouts", result.Timeouts),
		zap.Int("invalid", result.Invalid))
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func validateConfig(cfg Config) error {
	if cfg.MaxIterations < 0 {
		return fmt.Errorf("max iterations must not be negative, got %d", cfg.MaxIterations)
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %v", cfg.Duration)
	}
	if cfg.MaxTimeouts < 0 {
		return fmt.Errorf("max timeouts must not be negative, got %d", cfg.MaxTimeouts)
	}
	return nil
}
