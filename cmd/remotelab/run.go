package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/remotelab/internal/config"
	"github.com/san-kum/remotelab/internal/control"
	"github.com/san-kum/remotelab/internal/logbase"
	"github.com/san-kum/remotelab/internal/loop"
	"github.com/san-kum/remotelab/internal/metrics"
	"github.com/san-kum/remotelab/internal/plant"
	"github.com/san-kum/remotelab/internal/rig"
	"github.com/san-kum/remotelab/internal/storage"
	"github.com/san-kum/remotelab/internal/telemetry"
	"github.com/san-kum/remotelab/internal/transport"
	"github.com/san-kum/remotelab/internal/viz"
)

const defaultSimulateTime = 20.0

func runRig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logbase.Logger()

	link, err := transport.Dial(cfg.TransportConfig(), log.Named("link"))
	if err != nil {
		return err
	}
	defer link.Close()

	lc := loop.Config{
		MaxIterations: cfg.Loop.MaxIterations,
		Duration:      time.Duration(cfg.Loop.Duration * float64(time.Second)),
		MaxTimeouts:   cfg.Loop.MaxTimeouts,
		KeepSamples:   cfg.Loop.Record,
	}
	return drive(cmd.Context(), cfg, link, "rig", lc, !noPlot)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logbase.Logger()

	emu, err := cfg.Plant.NewEmulator(log.Named("emulator"))
	if err != nil {
		return err
	}

	seconds := cfg.Loop.Duration
	if seconds == 0 && cfg.Loop.MaxIterations == 0 {
		seconds = defaultSimulateTime
	}
	lc := loop.Config{
		MaxIterations: cfg.Loop.MaxIterations,
		MaxTimeouts:   cfg.Loop.MaxTimeouts,
		KeepSamples:   cfg.Loop.Record,
	}
	if seconds > 0 {
		steps := int(math.Ceil(seconds / cfg.Plant.Dt))
		if lc.MaxIterations == 0 || steps < lc.MaxIterations {
			lc.MaxIterations = steps
		}
	}

	var link transport.Link = emu
	if realtime || !noPlot {
		link = newPacedLink(emu, time.Duration(cfg.Plant.Dt*float64(time.Second)))
	}

	epoch := time.Unix(0, 0)
	clock := func() time.Time { return epoch.Add(time.Duration(emu.Time() * float64(time.Second))) }
	return drive(cmd.Context(), cfg, link, "emulator", lc, !noPlot, loop.WithClock(clock))
}

func runEmulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logbase.Logger()

	emu, err := cfg.Plant.NewEmulator(log.Named("emulator"))
	if err != nil {
		return err
	}
	conn, err := plant.Listen(listenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listenAddr, err)
	}
	defer conn.Close()

	fmt.Printf("emulated rig on %s (gain %.1f, damping %.3f, dt %.3fs), ctrl+c to stop\n",
		conn.LocalAddr(), cfg.Plant.Gain, cfg.Plant.Damping, cfg.Plant.Dt)
	return emu.Serve(cmd.Context(), conn)
}

// drive runs the loop against link with the configured controller, observers
// and outputs, then saves and summarises the run.
func drive(ctx context.Context, cfg *config.Config, link transport.Link, source string, lc loop.Config, plot bool, opts ...loop.Option) error {
	log := logbase.Logger()

	registry := control.NewRegistryWithTuning(cfg.Fuzzy)
	inner, err := registry.Get(cfg.Controller, cfg.ControllerParams)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, registry.List())
	}
	ctrl := control.NewLocked(inner)

	loopLog := log.Named("loop")
	if plot && !cfg.Verbose {
		loopLog = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(reg)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, log); err != nil {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	opts = append([]loop.Option{loop.WithLogger(loopLog), loop.WithCollectors(collectors)}, opts...)
	l := loop.New(link, ctrl, opts...)
	for _, m := range metrics.Defaults(settleLimit) {
		l.AddMetric(m)
	}

	if cfg.Telemetry.Enabled() {
		pub, err := telemetry.Connect(cfg.Telemetry, log.Named("telemetry"))
		if err != nil {
			return err
		}
		defer pub.Close()
		l.AddObserver(pub)
	}

	var (
		result  *loop.Result
		loopErr error
	)
	if plot {
		result, loopErr = runWithPlot(ctx, cfg, l, ctrl, lc)
	} else {
		result, loopErr = l.Run(ctx, lc)
	}
	if result == nil {
		return loopErr
	}

	printSummary(result, l.Latency())

	if cfg.Loop.Record && len(result.Samples) > 0 {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		meta := storage.RunMetadata{
			Source:     source,
			Controller: cfg.Controller,
			Params:     ctrl.GetParams(),
			Iterations: result.Iterations,
			Timeouts:   result.Timeouts,
			Metrics:    result.Metrics,
		}
		runID, err := st.Save(meta, result.Samples)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Printf("saved run %s\n", runID)
	}
	return loopErr
}

// runWithPlot runs the loop in the background and the live view in the
// foreground. Quitting the view stops the loop.
func runWithPlot(parent context.Context, cfg *config.Config, l *loop.Loop, ctrl rig.Controller, lc loop.Config) (*loop.Result, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	model := viz.NewLiveModel(cfg.Controller, cfg.Plot.MaxPoints, ctrl, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(parent))
	l.AddObserver(loop.ObserverFunc(func(s rig.Sample) { p.Send(viz.SampleMsg(s)) }))

	type outcome struct {
		result *loop.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := l.Run(ctx, lc)
		done <- outcome{res, err}
		p.Send(viz.DoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logbase.Logger().Error("live view", zap.Error(err))
	}
	cancel()
	out := <-done
	return out.result, out.err
}

func printSummary(result *loop.Result, latency *metrics.Latency) {
	fmt.Printf("iterations: %d  timeouts: %d  invalid frames: %d\n", result.Iterations, result.Timeouts, result.Invalid)
	fmt.Printf("final state: angle %.2f deg, rate %.3f deg/s\n", result.Final.Angle, result.Final.Rate)
	if latency.Count() > 0 {
		fmt.Printf("round trip: mean %v  p99 %v\n", latency.Mean(), latency.Quantile(99))
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%.4f\n", name, result.Metrics[name])
	}
	_ = w.Flush()
}

// pacedLink holds each Send until one period has passed since the previous
// one, so the emulator runs at wall-clock speed.
type pacedLink struct {
	transport.Link
	period time.Duration
	next   time.Time
}

func newPacedLink(inner transport.Link, period time.Duration) *pacedLink {
	return &pacedLink{Link: inner, period: period}
}

func (p *pacedLink) Send(ctx context.Context, u float64) error {
	now := time.Now()
	if p.next.IsZero() {
		p.next = now
	}
	if wait := p.next.Sub(now); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	p.next = p.next.Add(p.period)
	if now.Sub(p.next) > p.period {
		p.next = now.Add(p.period)
	}
	return p.Link.Send(ctx, u)
}
