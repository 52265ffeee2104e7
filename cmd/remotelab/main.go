package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/remotelab/internal/config"
	"github.com/san-kum/remotelab/internal/logbase"
)

var (
	configFile  string
	dataDir     string
	verbose     bool
	metricsAddr string

	hostIP      string
	hostPort    int
	bindPort    int
	timeout     float64
	controller  string
	params      map[string]string
	duration    float64
	iterations  int
	noPlot      bool
	noRecord    bool
	mqttBroker  string
	mqttTopic   string
	preset      string
	initAngle   float64
	initRate    float64
	rateNoise   float64
	realtime    bool
	listenAddr  string
	outputFile  string
	surfaceMax  float64
	surfacePts  int
	phaseX      string
	phaseY      string
	maxPoints   int
	integrator  string
	settleLimit float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "remotelab",
		Short:         "ground station for the rotating attitude testbed",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logbase.New(verbose)
			if err != nil {
				return err
			}
			logbase.SetLogger(log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logbase.Logger().Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "run data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "drive the rig over UDP",
		Args:  cobra.NoArgs,
		RunE:  runRig,
	}
	runCmd.Flags().StringVar(&hostIP, "host", "", "rig address (default $HOST_IP)")
	runCmd.Flags().IntVar(&hostPort, "host-port", 6503, "rig UDP port")
	runCmd.Flags().IntVar(&bindPort, "bind-port", 6501, "local UDP port")
	runCmd.Flags().Float64Var(&timeout, "timeout", 1.0, "receive timeout in seconds")
	addLoopFlags(runCmd)
	runCmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "publish samples to this MQTT broker")
	runCmd.Flags().StringVar(&mqttTopic, "mqtt-topic", "", "MQTT topic for samples")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "close the loop around the in-process emulator",
		Args:  cobra.NoArgs,
		RunE:  runSimulate,
	}
	addLoopFlags(simulateCmd)
	addPlantFlags(simulateCmd)
	simulateCmd.Flags().BoolVar(&realtime, "realtime", false, "pace iterations at the plant dt (always on with the live plot)")

	emulateCmd := &cobra.Command{
		Use:   "emulate",
		Short: "serve the emulated rig on UDP",
		Args:  cobra.NoArgs,
		RunE:  runEmulate,
	}
	emulateCmd.Flags().StringVar(&listenAddr, "listen", ":6503", "UDP listen address")
	addPlantFlags(emulateCmd)

	evalCmd := &cobra.Command{
		Use:   "eval [rate...]",
		Short: "trace the fuzzy controller at the given rates",
		Args:  cobra.MinimumNArgs(1),
		RunE:  evalRates,
	}

	surfaceCmd := &cobra.Command{
		Use:   "surface",
		Short: "plot the fuzzy command against rate",
		Args:  cobra.NoArgs,
		RunE:  plotSurface,
	}
	surfaceCmd.Flags().Float64Var(&surfaceMax, "max", 30, "largest |rate| in deg/s")
	surfaceCmd.Flags().IntVar(&surfacePts, "points", 121, "number of rates evaluated")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum and phase portrait of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&phaseX, "x", "rate", "phase portrait x field (t, angle, rate, command)")
	analyzeCmd.Flags().StringVar(&phaseY, "y", "command", "phase portrait y field")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list plant presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a run as an SVG chart",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 900, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search controller parameters against the emulator",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addTrialFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "parameter grid, name=v1,v2,... or name=lo:hi:n (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "mean_rate", "run metric to optimise")
	tuneCmd.Flags().BoolVar(&maximize, "maximize", false, "maximise the metric instead of minimising")
	tuneCmd.Flags().IntVar(&topN, "top", 10, "rows to print")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of emulated trials",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addTrialFlags(scenarioCmd)

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "check that the controller settles from randomised starts",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addTrialFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&numTrials, "trials", 50, "number of trials")
	monteCarloCmd.Flags().Float64Var(&angleSpread, "angle-spread", 180, "initial angle spread in deg")
	monteCarloCmd.Flags().Float64Var(&rateSpread, "rate-spread", 40, "initial rate spread in deg/s")
	monteCarloCmd.Flags().Int64Var(&mcSeed, "seed", 1, "random seed")

	rootCmd.AddCommand(runCmd, simulateCmd, emulateCmd, evalCmd, surfaceCmd, listCmd, plotCmd,
		analyzeCmd, exportCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, presetsCmd,
		tuneCmd, scenarioCmd, monteCarloCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func addLoopFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&controller, "controller", config.DefaultController, "controller (fuzzy, pid, manual, none)")
	cmd.Flags().StringToStringVar(&params, "param", nil, "controller parameter, e.g. --param kp=0.05")
	cmd.Flags().Float64Var(&duration, "time", 0, "run duration in seconds (0 runs until stopped)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "stop after this many samples")
	cmd.Flags().BoolVar(&noPlot, "no-plot", false, "disable the live plot")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "do not save the run")
	cmd.Flags().IntVar(&maxPoints, "points", config.DefaultMaxPoints, "samples shown by the live plot")
	cmd.Flags().Float64Var(&settleLimit, "settle", 1.0, "rate in deg/s below which the platform counts as settled")
}

func addPlantFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "plant preset (see presets)")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (rk4, euler)")
	cmd.Flags().Float64Var(&initAngle, "init-angle", 0, "initial angle in deg")
	cmd.Flags().Float64Var(&initRate, "init-rate", 40, "initial rate in deg/s")
	cmd.Flags().Float64Var(&rateNoise, "noise", 0, "gyro noise standard deviation in deg/s")
}

// loadConfig reads the config file, applies the preset and lets explicitly
// set flags win over both.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	if changed("preset") {
		if err := cfg.ApplyPreset(preset); err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, config.ListPresets())
		}
	}
	if changed("data") || configFile == "" {
		cfg.DataDir = dataDir
	}
	if changed("verbose") {
		cfg.Verbose = verbose
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if changed("host") {
		cfg.Link.HostIP = hostIP
	}
	if changed("host-port") {
		cfg.Link.HostPort = hostPort
	}
	if changed("bind-port") {
		cfg.Link.BindPort = bindPort
	}
	if changed("timeout") {
		cfg.Link.Timeout = timeout
	}
	if changed("controller") {
		cfg.Controller = controller
		cfg.ControllerParams = nil
	}
	if changed("param") {
		parsed, err := parseParams(params)
		if err != nil {
			return nil, err
		}
		if cfg.ControllerParams == nil {
			cfg.ControllerParams = make(map[string]float64, len(parsed))
		}
		for k, v := range parsed {
			cfg.ControllerParams[k] = v
		}
	}
	if changed("time") {
		cfg.Loop.Duration = duration
	}
	if changed("iterations") {
		cfg.Loop.MaxIterations = iterations
	}
	if changed("no-record") {
		cfg.Loop.Record = !noRecord
	}
	if changed("points") {
		cfg.Plot.MaxPoints = maxPoints
	}
	if changed("mqtt-broker") {
		cfg.Telemetry.Broker = mqttBroker
	}
	if changed("mqtt-topic") {
		cfg.Telemetry.Topic = mqttTopic
	}
	if changed("integrator") {
		cfg.Plant.Integrator = integrator
	}
	if changed("init-angle") {
		cfg.Plant.InitAngle = initAngle
	}
	if changed("init-rate") {
		cfg.Plant.InitRate = initRate
	}
	if changed("noise") {
		cfg.Plant.RateNoise = rateNoise
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}
