package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/remotelab/internal/automation"
	"github.com/san-kum/remotelab/internal/config"
	"github.com/san-kum/remotelab/internal/export"
	"github.com/san-kum/remotelab/internal/logbase"
	"github.com/san-kum/remotelab/internal/optim"
	"github.com/san-kum/remotelab/internal/storage"
)

var (
	gridSpecs   []string
	metricName  string
	maximize    bool
	topN        int
	workers     int
	numTrials   int
	angleSpread float64
	rateSpread  float64
	mcSeed      int64
	svgWidth    int
	svgHeight   int
)

func addTrialFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&controller, "controller", config.DefaultController, "controller (fuzzy, pid, manual, none)")
	cmd.Flags().StringToStringVar(&params, "param", nil, "controller parameter, e.g. --param kp=0.05")
	cmd.Flags().Float64Var(&duration, "time", 0, "emulated seconds per trial (default 20)")
	cmd.Flags().Float64Var(&settleLimit, "settle", 1.0, "rate in deg/s below which the platform counts as settled")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel trials (default GOMAXPROCS)")
	addPlantFlags(cmd)
}

func baseTrial(cfg *config.Config) optim.Trial {
	tr := optim.DefaultTrial()
	tr.Controller = cfg.Controller
	tr.Params = cfg.ControllerParams
	tr.Tuning = cfg.Fuzzy
	tr.Plant = cfg.Plant
	if cfg.Loop.Duration > 0 {
		tr.Duration = cfg.Loop.Duration
	}
	tr.Settle = settleLimit
	return tr
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(gridSpecs)
	if err != nil {
		return err
	}

	gs := optim.NewGridSearch(names, ranges)
	gs.SetWorkers(workers)
	logbase.Logger().Info("grid search", zap.Strings("params", names), zap.Int("points", len(gs.Points())))

	points, err := gs.Search(cmd.Context(), optim.MetricObjective(baseTrial(cfg), metricName, maximize))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\t%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metricName))
	for i, p := range points {
		if i >= topN {
			break
		}
		vals := make([]string, len(names))
		for j, n := range names {
			vals[j] = strconv.FormatFloat(p.Params[n], 'g', 4, 64)
		}
		score := fmt.Sprintf("%.4f", p.Score)
		if maximize {
			score = fmt.Sprintf("%.4f", -p.Score)
		}
		if p.Err != nil {
			score = "failed: " + p.Err.Error()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, strings.Join(vals, "\t"), score)
	}
	return w.Flush()
}

// parseGrid reads name=v1,v2,... or name=lo:hi:n specs, sorted by name.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	if len(specs) == 0 {
		return nil, nil, fmt.Errorf("no --grid given")
	}
	sorted := append([]string(nil), specs...)
	sort.Strings(sorted)

	names := make([]string, 0, len(sorted))
	ranges := make([][]float64, 0, len(sorted))
	for _, entry := range sorted {
		name, list, ok := strings.Cut(entry, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("invalid grid %q, want name=v1,v2 or name=lo:hi:n", entry)
		}
		var vals []float64
		if parts := strings.Split(list, ":"); len(parts) == 3 {
			lo, err1 := strconv.ParseFloat(parts[0], 64)
			hi, err2 := strconv.ParseFloat(parts[1], 64)
			n, err3 := strconv.Atoi(parts[2])
			if err1 != nil || err2 != nil || err3 != nil || n < 2 {
				return nil, nil, fmt.Errorf("invalid grid range %q", entry)
			}
			for i := 0; i < n; i++ {
				vals = append(vals, lo+(hi-lo)*float64(i)/float64(n-1))
			}
		} else {
			for _, field := range strings.Split(list, ",") {
				v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
				if err != nil {
					return nil, nil, fmt.Errorf("grid %s: %w", name, err)
				}
				vals = append(vals, v)
			}
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Printf("%s\n", sc.Description)
	}

	results, runErr := automation.RunScenario(cmd.Context(), sc, baseTrial(cfg), logbase.Logger())

	st := storage.New(cfg.DataDir)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tITER\tFINAL RATE\tSTABILITY\tEFFORT\tRUN")
	for i, r := range results {
		runID := "-"
		if r.Step.Save {
			tr, _ := r.Step.Trial(baseTrial(cfg))
			meta := storage.RunMetadata{
				Source:     "scenario",
				Controller: tr.Controller,
				Params:     tr.Params,
				Iterations: r.Result.Iterations,
				Metrics:    r.Result.Metrics,
			}
			if runID, err = st.Save(meta, r.Result.Samples); err != nil {
				return fmt.Errorf("save step %d: %w", i+1, err)
			}
		}
		name := r.Step.Name
		if name == "" {
			name = strconv.Itoa(i + 1)
		}
		fmt.Fprintf(w, "%s\t%d\t%+.3f\t%.3f\t%.3f\t%s\n", name, r.Result.Iterations, r.Result.Final.Rate,
			r.Result.Metrics["stability"], r.Result.Metrics["control_effort"], runID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	results, err := automation.RunMonteCarlo(cmd.Context(), automation.MonteCarloConfig{
		Base:        baseTrial(cfg),
		AngleSpread: angleSpread,
		RateSpread:  rateSpread,
		NumTrials:   numTrials,
		Seed:        mcSeed,
		Workers:     workers,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tINIT ANGLE\tINIT RATE\tFINAL RATE\tSETTLED")
	for _, r := range results {
		if !verbose && r.Settled {
			continue
		}
		fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%+.3f\t%v\n", r.TrialID, r.InitAngle, r.InitRate, r.FinalRate, r.Settled)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	settled, unsettled := automation.MonteCarloStats(results)
	fmt.Printf("settled %d/%d (%d unsettled)\n", settled, len(results), unsettled)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to export")
	}
	title := fmt.Sprintf("%s (%s, %s)", meta.ID, meta.Controller, meta.Source)
	return withOutput(func(w io.Writer) error {
		_, err := io.WriteString(w, export.RunToSVG(title, samples, svgWidth, svgHeight))
		return err
	})
}
