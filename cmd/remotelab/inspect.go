package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/remotelab/internal/fuzzy"
)

func evalRates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctrl := fuzzy.New(cfg.Fuzzy)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RATE\tNEEDED\tLARGE\tR1\tR2\tR3\tCENTROID\tCOMMAND")
	for _, arg := range args {
		rate, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid rate %q: %w", arg, err)
		}
		inf := ctrl.Infer(rate)
		centroid := fmt.Sprintf("%.6f", inf.Centroid)
		if err := inf.Err(); err != nil {
			centroid = "degenerate"
		}
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%s\t%+.6f\n",
			rate, inf.Needed, inf.Large,
			inf.Antecedents[0], inf.Antecedents[1], inf.Antecedents[2],
			centroid, ctrl.Evaluate(0, rate, 0))
	}
	return w.Flush()
}

func plotSurface(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if surfaceMax <= 0 || surfacePts < 2 {
		return fmt.Errorf("need a positive --max and at least 2 --points")
	}
	rates, commands := commandSurface(fuzzy.New(cfg.Fuzzy), surfaceMax, surfacePts)

	graph := asciigraph.Plot(commands,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.LowerBound(-1),
		asciigraph.UpperBound(1),
		asciigraph.Caption(fmt.Sprintf("u vs rate, %.1f .. %.1f deg/s", rates[0], rates[len(rates)-1])),
	)
	fmt.Println(graph)
	return nil
}

// commandSurface evaluates ctrl on n rates spread evenly over [-limit, limit].
func commandSurface(ctrl *fuzzy.Controller, limit float64, n int) ([]float64, []float64) {
	rates := make([]float64, n)
	commands := make([]float64, n)
	step := 2 * limit / float64(n-1)
	for i := range rates {
		rates[i] = -limit + float64(i)*step
		commands[i] = ctrl.Evaluate(0, rates[i], 0)
	}
	return rates, commands
}
