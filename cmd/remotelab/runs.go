package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/remotelab/internal/analysis"
	"github.com/san-kum/remotelab/internal/config"
	"github.com/san-kum/remotelab/internal/storage"
	"github.com/san-kum/remotelab/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tCTRL\tTIME\tITER\tTIMEOUTS\tSTABILITY")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.3f\n",
			run.ID,
			run.Source,
			run.Controller,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Iterations,
			run.Timeouts,
			run.Metrics["stability"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s (%s)\n", meta.Controller, meta.Source)
	fmt.Printf("samples: %d\n\n", len(samples))

	p := viz.NewPlotter(len(samples))
	for _, s := range samples {
		p.Push(s)
	}
	fmt.Println(p.Render(80, 10))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) < 4 {
		return fmt.Errorf("run %s has too few samples to analyze", runID)
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("controller: %s\n\n", meta.Controller)

	dt := (samples[len(samples)-1].T - samples[0].T) / float64(len(samples)-1)
	rateField, _ := analysis.FieldByName("rate")
	cmdField, _ := analysis.FieldByName("command")
	rates := analysis.Series(samples, rateField)

	ps := analysis.PowerSpectrum(rates)
	plotData := ps[1:]
	if len(plotData) > 160 {
		plotData = plotData[:160]
	}
	fmt.Println(asciigraph.Plot(plotData,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("rate power spectrum"),
	))
	fmt.Println()

	freq, power, err := analysis.DominantFrequency(rates, dt)
	if err != nil {
		return err
	}
	fmt.Printf("mean loop period: %.2f ms\n", 1000*dt)
	fmt.Printf("dominant frequency: %.3f hz (power %.4g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSERIES\tMEAN\tRMS\tMIN\tMAX\tP-P")
	for _, row := range []struct {
		name string
		s    analysis.Summary
	}{
		{"rate", analysis.Summarize(rates)},
		{"command", analysis.Summarize(analysis.Series(samples, cmdField))},
	} {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\n",
			row.name, row.s.Mean, row.s.RMS, row.s.Min, row.s.Max, row.s.PeakToPeak)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	portrait, err := analysis.NewPhasePortrait(samples, phaseX, phaseY)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(portrait.ASCII(70, 20))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return withOutput(func(w io.Writer) error {
		return storage.New(dataDir).ExportJSON(w, args[0])
	})
}

func exportCSV(cmd *cobra.Command, args []string) error {
	return withOutput(func(w io.Writer) error {
		return storage.New(dataDir).ExportCSV(w, args[0])
	})
}

// withOutput runs write against --output, or stdout when it is empty.
func withOutput(write func(io.Writer) error) error {
	if outputFile == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outputFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tGAIN\tDAMPING\tDISTURBANCE\tINIT ANGLE\tINIT RATE\tNOISE")
	for _, name := range config.ListPresets() {
		p, _ := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%.1f\t%.3f\t%.2f\t%.1f\t%.1f\t%.2f\n",
			name, p.Gain, p.Damping, p.Disturbance, p.InitAngle, p.InitRate, p.RateNoise)
	}
	return w.Flush()
}
