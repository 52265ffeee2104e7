// Package analysis inspects recorded loop runs.
//
//   - [PowerSpectrum] and [DominantFrequency]: spectral content of a series,
//     used to find the frequency of the residual limit cycle
//   - [Summarize]: mean, RMS and peak-to-peak of a series
//   - [NewPhasePortrait]: scatter of one sample field against another, e.g.
//     rate against command to show the control law actually applied
//
// A run that settles into a limit cycle shows a single sharp peak:
//
//	f, _ := analysis.DominantFrequency(rates, 0.05)
package analysis
