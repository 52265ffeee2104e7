package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrTooShort = errors.New("analysis: series too short")

// FFT returns the discrete Fourier transform of data. Any length is accepted.
func FFT(data []float64) []complex128 {
	if len(data) == 0 {
		return nil
	}
	return fft.FFTReal(data)
}

// PowerSpectrum returns |X_k|^2 / N for k in [0, N/2] after removing the mean.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	spec := FFT(centered)
	ps := make([]float64, n/2+1)
	for i := range ps {
		a := cmplx.Abs(spec[i])
		ps[i] = a * a / float64(n)
	}
	return ps
}

// Frequencies returns the bin centres in Hz of a spectrum of n samples
// taken every dt seconds.
func Frequencies(n int, dt float64) []float64 {
	freqs := make([]float64, n/2+1)
	for i := range freqs {
		freqs[i] = float64(i) / (float64(n) * dt)
	}
	return freqs
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC bin
// and its power.
func DominantFrequency(data []float64, dt float64) (float64, float64, error) {
	if len(data) < 4 {
		return 0, 0, ErrTooShort
	}
	if dt <= 0 {
		return 0, 0, errors.New("analysis: dt must be positive")
	}
	ps := PowerSpectrum(data)
	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	return float64(best) / (float64(len(data)) * dt), ps[best], nil
}

type Summary struct {
	Mean       float64
	RMS        float64
	Min        float64
	Max        float64
	PeakToPeak float64
}

func Summarize(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	sumSq := 0.0
	for _, v := range data {
		s.Mean += v
		sumSq += v * v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	n := float64(len(data))
	s.Mean /= n
	s.RMS = math.Sqrt(sumSq / n)
	s.PeakToPeak = s.Max - s.Min
	return s
}
