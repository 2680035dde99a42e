// Package dsp synthesises test tones and computes their power spectra, in
// the bin layout the spectrometer produces (n/2+1 bins for n real samples).
package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Tone returns n samples of a unit cosine at freq, sampled at sampleRate.
// Both rates share a unit (MHz in this module).
func Tone(n int, sampleRate, freq float64) []float64 {
	if n <= 0 || sampleRate <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	step := 2 * math.Pi * freq / sampleRate
	for i := range out {
		out[i] = math.Cos(step * float64(i))
	}
	return out
}

// BinFrequency returns the centre frequency of FFT bin k.
func BinFrequency(k, n int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(n)
}

// PowerSpectrum applies a Hamming window to the real samples, transforms
// them and returns the magnitude of the n/2+1 non-negative frequency bins in
// dB, normalised by the window sum.
func PowerSpectrum(samples []float64) []float64 {
	if len(samples) == 0 {
		return []float64{}
	}
	win := Hamming(len(samples))
	coeffs := fourier.NewFFT(len(samples)).Coefficients(nil, ApplyWindow(samples, win))
	return toDB(coeffs, floats.Sum(win))
}

func toDB(coeffs []complex128, windowSum float64) []float64 {
	db := make([]float64, len(coeffs))
	for i, v := range coeffs {
		mag := cmplx.Abs(v) / windowSum
		if mag == 0 {
			db[i] = math.Inf(-1)
			continue
		}
		db[i] = 20 * math.Log10(mag)
	}
	return db
}

// PeakBin returns the index and level of the strongest bin.
// ok is false for an empty spectrum.
func PeakBin(db []float64) (bin int, level float64, ok bool) {
	if len(db) == 0 {
		return 0, 0, false
	}
	bin = floats.MaxIdx(db)
	return bin, db[bin], true
}
