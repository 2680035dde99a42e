package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestPowerSpectrumPeak(t *testing.T) {
	n := 64
	db := PowerSpectrum(Tone(n, 64, 10))
	if len(db) != n/2+1 {
		t.Fatalf("expected %d bins got %d", n/2+1, len(db))
	}
	bin, level, ok := PeakBin(db)
	if !ok {
		t.Fatalf("expected a peak")
	}
	if bin != 10 {
		t.Fatalf("expected peak at 10 got %d", bin)
	}
	// A unit cosine splits its energy over +/- f: half amplitude, -6 dB.
	if math.Abs(level-20*math.Log10(0.5)) > 0.1 {
		t.Fatalf("unexpected peak level %.3f dB", level)
	}
	for i, v := range db {
		if math.IsNaN(v) {
			t.Fatalf("bin %d is NaN", i)
		}
	}
}

func TestPowerSpectrumSilence(t *testing.T) {
	db := PowerSpectrum(make([]float64, 16))
	for i, v := range db {
		if !math.IsInf(v, -1) {
			t.Fatalf("bin %d: expected -Inf got %g", i, v)
		}
	}
	if len(PowerSpectrum(nil)) != 0 {
		t.Fatalf("expected empty spectrum for no samples")
	}
}

func TestPeakBinEmpty(t *testing.T) {
	if _, _, ok := PeakBin(nil); ok {
		t.Fatalf("expected ok=false for empty spectrum")
	}
}

func TestToneGuards(t *testing.T) {
	assert.Empty(t, Tone(0, 10, 1))
	assert.Empty(t, Tone(8, 0, 1))
	assert.InDeltaSlice(t, []float64{1, 0, -1, 0}, Tone(4, 4, 1), 1e-12)
}

func TestBinFrequency(t *testing.T) {
	assert.Equal(t, 312.5, BinFrequency(1024, 4096, 1250))
}

func TestPeakFollowsTone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := 1 << rapid.IntRange(7, 11).Draw(t, "log2n")
		k := rapid.IntRange(4, n/2-4).Draw(t, "bin")
		frac := rapid.Float64Range(0, 0.4).Draw(t, "frac")
		fs := rapid.Float64Range(1, 5000).Draw(t, "fs")

		freq := (float64(k) + frac) * fs / float64(n)
		bin, _, ok := PeakBin(PowerSpectrum(Tone(n, fs, freq)))
		assert.True(t, ok)
		assert.Equal(t, k, bin)
	})
}
