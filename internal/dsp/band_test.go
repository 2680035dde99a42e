package dsp

import (
	"math"
	"testing"
)

func TestBinRangeClamp(t *testing.T) {
	tests := []struct {
		n, start, end int
		wantS, wantE  int
	}{
		{10, -3, 4, 0, 4},
		{10, 2, 0, 2, 10},
		{10, 2, 20, 2, 10},
		{10, 7, 7, 0, 0},
		{0, 0, 5, 0, 0},
	}
	for _, tt := range tests {
		s, e := binRange(tt.n, tt.start, tt.end)
		if s != tt.wantS || e != tt.wantE {
			t.Fatalf("binRange(%d,%d,%d) = (%d,%d), want (%d,%d)", tt.n, tt.start, tt.end, s, e, tt.wantS, tt.wantE)
		}
	}
}

func TestBandBins(t *testing.T) {
	// 1250 MHz / 4096 points: 0.30517578125 MHz per bin.
	s, e := BandBins(4096, 1250, 100, 200)
	if s != 327 || e != 657 {
		t.Fatalf("got [%d,%d) want [327,657)", s, e)
	}
	if s, e := BandBins(4096, 1250, 600, 5000); s != 1966 || e != 2049 {
		t.Fatalf("expected clamp to the real spectrum, got [%d,%d)", s, e)
	}
	if s, e := BandBins(4096, 1250, 200, 100); s != 0 || e != 0 {
		t.Fatalf("expected empty range for inverted band")
	}
	if s, e := BandBins(4096, 1250, -120, -110); s != 0 || e != 0 {
		t.Fatalf("expected empty range below DC, got [%d,%d)", s, e)
	}
	if s, e := BandBins(4096, 1250, 700, 710); s != 0 || e != 0 {
		t.Fatalf("expected empty range above Nyquist, got [%d,%d)", s, e)
	}
	if s, e := BandBins(4096, 1250, -3, 1); s != 0 || e != 5 {
		t.Fatalf("expected band straddling DC to start at bin 0, got [%d,%d)", s, e)
	}
}

func TestPeakInBand(t *testing.T) {
	db := []float64{-10, -3, -50, -1, -20}
	peak, bin, ok := PeakInBand(db, 0, 3)
	if !ok || bin != 1 || peak != -3 {
		t.Fatalf("got peak %.1f at %d ok=%t", peak, bin, ok)
	}
	if _, _, ok := PeakInBand(db, 4, 4); ok {
		t.Fatalf("expected empty band")
	}
	inf := math.Inf(-1)
	if _, _, ok := PeakInBand([]float64{inf, inf}, 0, 2); ok {
		t.Fatalf("expected no peak in silence")
	}
}

func TestNoiseFloorSkipsSignal(t *testing.T) {
	db := []float64{-60, -60, -5, 0, -5, -60, math.Inf(-1), -60}
	floor, ok := NoiseFloor(db, 0, len(db), 3)
	if !ok || floor != -60 {
		t.Fatalf("floor %.2f ok=%t, want -60", floor, ok)
	}
	if _, ok := NoiseFloor([]float64{0, 0, 0}, 0, 3, 1); ok {
		t.Fatalf("expected no floor when only the signal is present")
	}
}

func TestSNROfTone(t *testing.T) {
	db := PowerSpectrum(Tone(4096, 1250, 313.4))
	bin, _, _ := PeakBin(db)
	if snr := SNR(db, bin); snr < 40 {
		t.Fatalf("expected a clean tone well above the leakage floor, got %.1f dB", snr)
	}
	if SNR(db, -1) != 0 || SNR(nil, 0) != 0 {
		t.Fatalf("expected 0 for out-of-range peak")
	}
}
