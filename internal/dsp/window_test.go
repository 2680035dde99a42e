package dsp

import (
	"math"
	"testing"
)

func TestHamming(t *testing.T) {
	win := Hamming(4)
	expected := []float64{0.08, 0.77, 0.77, 0.08}
	if len(win) != len(expected) {
		t.Fatalf("unexpected length: %d", len(win))
	}
	for i := range expected {
		if math.Abs(win[i]-expected[i]) > 1e-6 {
			t.Fatalf("index %d expected %.2f got %.6f", i, expected[i], win[i])
		}
	}
	if len(Hamming(0)) != 0 {
		t.Fatalf("expected empty window for n=0")
	}
	if w := Hamming(1); len(w) != 1 || w[0] != 1 {
		t.Fatalf("expected unit window for n=1, got %v", w)
	}
}

func TestApplyWindow(t *testing.T) {
	samples := []float64{2, -4}
	win := []float64{0.5, 0.25}
	out := ApplyWindow(samples, win)
	if len(out) != 2 {
		t.Fatalf("length mismatch")
	}
	if out[0] != 1 || out[1] != -1 {
		t.Fatalf("unexpected output %v", out)
	}
	if len(ApplyWindow(samples, []float64{1})) != 0 {
		t.Fatalf("expected empty slice when lengths differ")
	}
}
