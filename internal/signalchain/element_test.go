package signalchain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func signalOf(freqs ...float64) *Signal {
	s := &Signal{}
	for _, f := range freqs {
		s.Add(1, f)
	}
	return s
}

func TestSignalAddKeepsDuplicatesInOrder(t *testing.T) {
	s := signalOf(10, 5, 10)
	if s.ToneCount() != 3 {
		t.Fatalf("expected 3 tones, got %d", s.ToneCount())
	}
	got := s.Frequencies()
	want := []float64{10, 5, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tone %d: expected %g got %g", i, want[i], got[i])
		}
	}

	tones := s.Tones()
	tones[0].FrequencyMHz = 99
	if s.Frequencies()[0] != 10 {
		t.Fatalf("Tones must return a copy")
	}
}

func TestFilterInclusiveBounds(t *testing.T) {
	f, err := NewFilter("bp", 100, 200)
	require.NoError(t, err)

	tests := []struct {
		freq float64
		pass bool
	}{
		{freq: 100, pass: true},
		{freq: 200, pass: true},
		{freq: 150, pass: true},
		{freq: 99.999, pass: false},
		{freq: 200.001, pass: false},
		{freq: -150, pass: false},
	}

	for _, tt := range tests {
		s := signalOf(tt.freq)
		f.Apply(s)
		if got := s.ToneCount() == 1; got != tt.pass {
			t.Fatalf("freq %g: expected pass=%v got %v", tt.freq, tt.pass, got)
		}
	}
}

func TestFilterReplacesToneList(t *testing.T) {
	f, err := NewFilter("bp", 0, 10)
	require.NoError(t, err)

	s := signalOf(1, 20, 5, 30)
	f.Apply(s)
	assert.Equal(t, []float64{1, 5}, s.Frequencies())
}

func TestNewFilterRejectsInvertedBand(t *testing.T) {
	_, err := NewFilter("bad", 10, 5)
	if !errors.Is(err, ErrInvalidBand) {
		t.Fatalf("expected ErrInvalidBand, got %v", err)
	}
}

func TestFilterBandProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		low := rapid.Float64Range(-1e5, 1e5).Draw(t, "low")
		width := rapid.Float64Range(0, 1e5).Draw(t, "width")
		freq := rapid.Float64Range(-3e5, 3e5).Draw(t, "freq")

		f, err := NewFilter("prop", low, low+width)
		require.NoError(t, err)

		s := signalOf(freq)
		f.Apply(s)

		inside := low <= freq && freq <= low+width
		if inside {
			require.Equal(t, 1, s.ToneCount())
			assert.Equal(t, freq, s.Frequencies()[0])
		} else {
			assert.Equal(t, 0, s.ToneCount())
		}
	})
}

func TestMixerProducts(t *testing.T) {
	m := NewMixer("m", 1000)

	s := signalOf(30)
	m.Apply(s)
	assert.Equal(t, []float64{1030, 970}, s.Frequencies())

	s = signalOf(0)
	m.Apply(s)
	assert.Equal(t, []float64{1000}, s.Frequencies())

	s = signalOf(5e-16)
	m.Apply(s)
	assert.Equal(t, []float64{1000}, s.Frequencies(), "near-DC tone must yield a single product")

	s = signalOf(-40)
	m.Apply(s)
	assert.Equal(t, []float64{960, 1040}, s.Frequencies())
}

func TestMixerZeroLOIsIdentity(t *testing.T) {
	m := NewMixer("off", 0)
	s := signalOf(12.5, 0, -3)
	before := s.Tones()
	m.Apply(s)
	assert.Equal(t, before, s.Tones())
}

func TestMixerProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.Float64Range(1, 1e5).Draw(t, "lo")
		freq := rapid.Float64Range(-1e5, 1e5).Draw(t, "freq")

		s := signalOf(freq)
		NewMixer("prop", lo).Apply(s)

		if math.Abs(freq) <= dcEpsilon {
			assert.Equal(t, []float64{lo}, s.Frequencies())
			return
		}
		assert.Equal(t, []float64{lo + freq, lo - freq}, s.Frequencies())
	})
}

func TestAliasingSamplerMap(t *testing.T) {
	tests := []struct {
		name string
		zone int
		in   float64
		want float64
	}{
		{name: "first zone passthrough", zone: 1, in: 100, want: 100},
		{name: "second zone inverted", zone: 2, in: 100, want: 1150},
		{name: "third zone", zone: 3, in: 100, want: 1350},
		{name: "fourth zone", zone: 4, in: 100, want: 2400},
		{name: "fold down from second zone", zone: 2, in: 1364.7, want: 114.7},
		{name: "fold down from far zone", zone: 1, in: 43635.3, want: 114.7},
		{name: "dc stays", zone: 2, in: 0, want: 0},
		{name: "nyquist edge stays", zone: 2, in: 625, want: 625},
		{name: "negative folds to positive", zone: 1, in: -100, want: 100},
	}

	for _, tt := range tests {
		s, err := NewAliasingSampler("adc", 1250, tt.zone)
		require.NoError(t, err)
		got := s.Map(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("%s: expected %.6f got %.6f", tt.name, tt.want, got)
		}
	}
}

func TestNewAliasingSamplerValidation(t *testing.T) {
	for _, tc := range []struct {
		fs   float64
		zone int
	}{
		{fs: 0, zone: 1},
		{fs: -10, zone: 1},
		{fs: math.NaN(), zone: 1},
		{fs: 100, zone: 0},
	} {
		if _, err := NewAliasingSampler("bad", tc.fs, tc.zone); !errors.Is(err, ErrInvalidSampler) {
			t.Fatalf("fs=%g zone=%d: expected ErrInvalidSampler, got %v", tc.fs, tc.zone, err)
		}
	}
}

// At an exact half-integer multiple of fs the two nearest multiples are
// equally far away; ties-to-even and ties-away-from-zero both land on fs/2.
func TestAliasHalfwayCase(t *testing.T) {
	const fs = 1250.0
	for _, k := range []float64{0.5, 1.5, 2.5, 3.5, -0.5, -2.5} {
		f := k * fs
		got := Alias(f, fs)
		assert.Equal(t, fs/2, got, "k=%g", k)

		away := math.Abs(f - fs*math.Round(f/fs))
		assert.Equal(t, away, got, "rounding mode must not matter at k=%g", k)
	}
}

func TestAliasIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fs := rapid.Float64Range(1, 1e4).Draw(t, "fs")
		f := rapid.Float64Range(-1e6, 1e6).Draw(t, "f")

		a := Alias(f, fs)
		tol := 1e-9 * math.Max(1, math.Abs(f))
		assert.GreaterOrEqual(t, a, 0.0)
		assert.LessOrEqual(t, a, fs/2+tol)
		assert.InDelta(t, a, Alias(a, fs), tol)
	})
}

func TestUnaliasLandsInZone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fs := rapid.Float64Range(10, 1e4).Draw(t, "fs")
		zone := rapid.IntRange(1, 20).Draw(t, "zone")
		f := rapid.Float64Range(0.001, 0.499).Draw(t, "fraction") * fs

		u := Unalias(f, fs, zone)
		tol := 1e-9 * fs * float64(zone)
		assert.GreaterOrEqual(t, u, float64(zone-1)*fs/2-tol)
		assert.LessOrEqual(t, u, float64(zone)*fs/2+tol)
		assert.InDelta(t, f, Alias(u, fs), tol)
	})
}

func TestAliasingSamplerApplyKeepsToneCount(t *testing.T) {
	s, err := NewAliasingSampler("adc", 1250, 2)
	require.NoError(t, err)

	sig := signalOf(100, 1364.7, 43635.3)
	s.Apply(sig)
	require.Equal(t, 3, sig.ToneCount())
	assert.InDeltaSlice(t, []float64{1150, 114.7, 114.7}, sig.Frequencies(), 1e-9)
}
