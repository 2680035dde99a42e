package signalchain

import (
	"errors"
	"fmt"
	"math"
)

// dcEpsilon is the magnitude below which a mixer input is treated as DC and
// yields a single product at the LO frequency.
const dcEpsilon = 1e-15

var (
	// ErrInvalidBand is returned for a filter whose low edge exceeds its high edge.
	ErrInvalidBand = errors.New("signalchain: filter low edge above high edge")
	// ErrInvalidSampler is returned for a non-positive sampling rate or a
	// Nyquist zone below 1.
	ErrInvalidSampler = errors.New("signalchain: invalid sampler parameters")
)

// Element is one stage of a Chain. Apply rewrites the signal's tone set and
// must not modify the element itself.
type Element interface {
	Apply(s *Signal)
	Name() string
}

// Filter is an ideal band-pass filter passing [Low, High] inclusive.
type Filter struct {
	name      string
	low, high float64
}

// NewFilter builds a band-pass filter over [lowMHz, highMHz].
func NewFilter(name string, lowMHz, highMHz float64) (*Filter, error) {
	if lowMHz > highMHz || math.IsNaN(lowMHz) || math.IsNaN(highMHz) {
		return nil, fmt.Errorf("%w: %s [%g, %g]", ErrInvalidBand, name, lowMHz, highMHz)
	}
	if name == "" {
		name = "filter"
	}
	return &Filter{name: name, low: lowMHz, high: highMHz}, nil
}

func (f *Filter) Name() string { return f.name }

// Passes reports whether a tone at frequencyMHz survives the filter.
func (f *Filter) Passes(frequencyMHz float64) bool {
	return f.low <= frequencyMHz && frequencyMHz <= f.high
}

func (f *Filter) Apply(s *Signal) {
	out := make([]Tone, 0, len(s.tones))
	for _, t := range s.tones {
		if f.Passes(t.FrequencyMHz) {
			out = append(out, t)
		}
	}
	s.Replace(out)
}

func (f *Filter) String() string {
	return fmt.Sprintf("%s[filter %g-%g MHz]", f.name, f.low, f.high)
}

// Mixer is an ideal mixer producing both the sum and the difference of the
// local oscillator and every input tone.
type Mixer struct {
	name string
	lo   float64
}

// NewMixer builds a mixer with a local oscillator at loMHz. A zero LO makes
// the mixer a pass-through.
func NewMixer(name string, loMHz float64) *Mixer {
	if name == "" {
		name = "mixer"
	}
	return &Mixer{name: name, lo: loMHz}
}

func (m *Mixer) Name() string { return m.name }

// LO returns the local oscillator frequency in MHz.
func (m *Mixer) LO() float64 { return m.lo }

func (m *Mixer) Apply(s *Signal) {
	if m.lo == 0 {
		return
	}
	out := make([]Tone, 0, 2*len(s.tones))
	for _, t := range s.tones {
		if math.Abs(t.FrequencyMHz) > dcEpsilon {
			out = append(out,
				Tone{Amplitude: t.Amplitude, FrequencyMHz: m.lo + t.FrequencyMHz},
				Tone{Amplitude: t.Amplitude, FrequencyMHz: m.lo - t.FrequencyMHz},
			)
			continue
		}
		out = append(out, Tone{Amplitude: t.Amplitude, FrequencyMHz: m.lo})
	}
	s.Replace(out)
}

func (m *Mixer) String() string {
	return fmt.Sprintf("%s[mixer LO %g MHz]", m.name, m.lo)
}

// AliasingSampler models a digitizer sampling at SampleRate in a given
// Nyquist zone. Tones outside the first zone fold down onto it; tones inside
// the first zone are placed back into the configured zone, which makes the
// same stage usable in both directions.
type AliasingSampler struct {
	name       string
	sampleRate float64
	zone       int
}

// NewAliasingSampler builds a sampler at sampleRateMHz working in the given
// Nyquist zone (1-based).
func NewAliasingSampler(name string, sampleRateMHz float64, zone int) (*AliasingSampler, error) {
	if !(sampleRateMHz > 0) || math.IsInf(sampleRateMHz, 0) || zone < 1 {
		return nil, fmt.Errorf("%w: %s fs=%g zone=%d", ErrInvalidSampler, name, sampleRateMHz, zone)
	}
	if name == "" {
		name = "sampler"
	}
	return &AliasingSampler{name: name, sampleRate: sampleRateMHz, zone: zone}, nil
}

func (a *AliasingSampler) Name() string { return a.name }

// SampleRate returns the sampling frequency in MHz.
func (a *AliasingSampler) SampleRate() float64 { return a.sampleRate }

// Zone returns the configured Nyquist zone.
func (a *AliasingSampler) Zone() int { return a.zone }

// Map returns the image of a single frequency under the sampler.
func (a *AliasingSampler) Map(frequencyMHz float64) float64 {
	nyquist := a.sampleRate / 2
	if frequencyMHz > 0 && frequencyMHz < nyquist {
		if a.zone == 1 {
			return frequencyMHz
		}
		return Unalias(frequencyMHz, a.sampleRate, a.zone)
	}
	return Alias(frequencyMHz, a.sampleRate)
}

func (a *AliasingSampler) Apply(s *Signal) {
	out := make([]Tone, len(s.tones))
	for i, t := range s.tones {
		out[i] = Tone{Amplitude: t.Amplitude, FrequencyMHz: a.Map(t.FrequencyMHz)}
	}
	s.Replace(out)
}

func (a *AliasingSampler) String() string {
	return fmt.Sprintf("%s[sampler fs %g MHz zone %d]", a.name, a.sampleRate, a.zone)
}

// Alias folds frequencyMHz onto its representative in [0, fs/2] by removing
// the nearest integer multiple of fs. The multiple is picked with
// round-half-to-even; at an exact half-integer multiple both neighbours are
// fs/2 away so the result does not depend on that choice.
func Alias(frequencyMHz, sampleRateMHz float64) float64 {
	k := math.RoundToEven(frequencyMHz / sampleRateMHz)
	return math.Abs(frequencyMHz - sampleRateMHz*k)
}

// Unalias places a first-zone frequency into the given Nyquist zone. Even
// zones are spectrally inverted.
func Unalias(aliasMHz, sampleRateMHz float64, zone int) float64 {
	sign := 1.0
	if zone%2 == 0 {
		sign = -1.0
	}
	return math.Abs(aliasMHz + sign*sampleRateMHz*float64(zone/2))
}
