// Package signalchain models the analog front end of the spectrometer as an
// ordered cascade of ideal elements (filters, mixers, aliasing samplers) and
// maps frequencies between the sky and the digitized backend.
//
// A Signal is a set of synthetic test tones. Elements rewrite the tone set in
// place; a Chain applies its elements sky→backend (forward) or
// backend→sky (backward). Frequencies are in MHz throughout.
package signalchain

// Tone is a single spectral component of a Signal. Amplitude only marks
// presence; it is not a physical amplitude.
type Tone struct {
	Amplitude    float64
	FrequencyMHz float64
}

// Signal is the tone set propagated through a Chain. The zero value is an
// empty signal ready for use.
type Signal struct {
	tones []Tone
}

// NewSignal returns a signal holding a single tone at frequencyMHz.
func NewSignal(frequencyMHz float64) *Signal {
	s := &Signal{}
	s.Add(1, frequencyMHz)
	return s
}

// Add appends a tone. Duplicates are kept.
func (s *Signal) Add(amplitude, frequencyMHz float64) {
	s.tones = append(s.tones, Tone{Amplitude: amplitude, FrequencyMHz: frequencyMHz})
}

// ToneCount reports how many tones are currently present.
func (s *Signal) ToneCount() int {
	return len(s.tones)
}

// Tones returns a copy of the current tone list in insertion order.
func (s *Signal) Tones() []Tone {
	out := make([]Tone, len(s.tones))
	copy(out, s.tones)
	return out
}

// Frequencies returns the frequency of every tone in insertion order.
func (s *Signal) Frequencies() []float64 {
	out := make([]float64, len(s.tones))
	for i, t := range s.tones {
		out[i] = t.FrequencyMHz
	}
	return out
}

// Replace swaps the whole tone list for tones. The signal takes ownership of
// the slice.
func (s *Signal) Replace(tones []Tone) {
	s.tones = tones
}
