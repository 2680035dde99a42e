// Package freqmap derives the linear relation between spectrometer bin index
// and sky frequency for one recording session.
package freqmap

import (
	"errors"
	"fmt"
	"math"

	"github.com/rjboer/GoHose/internal/metadata"
	"github.com/rjboer/GoHose/internal/signalchain"
)

// Measurement is the record name downstream consumers key off.
const Measurement = "frequency_map"

// Field names of the frequency map record.
const (
	FieldReferenceBinIndex   = "reference_bin_index"
	FieldReferenceSkyFreqMHz = "reference_bin_center_sky_frequency_MHz"
	FieldBinDelta            = "bin_delta"
	FieldFrequencyDeltaMHz   = "frequency_delta_MHz"
)

var (
	// ErrInvalidConfig is returned for a non-positive sample rate or an FFT
	// size that is not a positive even number.
	ErrInvalidConfig = errors.New("freqmap: invalid spectrometer configuration")
	// ErrUnmapped is returned when the chain cannot map a reference frequency
	// back to a single sky frequency.
	ErrUnmapped = errors.New("freqmap: frequency not mappable through signal chain")
)

// BackwardMapper maps backend frequencies to the sky.
// *signalchain.Chain satisfies it.
type BackwardMapper interface {
	MapBackward(frequencyMHz float64) (float64, bool)
	MapPairBackward(lowMHz, highMHz float64) signalchain.Pair
}

// FrequencyMap relates bin index to sky frequency:
//
//	sky(bin) = refSky + (bin - refBin) / binDelta * freqDelta
//
// It is immutable once built.
type FrequencyMap struct {
	time         string
	refBin       int
	refSkyMHz    float64
	binDelta     int
	freqDeltaMHz float64
}

// Spectrometer describes the digitizer rate and FFT length the spectra are
// computed with.
type Spectrometer struct {
	SampleRateMHz float64
	FFTSize       int
}

// Resolution returns the width of one bin in MHz.
func (s Spectrometer) Resolution() float64 {
	return s.SampleRateMHz / float64(s.FFTSize)
}

// Bins returns the number of bins of a real-input spectrum.
func (s Spectrometer) Bins() int {
	return s.FFTSize/2 + 1
}

// Validate checks the configuration is usable.
func (s Spectrometer) Validate() error {
	if !(s.SampleRateMHz > 0) || math.IsInf(s.SampleRateMHz, 0) {
		return fmt.Errorf("%w: sample rate %g MHz", ErrInvalidConfig, s.SampleRateMHz)
	}
	if s.FFTSize <= 0 || s.FFTSize%2 != 0 {
		return fmt.Errorf("%w: fft size %d", ErrInvalidConfig, s.FFTSize)
	}
	return nil
}

// Build derives the frequency map for chain and spectrometer, stamped with
// timestamp. The reference is the centre bin; the sign of the frequency
// delta comes from mapping the lowest bin's edges back to the sky, or the
// centre bin's edges when the chain rejects the lowest bin.
func Build(chain BackwardMapper, spec Spectrometer, timestamp string) (*FrequencyMap, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	res := spec.Resolution()
	centerBin := spec.Bins() / 2
	centerIF := (float64(centerBin) + 0.5) * res

	centerSky, ok := chain.MapBackward(centerIF)
	if !ok {
		return nil, fmt.Errorf("%w: centre bin %d at %g MHz", ErrUnmapped, centerBin, centerIF)
	}

	edges := chain.MapPairBackward(0, res)
	if !edges.OK {
		lo := float64(centerBin) * res
		edges = chain.MapPairBackward(lo, lo+res)
	}
	if !edges.OK || edges.Span() == 0 {
		return nil, fmt.Errorf("%w: bin edges give no slope", ErrUnmapped)
	}

	return &FrequencyMap{
		time:         timestamp,
		refBin:       centerBin,
		refSkyMHz:    centerSky,
		binDelta:     1,
		freqDeltaMHz: math.Copysign(res, edges.Span()),
	}, nil
}

// Time returns the timestamp string the map was stamped with.
func (m *FrequencyMap) Time() string { return m.time }

// ReferenceBin returns the reference bin index.
func (m *FrequencyMap) ReferenceBin() int { return m.refBin }

// ReferenceSkyFrequency returns the sky frequency at the reference bin centre.
func (m *FrequencyMap) ReferenceSkyFrequency() float64 { return m.refSkyMHz }

// BinDelta returns the bin increment FrequencyDelta refers to.
func (m *FrequencyMap) BinDelta() int { return m.binDelta }

// FrequencyDelta returns the signed sky frequency step per BinDelta bins.
// A negative value means the spectrum is inverted.
func (m *FrequencyMap) FrequencyDelta() float64 { return m.freqDeltaMHz }

// Inverted reports whether sky frequency decreases with bin index.
func (m *FrequencyMap) Inverted() bool { return m.freqDeltaMHz < 0 }

// SkyFrequency returns the sky frequency at the centre of bin.
func (m *FrequencyMap) SkyFrequency(bin int) float64 {
	return m.refSkyMHz + float64(bin-m.refBin)/float64(m.binDelta)*m.freqDeltaMHz
}

// Bin returns the bin whose centre is closest to skyMHz. The result is not
// clamped to the spectrum.
func (m *FrequencyMap) Bin(skyMHz float64) int {
	steps := (skyMHz - m.refSkyMHz) / m.freqDeltaMHz * float64(m.binDelta)
	return m.refBin + int(math.Round(steps))
}

// Record renders the map as a metadata record.
func (m *FrequencyMap) Record() metadata.Record {
	return metadata.Record{
		Time:        m.time,
		Measurement: Measurement,
		Fields: map[string]any{
			FieldReferenceBinIndex:   m.refBin,
			FieldReferenceSkyFreqMHz: m.refSkyMHz,
			FieldBinDelta:            m.binDelta,
			FieldFrequencyDeltaMHz:   m.freqDeltaMHz,
		},
	}
}
