// Package app wires configuration, the signal chain, the frequency map and
// the metadata reporters together for one recording session.
package app

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/rjboer/GoHose/internal/config"
	"github.com/rjboer/GoHose/internal/dsp"
	"github.com/rjboer/GoHose/internal/freqmap"
	"github.com/rjboer/GoHose/internal/logging"
	"github.com/rjboer/GoHose/internal/metadata"
	"github.com/rjboer/GoHose/internal/signalchain"
)

const (
	// searchBins is the half width of the window around the mapped bin in
	// which the tone's peak is looked for.
	searchBins = 4
	// minToneSNR is the level a tone must reach above the noise floor to
	// count as found.
	minToneSNR = 20.0
)

var (
	// ErrToneRejected is returned when no image of a test tone reaches the
	// digitizer.
	ErrToneRejected = errors.New("app: test tone rejected by signal chain")
	// ErrImagesDisagree is returned when the images of a test tone land more
	// than one bin apart after sampling.
	ErrImagesDisagree = errors.New("app: test tone images land in different bins")
)

// Session computes and publishes the frequency map for one configuration.
// It is not safe for concurrent use.
type Session struct {
	cfg      *config.Config
	reporter metadata.Reporter
	logger   logging.Logger
	now      func() time.Time
	spectrum *dsp.CachedSpectrum
}

// NewSession builds a session. A nil reporter only logs; a nil logger uses
// the process default.
func NewSession(cfg *config.Config, reporter metadata.Reporter, logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.Default()
	}
	if reporter == nil {
		reporter = metadata.NewLogReporter(logger)
	}
	return &Session{
		cfg:      cfg,
		reporter: reporter,
		logger:   logger.With(logging.F("subsystem", "session")),
		now:      time.Now,
	}
}

// SetClock overrides the time source used to stamp records.
func (s *Session) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Chain builds the signal chain for the configured UDC setting.
func (s *Session) Chain() (*signalchain.Chain, error) {
	chain, err := s.cfg.BuildChain()
	if err != nil {
		return nil, fmt.Errorf("build signal chain: %w", err)
	}
	s.logger.Debug("signal chain", logging.F("chain", chain.String()))
	return chain, nil
}

// FrequencyMap derives the frequency map stamped with the current time.
func (s *Session) FrequencyMap() (*freqmap.FrequencyMap, error) {
	chain, err := s.Chain()
	if err != nil {
		return nil, err
	}
	return s.frequencyMap(chain)
}

func (s *Session) frequencyMap(chain *signalchain.Chain) (*freqmap.FrequencyMap, error) {
	spec := s.cfg.SpectrometerLayout()
	m, err := freqmap.Build(chain, spec, metadata.FormatTime(s.now()))
	if err != nil {
		return nil, fmt.Errorf("build frequency map: %w", err)
	}
	s.logger.Info("frequency map built",
		logging.F("udc_MHz", s.cfg.UDC.FrequencyMHz),
		logging.F("reference_bin", m.ReferenceBin()),
		logging.F("reference_sky_MHz", m.ReferenceSkyFrequency()),
		logging.F("frequency_delta_MHz", m.FrequencyDelta()),
		logging.F("inverted", m.Inverted()),
	)
	return m, nil
}

// Publish sends the digitizer, spectrometer and UDC records followed by the
// frequency map record to the session's reporter, all stamped with the map's
// time. It stops at the first failing record.
func (s *Session) Publish(m *freqmap.FrequencyMap) error {
	records := append(s.cfg.Records(m.Time()), m.Record())
	for _, rec := range records {
		if err := s.reporter.Report(rec); err != nil {
			return fmt.Errorf("publish %s: %w", rec.Measurement, err)
		}
	}
	return nil
}

// ToneCheck is the outcome of pushing a synthetic sky tone through the
// chain, the digitizer and the spectrometer FFT.
type ToneCheck struct {
	SkyMHz          float64
	IFMHz           float64
	Images          int
	ExpectedBin     int
	PeakBin         int
	PeakIFMHz       float64
	PeakDB          float64
	SNRdB           float64
	RecoveredSkyMHz float64
	// InBand is false when the mapped bin lies outside the spectrum and the
	// strongest bin of the whole spectrum was reported instead.
	InBand bool
	// Match is true when the spectral peak lands within one bin of where the
	// frequency map places the sky tone, clear of the noise floor.
	Match bool
}

// VerifyTone checks the frequency map end to end with a tone at skyMHz.
func (s *Session) VerifyTone(skyMHz float64) (ToneCheck, *freqmap.FrequencyMap, error) {
	chain, err := s.Chain()
	if err != nil {
		return ToneCheck{}, nil, err
	}
	m, err := s.frequencyMap(chain)
	if err != nil {
		return ToneCheck{}, nil, err
	}

	spec := s.cfg.SpectrometerLayout()
	res := spec.Resolution()

	sig := signalchain.NewSignal(skyMHz)
	chain.ConvertForward(sig)
	images := sig.Frequencies()
	if len(images) == 0 {
		return ToneCheck{}, m, fmt.Errorf("%w: %g MHz", ErrToneRejected, skyMHz)
	}
	ifMHz := images[0]
	for _, f := range images[1:] {
		if !scalar.EqualWithinAbs(f, ifMHz, res) {
			return ToneCheck{}, m, fmt.Errorf("%w: %v MHz", ErrImagesDisagree, images)
		}
	}

	if s.spectrum == nil {
		s.spectrum = dsp.NewCachedSpectrum(spec.FFTSize)
	} else if s.spectrum.Size() != spec.FFTSize {
		s.spectrum.UpdateSize(spec.FFTSize)
	}
	db := s.spectrum.PowerSpectrum(dsp.Tone(spec.FFTSize, spec.SampleRateMHz, ifMHz))

	expected := m.Bin(skyMHz)
	peak, level, inBand := locatePeak(db, spec, expected)
	if !inBand {
		peak, level, _ = dsp.PeakBin(db)
	}

	check := ToneCheck{
		SkyMHz:          skyMHz,
		IFMHz:           ifMHz,
		Images:          len(images),
		ExpectedBin:     expected,
		PeakBin:         peak,
		PeakIFMHz:       dsp.BinFrequency(peak, spec.FFTSize, spec.SampleRateMHz),
		PeakDB:          level,
		SNRdB:           dsp.SNR(db, peak),
		RecoveredSkyMHz: m.SkyFrequency(peak),
		InBand:          inBand,
	}
	check.Match = inBand &&
		math.Abs(float64(check.PeakBin-check.ExpectedBin)) <= 1 &&
		check.SNRdB >= minToneSNR

	s.logger.Info("tone check",
		logging.F("sky_MHz", check.SkyMHz),
		logging.F("if_MHz", check.IFMHz),
		logging.F("expected_bin", check.ExpectedBin),
		logging.F("peak_bin", check.PeakBin),
		logging.F("peak_if_MHz", check.PeakIFMHz),
		logging.F("in_band", check.InBand),
		logging.F("snr_dB", check.SNRdB),
		logging.F("recovered_sky_MHz", check.RecoveredSkyMHz),
		logging.F("match", check.Match),
	)
	if !check.Match {
		s.logger.Warn("tone landed away from its mapped bin; sky frequency may be an image",
			logging.F("sky_MHz", skyMHz),
			logging.F("peak_bin", peak),
		)
	}
	return check, m, nil
}

// locatePeak finds the strongest bin within searchBins of expectedBin. ok is
// false when that window does not overlap the spectrum.
func locatePeak(db []float64, spec freqmap.Spectrometer, expectedBin int) (bin int, level float64, ok bool) {
	low := dsp.BinFrequency(expectedBin-searchBins, spec.FFTSize, spec.SampleRateMHz)
	high := dsp.BinFrequency(expectedBin+searchBins, spec.FFTSize, spec.SampleRateMHz)
	start, end := dsp.BandBins(spec.FFTSize, spec.SampleRateMHz, low, high)
	level, bin, ok = dsp.PeakInBand(db, start, end)
	return bin, level, ok
}
