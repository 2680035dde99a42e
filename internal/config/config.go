// Package config loads the instrument description the frequency map is
// computed from.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rjboer/GoHose/internal/freqmap"
	"github.com/rjboer/GoHose/internal/logging"
	"github.com/rjboer/GoHose/internal/metadata"
	"github.com/rjboer/GoHose/internal/signalchain"
)

// Element types accepted in an explicit chain description.
const (
	ElementFilter  = "filter"
	ElementMixer   = "mixer"
	ElementSampler = "sampler"
)

// Measurements of the configuration records stored next to the frequency map.
const (
	MeasurementDigitizer    = "digitizer_config"
	MeasurementSpectrometer = "spectrometer_config"
	MeasurementUDC          = "udc_status"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the top-level structure of the instrument YAML file.
type Config struct {
	Digitizer    DigitizerConfig    `yaml:"digitizer"`
	Spectrometer SpectrometerConfig `yaml:"spectrometer"`
	UDC          UDCConfig          `yaml:"udc"`
	Chain        []ElementConfig    `yaml:"chain,omitempty"`
	Output       OutputConfig       `yaml:"output"`
	Log          LogConfig          `yaml:"log"`
}

type DigitizerConfig struct {
	SamplingFrequencyHz float64 `yaml:"sampling_frequency_Hz"`
	NyquistZone         int     `yaml:"nyquist_zone"`
}

type SpectrometerConfig struct {
	FFTSize int `yaml:"fft_size"`
}

// UDCConfig holds the up/down converter setting, the only part of the
// front end that changes between sessions.
type UDCConfig struct {
	FrequencyMHz float64 `yaml:"frequency_MHz"`
	LastFilter   bool    `yaml:"last_filter"`
}

// ElementConfig describes one stage of an explicit chain. A mixer with a
// non-zero UDCMultiplier follows the UDC setting instead of LOMHz.
type ElementConfig struct {
	Type                 string  `yaml:"type"`
	Name                 string  `yaml:"name,omitempty"`
	LowMHz               float64 `yaml:"low_MHz,omitempty"`
	HighMHz              float64 `yaml:"high_MHz,omitempty"`
	LOMHz                float64 `yaml:"lo_MHz,omitempty"`
	UDCMultiplier        float64 `yaml:"udc_multiplier,omitempty"`
	SamplingFrequencyMHz float64 `yaml:"sampling_frequency_MHz,omitempty"`
	NyquistZone          int     `yaml:"nyquist_zone,omitempty"`
}

type OutputConfig struct {
	MetadataPath string `yaml:"metadata_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the Westford configuration.
func Default() *Config {
	return &Config{
		Digitizer: DigitizerConfig{
			SamplingFrequencyHz: 1.25e9,
			NyquistZone:         2,
		},
		Spectrometer: SpectrometerConfig{FFTSize: 131072},
		UDC:          UDCConfig{FrequencyMHz: signalchain.DefaultUDCLOMHz},
		Log:          LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores cfg as YAML at path.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks every section and each explicit chain element.
func (c *Config) Validate() error {
	var errs []error
	if c.Digitizer.SamplingFrequencyHz <= 0 {
		errs = append(errs, fmt.Errorf("digitizer.sampling_frequency_Hz must be positive, got %g", c.Digitizer.SamplingFrequencyHz))
	}
	if c.Digitizer.NyquistZone < 1 {
		errs = append(errs, fmt.Errorf("digitizer.nyquist_zone must be >= 1, got %d", c.Digitizer.NyquistZone))
	}
	if c.Spectrometer.FFTSize <= 0 || c.Spectrometer.FFTSize%2 != 0 {
		errs = append(errs, fmt.Errorf("spectrometer.fft_size must be a positive even number, got %d", c.Spectrometer.FFTSize))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	for i, e := range c.Chain {
		if err := e.validate(); err != nil {
			errs = append(errs, fmt.Errorf("chain[%d]: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func (e ElementConfig) validate() error {
	switch strings.ToLower(e.Type) {
	case ElementFilter:
		if e.LowMHz > e.HighMHz {
			return fmt.Errorf("filter %q: low_MHz %g above high_MHz %g", e.Name, e.LowMHz, e.HighMHz)
		}
	case ElementMixer:
	case ElementSampler:
		if e.SamplingFrequencyMHz <= 0 {
			return fmt.Errorf("sampler %q: sampling_frequency_MHz must be positive", e.Name)
		}
		if e.NyquistZone < 1 {
			return fmt.Errorf("sampler %q: nyquist_zone must be >= 1", e.Name)
		}
	default:
		return fmt.Errorf("unknown element type %q", e.Type)
	}
	return nil
}

// SampleRateMHz returns the digitizer rate in MHz.
func (c *Config) SampleRateMHz() float64 {
	return c.Digitizer.SamplingFrequencyHz / 1e6
}

// SpectrometerLayout returns the bin layout used for the frequency map.
func (c *Config) SpectrometerLayout() freqmap.Spectrometer {
	return freqmap.Spectrometer{
		SampleRateMHz: c.SampleRateMHz(),
		FFTSize:       c.Spectrometer.FFTSize,
	}
}

// BuildChain instantiates the signal chain for the current UDC setting.
// Without an explicit chain the Westford chain ending in the digitizer's
// sampler is used.
func (c *Config) BuildChain() (*signalchain.Chain, error) {
	if len(c.Chain) == 0 {
		sampler, err := signalchain.NewAliasingSampler("digitizer", c.SampleRateMHz(), c.Digitizer.NyquistZone)
		if err != nil {
			return nil, err
		}
		return signalchain.NewWestford(c.UDC.FrequencyMHz, signalchain.WestfordOptions{
			LastFilter: c.UDC.LastFilter,
			Sampler:    sampler,
		}), nil
	}

	chain := signalchain.NewChain("configured_signal_chain")
	for i, e := range c.Chain {
		el, err := e.build(c.UDC.FrequencyMHz)
		if err != nil {
			return nil, fmt.Errorf("chain[%d]: %w", i, err)
		}
		chain.Add(el)
	}
	return chain, nil
}

func (e ElementConfig) build(udcMHz float64) (signalchain.Element, error) {
	switch strings.ToLower(e.Type) {
	case ElementFilter:
		return signalchain.NewFilter(e.Name, e.LowMHz, e.HighMHz)
	case ElementMixer:
		lo := e.LOMHz
		if e.UDCMultiplier != 0 {
			lo = e.UDCMultiplier * udcMHz
		}
		return signalchain.NewMixer(e.Name, lo), nil
	case ElementSampler:
		return signalchain.NewAliasingSampler(e.Name, e.SamplingFrequencyMHz, e.NyquistZone)
	default:
		return nil, fmt.Errorf("%w: unknown element type %q", ErrInvalid, e.Type)
	}
}

// Records describes the digitizer, spectrometer and UDC settings as metadata
// records stamped with timestamp.
func (c *Config) Records(timestamp string) []metadata.Record {
	return []metadata.Record{
		{
			Time:        timestamp,
			Measurement: MeasurementDigitizer,
			Fields: map[string]any{
				"sampling_frequency_Hz": c.Digitizer.SamplingFrequencyHz,
				"nyquist_zone":          c.Digitizer.NyquistZone,
			},
		},
		{
			Time:        timestamp,
			Measurement: MeasurementSpectrometer,
			Fields: map[string]any{
				"fft_size": c.Spectrometer.FFTSize,
			},
		},
		{
			Time:        timestamp,
			Measurement: MeasurementUDC,
			Fields: map[string]any{
				"frequency_MHz": c.UDC.FrequencyMHz,
				"udc":           "c",
			},
		},
	}
}
