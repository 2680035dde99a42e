// Command hosefreq computes the bin-to-sky frequency map of the Hose signal
// chain and maps individual frequencies through it.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rjboer/GoHose/internal/app"
	"github.com/rjboer/GoHose/internal/config"
	"github.com/rjboer/GoHose/internal/logging"
	"github.com/rjboer/GoHose/internal/metadata"
	"github.com/rjboer/GoHose/internal/signalchain"
)

func main() {
	if err := newRootCmd(os.LookupEnv).Execute(); err != nil {
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath   string
	udcMHz       float64
	lastFilter   bool
	fftSize      int
	metadataPath string
	logLevel     string
	logFormat    string
}

func newRootCmd(lookup func(string) (string, bool)) *cobra.Command {
	var flags cliFlags
	var cfg *config.Config
	var logger logging.Logger

	root := &cobra.Command{
		Use:          "hosefreq",
		Short:        "Map spectrometer bins to sky frequencies",
		Long:         `Derive the frequency map of the Hose signal chain for the configured UDC setting.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = resolveConfig(cmd.Flags(), lookup, flags)
			if err != nil {
				return err
			}
			level, _ := logging.ParseLevel(cfg.Log.Level)
			format, _ := logging.ParseFormat(cfg.Log.Format)
			logger = logging.New(level, format, cmd.ErrOrStderr())
			logging.SetDefault(logger)
			return nil
		},
	}

	bindFlags(root.PersistentFlags(), lookup, &flags)

	session := func(r metadata.Reporter) *app.Session {
		return app.NewSession(cfg, r, logger)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "map",
			Short: "Print the frequency map record",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				reporters := metadata.MultiReporter{metadata.NewLogReporter(logger)}
				if cfg.Output.MetadataPath != "" {
					reporters = append(reporters, metadata.FileReporter{Path: cfg.Output.MetadataPath})
				}
				s := session(reporters)
				m, err := s.FrequencyMap()
				if err != nil {
					return err
				}
				if err := s.Publish(m); err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(m.Record())
			},
		},
		&cobra.Command{
			Use:   "forward <MHz>...",
			Short: "Map sky frequencies to the digitizer output",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				chain, err := session(nil).Chain()
				if err != nil {
					return err
				}
				return mapFrequencies(cmd.OutOrStdout(), chain, args, forward)
			},
		},
		&cobra.Command{
			Use:   "backward <MHz>...",
			Short: "Map digitizer frequencies back to the sky",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				chain, err := session(nil).Chain()
				if err != nil {
					return err
				}
				return mapFrequencies(cmd.OutOrStdout(), chain, args, backward)
			},
		},
		&cobra.Command{
			Use:   "verify <skyMHz>",
			Short: "Check the map with a synthetic tone pushed through chain and FFT",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sky, err := strconv.ParseFloat(args[0], 64)
				if err != nil {
					return fmt.Errorf("parse frequency %q: %w", args[0], err)
				}
				check, _, err := session(nil).VerifyTone(sky)
				if err != nil {
					return err
				}
				spec := cfg.SpectrometerLayout()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "spectrometer: %s-point FFT, %s per bin\n",
					humanize.Comma(int64(spec.FFTSize)), humanize.SIWithDigits(spec.Resolution()*1e6, 2, "Hz"))
				fmt.Fprintf(out, "sky:          %.6f MHz\n", check.SkyMHz)
				fmt.Fprintf(out, "if:           %.6f MHz (%d images)\n", check.IFMHz, check.Images)
				fmt.Fprintf(out, "expected bin: %d\n", check.ExpectedBin)
				fmt.Fprintf(out, "peak bin:     %d at %.6f MHz (%.1f dB, SNR %.1f dB, in band %t)\n",
					check.PeakBin, check.PeakIFMHz, check.PeakDB, check.SNRdB, check.InBand)
				fmt.Fprintf(out, "recovered:    %.6f MHz\n", check.RecoveredSkyMHz)
				fmt.Fprintf(out, "match:        %t\n", check.Match)
				if !check.Match {
					return fmt.Errorf("tone at %g MHz landed in bin %d, map expects %d", sky, check.PeakBin, check.ExpectedBin)
				}
				return nil
			},
		},
		newConfigCmd(func() *config.Config { return cfg }),
	)
	return root
}

func newConfigCmd(current func() *config.Config) *cobra.Command {
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the resolved configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := current().Write(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the instrument configuration file",
	}
	cmd.AddCommand(initCmd)
	return cmd
}

// direction pairs the single-frequency mapping with the conversion used to
// explain an undefined result.
type direction struct {
	mapOne  func(*signalchain.Chain, float64) (float64, bool)
	convert func(*signalchain.Chain, *signalchain.Signal)
}

var (
	forward  = direction{mapOne: (*signalchain.Chain).MapForward, convert: (*signalchain.Chain).ConvertForward}
	backward = direction{mapOne: (*signalchain.Chain).MapBackward, convert: (*signalchain.Chain).ConvertBackward}
)

// mapFrequencies prints one line per argument. Undefined results list the
// tones that came out of the chain.
func mapFrequencies(out io.Writer, chain *signalchain.Chain, args []string, dir direction) error {
	for _, arg := range args {
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("parse frequency %q: %w", arg, err)
		}
		if mapped, ok := dir.mapOne(chain, f); ok {
			fmt.Fprintf(out, "%.6f -> %.6f\n", f, mapped)
			continue
		}

		sig := signalchain.NewSignal(f)
		dir.convert(chain, sig)
		freqs := sig.Frequencies()
		if len(freqs) == 0 {
			fmt.Fprintf(out, "%.6f -> undefined (rejected)\n", f)
			continue
		}
		parts := make([]string, len(freqs))
		for i, v := range freqs {
			parts[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		fmt.Fprintf(out, "%.6f -> undefined (%d tones: %s)\n", f, len(freqs), strings.Join(parts, ", "))
	}
	return nil
}

func bindFlags(fs *pflag.FlagSet, lookup func(string) (string, bool), flags *cliFlags) {
	fs.StringVarP(&flags.configPath, "config", "c", envString(lookup, "HOSE_CONFIG", ""), "Instrument YAML file")
	fs.Float64Var(&flags.udcMHz, "udc-lo", 0, "UDC frequency in MHz (env HOSE_UDC_MHZ)")
	fs.BoolVar(&flags.lastFilter, "last-filter", false, "Include the 700-1200 MHz IF filter (env HOSE_LAST_FILTER)")
	fs.IntVar(&flags.fftSize, "fft-size", 0, "Spectrometer FFT length (env HOSE_FFT_SIZE)")
	fs.StringVar(&flags.metadataPath, "metadata", "", "Metadata JSON file the session records are appended to (env HOSE_METADATA)")
	fs.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (env HOSE_LOG_LEVEL)")
	fs.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json (env HOSE_LOG_FORMAT)")
}

// resolveConfig layers the config file, HOSE_* environment variables and
// explicitly set flags, in increasing priority.
func resolveConfig(fs *pflag.FlagSet, lookup func(string) (string, bool), flags cliFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.UDC.FrequencyMHz = envFloat(lookup, "HOSE_UDC_MHZ", cfg.UDC.FrequencyMHz)
	cfg.UDC.LastFilter = envBool(lookup, "HOSE_LAST_FILTER", cfg.UDC.LastFilter)
	cfg.Spectrometer.FFTSize = envInt(lookup, "HOSE_FFT_SIZE", cfg.Spectrometer.FFTSize)
	cfg.Output.MetadataPath = envString(lookup, "HOSE_METADATA", cfg.Output.MetadataPath)
	cfg.Log.Level = envString(lookup, "HOSE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envString(lookup, "HOSE_LOG_FORMAT", cfg.Log.Format)

	if fs.Changed("udc-lo") {
		cfg.UDC.FrequencyMHz = flags.udcMHz
	}
	if fs.Changed("last-filter") {
		cfg.UDC.LastFilter = flags.lastFilter
	}
	if fs.Changed("fft-size") {
		cfg.Spectrometer.FFTSize = flags.fftSize
	}
	if fs.Changed("metadata") {
		cfg.Output.MetadataPath = flags.metadataPath
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envFloat(lookup func(string) (string, bool), key string, def float64) float64 {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(lookup func(string) (string, bool), key string, def bool) bool {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}
