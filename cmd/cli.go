// SPDX-License-Identifier: MIT
//
// Package cmd implements the command line interface.
package cmd

import (
	"context"
	"fmt"
	"spectra/internal/analysis"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/pkg/bitint"
	"spectra/pkg/build"

	"github.com/spf13/cobra"
)

// options holds the values of command line flags. Flags that were not set on
// the command line leave the loaded configuration untouched.
type options struct {
	configPath string

	// Audio Device Configuration
	device          int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	gate            float64

	// Analysis and Display Configuration
	preset    string
	calibrate float64
	bins      int
	scaleMode string
	usage     float64
	keepSum   bool
	factor    float64
	raw       bool

	// Recording Configuration
	record bool
	output string

	tui     bool
	verbose bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(opts *options) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Long:          build.Description + ". Captures mono audio, runs a short-time Fourier transform and publishes display spectra.",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			return runLive(cmd.Context(), cfg, opts)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to the YAML configuration file (default: ./config.yaml when present)")

	// Audio Device Configuration
	flags.IntVarP(&opts.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency), rounded up to a power of 2")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	flags.Float64Var(&opts.gate, "gate", config.DefaultGateThreshold,
		"Noise gate threshold as a fraction of full scale (0 disables)")

	// Analysis and Display Configuration
	flags.StringVarP(&opts.preset, "preset", "p", config.DefaultPreset,
		"Window/hop preset: 512, 512n256, 2k or 2k1k")
	flags.Float64Var(&opts.calibrate, "calibrate", 0,
		"Calibrate the transform so the reference tone peaks at this value (0 keeps the configured scale)")
	flags.IntVarP(&opts.bins, "bins", "n", config.DefaultBins,
		"Number of display bins")
	flags.StringVarP(&opts.scaleMode, "scale-mode", "m", config.DefaultScaleMode,
		"Rebinning mode: lin or log")
	flags.Float64VarP(&opts.usage, "usage", "u", config.DefaultUsage,
		"Fraction of the spectrum shown, in (0, 1]")
	flags.BoolVar(&opts.keepSum, "keep-sum", false,
		"Keep summed display bins instead of averaging contributors")
	flags.Float64VarP(&opts.factor, "factor", "f", config.DefaultFactor,
		"Amplitude factor applied while rebinning")
	flags.BoolVar(&opts.raw, "raw", false,
		"Include the full spectrum in every frame")

	// Recording Configuration
	flags.BoolVarP(&opts.record, "record", "r", false,
		"Record the analysed audio to a WAV file")
	flags.StringVarP(&opts.output, "output", "o", "",
		"Output file name. Default is <output_dir>/spectra-YYYYMMDD-HHMMSS.wav")

	// Interface and Debug Configuration
	flags.BoolVarP(&opts.tui, "tui", "t", false,
		"Show the live spectrum in the terminal")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		newListCommand(),
		newDevicesCommand(opts),
		newCalibrateCommand(opts),
		newAnalyzeCommand(opts),
	)

	return rootCmd
}

// Execute runs the command line interface with ctx.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// load reads the configuration file, applies the flags that were set and
// validates the result. It also sets the log level.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	if err := o.apply(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging(cfg, o.verbose)
	return cfg, nil
}

// apply copies explicitly set flags into cfg.
func (o *options) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("device") {
		cfg.Audio.InputDevice = o.device
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = o.sampleRate
	}
	if flags.Changed("frames-per-buffer") {
		frames := o.framesPerBuffer
		if !bitint.IsPowerOfTwo(frames) {
			frames = bitint.NextPowerOfTwo(frames)
			applog.Warnf("Config: Rounding frames per buffer %d up to %d", o.framesPerBuffer, frames)
		}
		cfg.Audio.FramesPerBuffer = frames
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = o.lowLatency
	}
	if flags.Changed("gate") {
		cfg.Audio.GateThreshold = o.gate
	}

	if flags.Changed("preset") {
		if _, err := analysis.ParsePreset(o.preset); err != nil {
			return err
		}
		cfg.Analysis.Preset = o.preset
	}
	if flags.Changed("calibrate") {
		cfg.Analysis.CalibrateTo = o.calibrate
	}
	if flags.Changed("bins") {
		cfg.Display.Bins = o.bins
	}
	if flags.Changed("scale-mode") {
		if _, err := analysis.ParseScaleMode(o.scaleMode); err != nil {
			return err
		}
		cfg.Display.ScaleMode = o.scaleMode
	}
	if flags.Changed("usage") {
		cfg.Display.Usage = o.usage
	}
	if flags.Changed("keep-sum") {
		cfg.Display.KeepSum = o.keepSum
	}
	if flags.Changed("factor") {
		cfg.Display.Factor = o.factor
	}
	if flags.Changed("raw") {
		cfg.Display.Raw = o.raw
	}

	if flags.Changed("record") {
		cfg.Recording.Enabled = o.record
	}
	if o.output != "" {
		cfg.Recording.Enabled = true
	}
	if flags.Changed("verbose") && o.verbose {
		cfg.Debug = true
	}

	return nil
}

// configureLogging applies the configured log level. Debug mode and the
// verbose flag both force debug output.
func configureLogging(cfg *config.Config, verbose bool) {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("Config: Unknown log level '%s', using info", cfg.LogLevel)
		level = applog.LevelInfo
	}
	if cfg.Debug || verbose {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
}
