// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/tui"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newListCommand prints the host's audio devices.
func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			return audio.ListDevices(cmd.OutOrStdout())
		},
	}
}

// newDevicesCommand runs the interactive device picker and prints the audio
// section to put into config.yaml.
func newDevicesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Pick an input device interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			selection, ok, err := tui.PickDevice()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			cfg.Audio.InputDevice = selection.DeviceID
			cfg.Audio.SampleRate = selection.SampleRate
			return writeAudioSection(cmd, cfg, selection.DeviceName)
		},
	}
}

func writeAudioSection(cmd *cobra.Command, cfg *config.Config, deviceName string) error {
	out, err := yaml.Marshal(struct {
		Audio config.AudioConfig `yaml:"audio"`
	}{cfg.Audio})
	if err != nil {
		return fmt.Errorf("encoding audio configuration: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", deviceName, out)
	return nil
}

// newCalibrateCommand prints the calibration scale of the configured preset,
// or of every preset with --all.
func newCalibrateCommand(opts *options) *cobra.Command {
	var all bool

	calibrateCmd := &cobra.Command{
		Use:   "calibrate [target]",
		Short: "Measure the transform scale that maps the reference tone to target (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			target := 1.0
			if len(args) == 1 {
				target, err = strconv.ParseFloat(args[0], 64)
				if err != nil || target <= 0 {
					return fmt.Errorf("target must be a positive number, got '%s'", args[0])
				}
			}

			presets := []analysis.Preset{cfg.Preset()}
			if all {
				presets = analysis.Presets()
			}

			for _, p := range presets {
				t, err := p.New()
				if err != nil {
					return err
				}
				scale, err := t.Calibrate(target)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s window %4d hop %4d scale %.6f\n",
					p, t.WindowSize(), t.HopSize(), scale)
			}
			return nil
		},
	}
	calibrateCmd.Flags().BoolVarP(&all, "all", "a", false, "Calibrate every preset")

	return calibrateCmd
}

// newAnalyzeCommand runs the pipeline over a WAV file.
func newAnalyzeCommand(opts *options) *cobra.Command {
	var paced bool

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Analyse a 16-bit WAV file and log its frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			summary, err := runFile(cmd.Context(), cfg, args[0], opts.output, paced)
			if err != nil {
				return err
			}
			applog.Infof("Analyze: %s", summary)
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	analyzeCmd.Flags().BoolVar(&paced, "paced", false,
		"Feed the file at its sample rate instead of as fast as possible")

	return analyzeCmd
}
