// SPDX-License-Identifier: MIT
package config

import (
	"spectra/internal/analysis"
	"time"
)

// Core configuration constants that define the boundaries and defaults
// for the capture and analysis pipeline.
const (
	// Default values for the audio input.
	DefaultChannels        = 1           // Mono only
	DefaultDeviceID        = MinDeviceID // Default to system default device
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultGateThreshold   = 0.0         // Gate disabled

	// Default values for analysis and display.
	DefaultPreset         = "512n256"
	DefaultScale          = 1.0
	DefaultOnsetThreshold = 0.05
	DefaultOnsetRatio     = 1.5
	DefaultBins           = 16
	DefaultScaleMode      = "log"
	DefaultUsage          = 0.5 // Upper half of the spectrum is rarely interesting
	DefaultFactor         = 1.0
	DefaultTickInterval   = 33 * time.Millisecond // ~30Hz

	// Default values for recording and transport.
	DefaultOutputDir        = "./recordings"
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MaxBins         = 4096   // Upper bound on display bins
)

// Default returns a configuration holding the built-in defaults.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
			GateThreshold:   DefaultGateThreshold,
		},
		Analysis: AnalysisConfig{
			Preset:         DefaultPreset,
			Scale:          DefaultScale,
			OnsetThreshold: DefaultOnsetThreshold,
			OnsetRatio:     DefaultOnsetRatio,
		},
		Display: DisplayConfig{
			Bins:         DefaultBins,
			ScaleMode:    DefaultScaleMode,
			Usage:        DefaultUsage,
			Factor:       DefaultFactor,
			TickInterval: DefaultTickInterval,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: DefaultOutputDir,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTargetAddress,
		},
	}
}

// Preset returns the configured analysis preset. Call after Validate.
func (c *Config) Preset() analysis.Preset {
	p, _ := analysis.ParsePreset(c.Analysis.Preset)
	return p
}

// ScaleMode returns the configured rebinning mode. Call after Validate.
func (c *Config) ScaleMode() analysis.ScaleMode {
	m, _ := analysis.ParseScaleMode(c.Display.ScaleMode)
	return m
}
