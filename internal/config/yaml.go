// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"spectra/internal/analysis"
	applog "spectra/internal/log"
	"spectra/pkg/bitint"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Audio capture settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Spectral transform settings.
	Display   DisplayConfig   `yaml:"display"`   // Rebinning and frame rate settings.
	Recording RecordingConfig `yaml:"recording"` // Audio recording settings.
	Transport TransportConfig `yaml:"transport"` // Frame transport settings.
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames delivered per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Number of input channels; only mono is supported.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Noise gate as a fraction of full scale (0 disables).
}

// AnalysisConfig holds settings for the spectral transform.
type AnalysisConfig struct {
	Preset         string  `yaml:"preset"`          // Window/hop preset: 512, 512n256, 2k or 2k1k.
	Scale          float64 `yaml:"scale"`           // Amplitude scale applied while accumulating.
	CalibrateTo    float64 `yaml:"calibrate_to"`    // When > 0, calibrate the scale to this peak at startup.
	OnsetThreshold float64 `yaml:"onset_threshold"` // Minimum spectral energy for an onset.
	OnsetRatio     float64 `yaml:"onset_ratio"`     // Minimum energy increase between ticks for an onset.
}

// DisplayConfig holds settings for turning spectra into display bins.
type DisplayConfig struct {
	Bins         int           `yaml:"bins"`          // Number of display bins per frame.
	ScaleMode    string        `yaml:"scale_mode"`    // "lin" or "log".
	Usage        float64       `yaml:"usage"`         // Fraction of spectrum bins shown, in (0, 1].
	KeepSum      bool          `yaml:"keep_sum"`      // Skip dividing display bins by their contributor count.
	Factor       float64       `yaml:"factor"`        // Amplitude factor applied while rebinning.
	TickInterval time.Duration `yaml:"tick_interval"` // Interval between analysis ticks.
	Raw          bool          `yaml:"raw"`           // Include the full spectrum in each frame.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Record the analysed stream to a WAV file.
	OutputDir   string `yaml:"output_dir"`           // Directory to save recorded audio files.
	MaxDuration int    `yaml:"max_duration_seconds"` // Maximum duration of a recording in seconds (0 for unlimited).
}

// TransportConfig holds settings related to publishing frames.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Serve frames over WebSocket.
	WebSocketAddress string `yaml:"websocket_address"`  // Listen address for the WebSocket server (e.g., ":8080").
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send frames as UDP packets.
	UDPTargetAddress string `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against the pipeline's limits.
func (c *Config) Validate() error {
	// Audio Validation
	if c.Audio.InputChannels != DefaultChannels {
		return fmt.Errorf("audio.input_channels must be 1 (mono), got %d", c.Audio.InputChannels)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %.0f", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be a power of 2 <= %d, got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold >= 1 {
		return fmt.Errorf("audio.gate_threshold must be in [0, 1), got %f", c.Audio.GateThreshold)
	}

	// Analysis Validation
	if _, err := analysis.ParsePreset(c.Analysis.Preset); err != nil {
		return fmt.Errorf("analysis.preset: %w", err)
	}
	if c.Analysis.Scale <= 0 {
		return fmt.Errorf("analysis.scale must be positive, got %f", c.Analysis.Scale)
	}
	if c.Analysis.CalibrateTo < 0 {
		return fmt.Errorf("analysis.calibrate_to must not be negative, got %f", c.Analysis.CalibrateTo)
	}

	// Display Validation
	if c.Display.Bins < 1 || c.Display.Bins > MaxBins {
		return fmt.Errorf("display.bins must be in [1, %d], got %d", MaxBins, c.Display.Bins)
	}
	if _, err := analysis.ParseScaleMode(c.Display.ScaleMode); err != nil {
		return fmt.Errorf("display.scale_mode: %w", err)
	}
	if c.Display.Usage <= 0 || c.Display.Usage > 1 {
		return fmt.Errorf("display.usage must be in (0, 1], got %f", c.Display.Usage)
	}
	if c.Display.TickInterval <= 0 {
		return fmt.Errorf("display.tick_interval must be positive, got %s", c.Display.TickInterval)
	}

	// Recording Validation
	if c.Recording.Enabled && c.Recording.OutputDir == "" {
		return fmt.Errorf("recording.output_dir must be set when recording is enabled")
	}
	if c.Recording.MaxDuration < 0 {
		return fmt.Errorf("recording.max_duration_seconds must not be negative, got %d", c.Recording.MaxDuration)
	}

	// Transport Validation
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		return fmt.Errorf("transport.websocket_address must be set when WebSocket is enabled")
	}

	return nil
}

// applyEnvOverrides replaces file or default values with ENV_* variables.
// Values that fail to parse are ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Infof("Config: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Infof("Config: Overriding log_level from env: %s", val)
	}

	// ENV_PRESET, ENV_SCALE_MODE
	// These are specific to analysis and display.

	if val, ok := os.LookupEnv("ENV_PRESET"); ok {
		c.Analysis.Preset = val
		applog.Infof("Config: Overriding analysis.preset from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_SCALE_MODE"); ok {
		c.Display.ScaleMode = val
		applog.Infof("Config: Overriding display.scale_mode from env: %s", val)
	}

	// ENV_UDP_{...}, ENV_WS_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			applog.Infof("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Infof("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		applog.Infof("Config: Overriding transport.websocket_address from env: %s", val)
	}
}
