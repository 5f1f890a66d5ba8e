// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"spectra/internal/analysis"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Preset() != analysis.Preset512Hop256 {
		t.Errorf("default preset = %v, want 512n256", cfg.Preset())
	}
	if cfg.ScaleMode() != analysis.ScaleLogarithmic {
		t.Errorf("default scale mode = %v, want log", cfg.ScaleMode())
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected unmarshal error, got %v", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 48000
  frames_per_buffer: 1024
analysis:
  preset: 2k1k
  calibrate_to: 100
display:
  bins: 32
  scale_mode: lin
  usage: 0.25
  keep_sum: true
  tick_interval: 50ms
transport:
  websocket_enabled: false
  udp_enabled: true
  udp_target_address: 10.0.0.2:7000
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerBuffer != 1024 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	// Fields missing from the file keep their defaults.
	if cfg.Audio.InputChannels != DefaultChannels || cfg.Audio.InputDevice != DefaultDeviceID {
		t.Errorf("audio defaults lost: %+v", cfg.Audio)
	}
	if cfg.Preset() != analysis.Preset2kHop1k || cfg.Analysis.CalibrateTo != 100 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Display.Bins != 32 || cfg.ScaleMode() != analysis.ScaleLinear || cfg.Display.Usage != 0.25 || !cfg.Display.KeepSum {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Display.TickInterval != 50*time.Millisecond {
		t.Errorf("tick_interval = %s, want 50ms", cfg.Display.TickInterval)
	}
	if cfg.Transport.WebSocketEnabled || !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.2:7000" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_LOG_LEVEL", "warn")
	t.Setenv("ENV_PRESET", "2k")
	t.Setenv("ENV_SCALE_MODE", "lin")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "192.168.1.5:9000")
	t.Setenv("ENV_WS_ADDRESS", ":9999")

	path := writeTempConfig(t, "analysis:\n  preset: \"512\"\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if !cfg.Debug || cfg.LogLevel != "warn" {
		t.Errorf("debug/log_level not overridden: %v %s", cfg.Debug, cfg.LogLevel)
	}
	if cfg.Preset() != analysis.Preset2k {
		t.Errorf("preset = %v, want 2k", cfg.Preset())
	}
	if cfg.ScaleMode() != analysis.ScaleLinear {
		t.Errorf("scale mode = %v, want lin", cfg.ScaleMode())
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "192.168.1.5:9000" {
		t.Errorf("udp not overridden: %+v", cfg.Transport)
	}
	if cfg.Transport.WebSocketAddress != ":9999" {
		t.Errorf("websocket_address = %s, want :9999", cfg.Transport.WebSocketAddress)
	}
}

func TestLoadConfig_EnvInvalidBoolIgnored(t *testing.T) {
	t.Setenv("ENV_UDP_ENABLED", "maybe")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Transport.UDPEnabled {
		t.Error("invalid ENV_UDP_ENABLED changed udp_enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		substr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"stereo", func(c *Config) { c.Audio.InputChannels = 2 }, "input_channels"},
		{"sample rate low", func(c *Config) { c.Audio.SampleRate = 4000 }, "sample_rate"},
		{"sample rate high", func(c *Config) { c.Audio.SampleRate = 384000 }, "sample_rate"},
		{"frames not pow2", func(c *Config) { c.Audio.FramesPerBuffer = 500 }, "frames_per_buffer"},
		{"frames too large", func(c *Config) { c.Audio.FramesPerBuffer = 16384 }, "frames_per_buffer"},
		{"bad device", func(c *Config) { c.Audio.InputDevice = -2 }, "input_device"},
		{"negative gate", func(c *Config) { c.Audio.GateThreshold = -0.1 }, "gate_threshold"},
		{"full scale gate", func(c *Config) { c.Audio.GateThreshold = 1 }, "gate_threshold"},
		{"gate", func(c *Config) { c.Audio.GateThreshold = 0.02 }, ""},
		{"unknown preset", func(c *Config) { c.Analysis.Preset = "4k" }, "analysis.preset"},
		{"zero scale", func(c *Config) { c.Analysis.Scale = 0 }, "analysis.scale"},
		{"negative calibration", func(c *Config) { c.Analysis.CalibrateTo = -1 }, "calibrate_to"},
		{"zero bins", func(c *Config) { c.Display.Bins = 0 }, "display.bins"},
		{"unknown scale mode", func(c *Config) { c.Display.ScaleMode = "mel" }, "scale_mode"},
		{"zero usage", func(c *Config) { c.Display.Usage = 0 }, "display.usage"},
		{"usage above one", func(c *Config) { c.Display.Usage = 1.5 }, "display.usage"},
		{"full usage", func(c *Config) { c.Display.Usage = 1 }, ""},
		{"zero tick", func(c *Config) { c.Display.TickInterval = 0 }, "tick_interval"},
		{"recording without dir", func(c *Config) { c.Recording.Enabled = true; c.Recording.OutputDir = "" }, "output_dir"},
		{"udp without target", func(c *Config) { c.Transport.UDPEnabled = true; c.Transport.UDPTargetAddress = "" }, "udp_target_address"},
		{"ws without address", func(c *Config) { c.Transport.WebSocketAddress = "" }, "websocket_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.substr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.substr)
			}
		})
	}
}
