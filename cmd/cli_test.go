// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"spectra/internal/audio"
	"spectra/internal/config"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *config.Config)
	}{
		{"No Flags", nil, func(t *testing.T, cfg *config.Config) {
			if *cfg != *config.Default() {
				t.Errorf("config changed without flags: %+v", cfg)
			}
		}},
		{"Audio", []string{"-d", "3", "-s", "48000", "-l", "--gate", "0.1"}, func(t *testing.T, cfg *config.Config) {
			if cfg.Audio.InputDevice != 3 || cfg.Audio.SampleRate != 48000 || !cfg.Audio.LowLatency || cfg.Audio.GateThreshold != 0.1 {
				t.Errorf("audio = %+v", cfg.Audio)
			}
		}},
		{"Frames Rounded Up", []string{"-b", "500"}, func(t *testing.T, cfg *config.Config) {
			if cfg.Audio.FramesPerBuffer != 512 {
				t.Errorf("FramesPerBuffer = %d, want 512", cfg.Audio.FramesPerBuffer)
			}
		}},
		{"Display", []string{"-p", "2k", "-n", "32", "-m", "lin", "-u", "1", "--keep-sum", "-f", "2", "--raw"}, func(t *testing.T, cfg *config.Config) {
			d := cfg.Display
			if cfg.Analysis.Preset != "2k" || d.Bins != 32 || d.ScaleMode != "lin" || d.Usage != 1 || !d.KeepSum || d.Factor != 2 || !d.Raw {
				t.Errorf("analysis = %+v, display = %+v", cfg.Analysis, d)
			}
		}},
		{"Output Enables Recording", []string{"-o", "take.wav"}, func(t *testing.T, cfg *config.Config) {
			if !cfg.Recording.Enabled {
				t.Error("--output did not enable recording")
			}
		}},
		{"Verbose", []string{"-v"}, func(t *testing.T, cfg *config.Config) {
			if !cfg.Debug {
				t.Error("--verbose did not enable debug")
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &options{}
			root := newRootCommand(opts)
			if err := root.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			cfg := config.Default()
			if err := opts.apply(root, cfg); err != nil {
				t.Fatalf("apply() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestApply_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Unknown Preset", []string{"-p", "4k"}},
		{"Unknown Scale Mode", []string{"-m", "mel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &options{}
			root := newRootCommand(opts)
			if err := root.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}
			if err := opts.apply(root, config.Default()); err == nil {
				t.Error("apply() accepted an invalid value")
			}
		})
	}
}

// execute runs the CLI with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCalibrateCommand(t *testing.T) {
	out, err := execute(t, "calibrate", "--all")
	if err != nil {
		t.Fatalf("calibrate --all error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("calibrate --all printed %d lines, want 4:\n%s", len(lines), out)
	}
	for i, prefix := range []string{"512 ", "512n256 ", "2k ", "2k1k "} {
		if !strings.HasPrefix(lines[i], prefix) || !strings.Contains(lines[i], "scale ") {
			t.Errorf("line %d = %q", i, lines[i])
		}
	}

	out, err = execute(t, "calibrate", "2", "-p", "2k")
	if err != nil {
		t.Fatalf("calibrate 2 error = %v", err)
	}
	if !strings.Contains(out, "window 2048 hop 2048") {
		t.Errorf("calibrate -p 2k output = %q", out)
	}

	if _, err := execute(t, "calibrate", "loud"); err == nil {
		t.Error("calibrate accepted a non-numeric target")
	}
	if _, err := execute(t, "calibrate", "-1"); err == nil {
		t.Error("calibrate accepted a negative target")
	}
}

// writeSine writes one channel of a 1 kHz sine as a 16-bit WAV file.
func writeSine(t *testing.T, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Data:   make([]int, samples),
		Format: &goaudio.Format{NumChannels: 1, SampleRate: 44100},
	}
	for i := range buf.Data {
		buf.Data[i] = int(math.Sin(2*math.Pi*1000*float64(i)/44100) * 16000)
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestAnalyzeCommand(t *testing.T) {
	path := writeSine(t, 44100)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"Default Preset", nil, []string{"tone.wav", "frames", "44100 Hz", "window 512, hop 256"}},
		{"2k Preset", []string{"-p", "2k"}, []string{"window 2048, hop 2048"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"analyze", path}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("analyze error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output %q missing %q", out, want)
				}
			}
		})
	}
}

func TestAnalyzeCommand_Record(t *testing.T) {
	path := writeSine(t, 8192)
	output := filepath.Join(t.TempDir(), "copy.wav")

	if _, err := execute(t, "analyze", path, "-o", output); err != nil {
		t.Fatalf("analyze -o error = %v", err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()
	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode recording: %v", err)
	}
	if len(buf.Data) != 8192 {
		t.Errorf("recording holds %d samples, want 8192", len(buf.Data))
	}
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	if _, err := execute(t, "analyze"); err == nil {
		t.Error("analyze without a file succeeded")
	}

	missing := filepath.Join(t.TempDir(), "missing.wav")
	if _, err := execute(t, "analyze", missing); !errors.Is(err, audio.ErrCaptureUnavailable) {
		t.Errorf("analyze missing file error = %v, want ErrCaptureUnavailable", err)
	}

	garbage := filepath.Join(t.TempDir(), "garbage.wav")
	if err := os.WriteFile(garbage, []byte("not a wav file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "analyze", garbage); !errors.Is(err, audio.ErrUnsupportedFile) {
		t.Errorf("analyze garbage error = %v, want ErrUnsupportedFile", err)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	if _, err := execute(t, "calibrate", "-n", "0"); err == nil || !strings.Contains(err.Error(), "display.bins") {
		t.Errorf("error = %v, want display.bins validation", err)
	}
}

func TestCaptureSummary(t *testing.T) {
	want := "3 callbacks, 1536 samples delivered, 1024 samples drained"
	if got := captureSummary(3, 1536, 1024); got != want {
		t.Errorf("captureSummary() = %q, want %q", got, want)
	}
}
