// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"spectra/internal/buffer"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// constantBuffer returns a mono buffer of n samples of value v, split into
// chunks of chunkSize.
func constantBuffer(n, chunkSize int, v int16) *buffer.Chunked {
	buf := buffer.NewChunked(1)
	for start := 0; start < n; start += chunkSize {
		chunk := make(buffer.Chunk, min(chunkSize, n-start))
		for i := range chunk {
			chunk[i] = v
		}
		buf.Add(chunk)
	}
	return buf
}

func TestNewTransformValidation(t *testing.T) {
	tests := []struct {
		name    string
		window  int
		hop     int
		w       Window
		wantErr bool
	}{
		{"valid", 512, 256, NewHamming(512), false},
		{"hop equals window", 512, 512, NewHamming(512), false},
		{"not power of two", 500, 250, NewHamming(500), true},
		{"too small", 2, 1, NewHamming(2), true},
		{"zero hop", 512, 0, NewHamming(512), true},
		{"hop beyond window", 512, 513, NewHamming(512), true},
		{"window length mismatch", 512, 256, NewHamming(256), true},
		{"nil window", 512, 256, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransform(tt.window, tt.hop, tt.w)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTransform(%d, %d) error = %v, wantErr %v", tt.window, tt.hop, err, tt.wantErr)
			}
		})
	}
}

func TestExecuteEmptyBuffer(t *testing.T) {
	tr, err := Preset512Hop256.New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// The empty check comes first, so even a stereo buffer is accepted.
	for _, channels := range []int{1, 2} {
		s, err := tr.Execute(buffer.NewChunked(channels))
		if err != nil {
			t.Fatalf("Execute(empty, %d channels) error: %v", channels, err)
		}
		if s.Len() != 257 {
			t.Errorf("Len() = %d, want 257", s.Len())
		}
		if s.Max() != 0 {
			t.Errorf("Max() = %f, want 0", s.Max())
		}
	}
}

func TestExecuteChannelMismatch(t *testing.T) {
	tr, err := Preset512.New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	buf := buffer.NewChunked(2)
	buf.Add(make(buffer.Chunk, 2048))

	if _, err := tr.Execute(buf); !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("Execute(stereo) error = %v, want ErrChannelMismatch", err)
	}
}

func TestExecuteDropsPartialWindow(t *testing.T) {
	tr, err := Preset512.New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// windowSize+1 samples hold no complete window.
	s, err := tr.Execute(constantBuffer(513, 100, 1000))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if s.Max() != 0 {
		t.Errorf("short buffer: Max() = %f, want 0", s.Max())
	}

	s, err = tr.Execute(constantBuffer(514, 100, 1000))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if s.Max() <= 0 {
		t.Error("one complete window: Max() = 0, want > 0")
	}
}

func TestExecuteAveragesWindows(t *testing.T) {
	tr, err := Preset512Hop256.New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	single, err := tr.Execute(constantBuffer(514, 514, 4000))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	many, err := tr.Execute(constantBuffer(8000, 333, 4000))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	// A stationary signal gives identical windows, so the average equals one.
	a, b := single.Vector(), many.Vector()
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9*math.Max(1, a[i]) {
			t.Fatalf("bin %d: single window %g, averaged %g", i, a[i], b[i])
		}
	}
}

func TestExecutePeakBin(t *testing.T) {
	tr, err := Preset512Hop256.New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	s, err := tr.Execute(ReferenceTone())
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	// 1 kHz at 44.1 kHz with 512 samples falls at bin 11.6.
	peak := floats.MaxIdx(s.Vector())
	if peak != 11 && peak != 12 {
		t.Errorf("peak bin = %d, want 11 or 12", peak)
	}
	if f := tr.BinFrequency(peak, 44100); f < 900 || f > 1100 {
		t.Errorf("peak frequency = %.1f Hz, want about 1000", f)
	}
}

func TestExecuteMatchesReferenceFFT(t *testing.T) {
	const windowSize = 256
	tr, err := NewTransform(windowSize, windowSize, NewHamming(windowSize))
	if err != nil {
		t.Fatalf("NewTransform error: %v", err)
	}
	tr.SetScale(2.5)

	buf := NewSineSignal().Generate(windowSize+2, 9.3)
	s, err := tr.Execute(buf)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	input := make([]float64, windowSize)
	w := NewHamming(windowSize)
	for i := range input {
		v, err := buf.At(i)
		if err != nil {
			t.Fatalf("At(%d) error: %v", i, err)
		}
		input[i] = float64(v) * buf.InputScale() * w.Coefficient(i)
	}
	ref := fft.FFTReal(input)

	got := s.Vector()
	for i := range got {
		k := 2.0
		if i == windowSize/2 {
			k = 1.0
		}
		want := cmplx.Abs(ref[i]) * 2.5 * k / windowSize
		if math.Abs(got[i]-want) > 1e-9 {
			t.Errorf("bin %d = %.12f, want %.12f", i, got[i], want)
		}
	}
}

func TestCalibrateFixedPoint(t *testing.T) {
	for _, p := range Presets() {
		t.Run(p.String(), func(t *testing.T) {
			tr, err := p.New()
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}

			scale, err := tr.Calibrate(10.0)
			if err != nil {
				t.Fatalf("Calibrate error: %v", err)
			}
			if scale != tr.Scale() || scale <= 0 {
				t.Fatalf("Calibrate returned %f, Scale() = %f", scale, tr.Scale())
			}

			s, err := tr.Execute(ReferenceTone())
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			if math.Abs(s.Max()-10.0) > 1e-9 {
				t.Errorf("calibrated peak = %.12f, want 10", s.Max())
			}

			// Calibration starts from scale 1 regardless of the previous scale.
			again, err := tr.Calibrate(10.0)
			if err != nil {
				t.Fatalf("second Calibrate error: %v", err)
			}
			if math.Abs(again-scale) > 1e-12 {
				t.Errorf("second Calibrate = %f, want %f", again, scale)
			}
		})
	}
}

func TestSetHopSize(t *testing.T) {
	tr, err := Preset512.New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := tr.SetHopSize(128); err != nil {
		t.Errorf("SetHopSize(128) error: %v", err)
	}
	if tr.HopSize() != 128 {
		t.Errorf("HopSize() = %d, want 128", tr.HopSize())
	}
	for _, hop := range []int{0, -1, 513} {
		if err := tr.SetHopSize(hop); err == nil {
			t.Errorf("SetHopSize(%d) succeeded, want error", hop)
		}
	}
	if tr.HopSize() != 128 {
		t.Errorf("rejected hop changed HopSize() to %d", tr.HopSize())
	}
}

func TestBinFrequency(t *testing.T) {
	tests := []struct {
		bin  int
		want float64
	}{
		{0, 0},
		{1, 44100.0 / 512},
		{256, 22050},
		{257, 0},
		{-1, 0},
	}

	for _, tt := range tests {
		if got := BinFrequency(tt.bin, 512, 44100); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("BinFrequency(%d) = %f, want %f", tt.bin, got, tt.want)
		}
	}
}

func BenchmarkExecute(b *testing.B) {
	tone := NewSineSignal().Generate(44100/30, ReferencePeriod)
	for _, p := range Presets() {
		tr, err := p.New()
		if err != nil {
			b.Fatalf("New() error: %v", err)
		}
		b.Run(p.String(), func(b *testing.B) {
			for b.Loop() {
				if _, err := tr.Execute(tone); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
