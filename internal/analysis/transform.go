// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"spectra/internal/buffer"
	applog "spectra/internal/log"
	"spectra/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrChannelMismatch is returned when a buffer with more than one channel is
// handed to the transform. The transform only analyses mono input.
var ErrChannelMismatch = errors.New("channel mismatch")

// Pre-allocated buffers reused across windows and calls.
type transformWorkspace struct {
	samples []int16      // Raw samples of the current window.
	input   []float64    // Scaled and windowed input.
	coeffs  []complex128 // Transform output, windowSize/2+1 bins.
}

// Transform runs a windowed, hopped Fourier transform (STFT) across a chunked
// buffer and averages the magnitudes of all complete windows into a Spectrum.
//
// A Transform owns its workspace and is not safe for concurrent use.
type Transform struct {
	windowSize int
	hopSize    int
	window     Window
	fft        *fourier.FFT // Reusable FFT calculator instance.
	scale      float64
	workspace  transformWorkspace
}

// Compile-time check for interface implementation.
var _ Analyzer = (*Transform)(nil)

// NewTransform creates a transform for windows of windowSize samples advanced
// by hopSize samples. windowSize must be a power of two no smaller than 4,
// hopSize must satisfy 0 < hopSize <= windowSize and w must cover exactly
// windowSize samples.
func NewTransform(windowSize, hopSize int, w Window) (*Transform, error) {
	if !bitint.IsPowerOfTwo(windowSize) || windowSize < 4 {
		return nil, fmt.Errorf("window size must be a power of 2 >= 4, got %d", windowSize)
	}
	if err := validateHop(windowSize, hopSize); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("window function is required")
	}
	if w.Len() != windowSize {
		return nil, fmt.Errorf("window length %d does not match window size %d", w.Len(), windowSize)
	}

	applog.Debugf("Analysis: Initializing Transform (Window: %d, Hop: %d)", windowSize, hopSize)

	return &Transform{
		windowSize: windowSize,
		hopSize:    hopSize,
		window:     w,
		fft:        fourier.NewFFT(windowSize),
		scale:      1.0,
		workspace: transformWorkspace{
			samples: make([]int16, windowSize),
			input:   make([]float64, windowSize),
			coeffs:  make([]complex128, windowSize/2+1),
		},
	}, nil
}

func validateHop(windowSize, hopSize int) error {
	if hopSize <= 0 || hopSize > windowSize {
		return fmt.Errorf("hop size must be in (0, %d], got %d", windowSize, hopSize)
	}
	return nil
}

// Execute analyses buf and returns a new Spectrum.
//
// An empty buffer yields an all-zero spectrum. Only windows that lie fully
// inside the buffer are processed; a trailing partial window is dropped rather
// than zero padded, which would report artificially low energy. The summed
// magnitudes are divided by the number of windows processed.
func (t *Transform) Execute(buf *buffer.Chunked) (*Spectrum, error) {
	spectrum := NewSpectrum(t.windowSize)
	if buf.Empty() {
		return spectrum, nil
	}
	if buf.Channels() != 1 {
		return nil, fmt.Errorf("%w: transform expects 1 channel, got %d", ErrChannelMismatch, buf.Channels())
	}

	spectrum.SetAddScale(t.scale)
	inputScale := buf.InputScale()
	size := buf.Size()
	ws := &t.workspace

	windows := 0
	for pos := 0; pos+t.windowSize+1 < size; pos += t.hopSize {
		if _, err := buf.ReadInto(ws.samples, pos); err != nil {
			return nil, fmt.Errorf("reading window at %d: %w", pos, err)
		}
		for i, sample := range ws.samples {
			ws.input[i] = float64(sample) * inputScale * t.window.Coefficient(i)
		}
		t.fft.Coefficients(ws.coeffs, ws.input)
		spectrum.Add(ws.coeffs)
		windows++
	}

	if windows == 0 {
		applog.Debugf("Analysis: %d samples hold no complete window of %d", size, t.windowSize)
		return spectrum, nil
	}

	spectrum.Scale(1.0 / float64(windows))
	return spectrum, nil
}

// Calibrate resets the scale to 1, analyses the reference tone and sets the
// scale so that the tone's peak bin reads target. The scale depends on window
// shape, window length and input scaling, so it is measured rather than
// derived. Returns the new scale.
func (t *Transform) Calibrate(target float64) (float64, error) {
	t.scale = 1.0

	spectrum, err := t.Execute(ReferenceTone())
	if err != nil {
		return t.scale, fmt.Errorf("calibration failed: %w", err)
	}

	peak := spectrum.Max()
	if peak <= 0 {
		return t.scale, fmt.Errorf("calibration failed: reference tone produced no energy for window %d", t.windowSize)
	}

	t.scale = target / peak
	applog.Infof("Analysis: Calibrated window %d/%d to %.3f (peak %.6f, scale %.6f)",
		t.windowSize, t.hopSize, target, peak, t.scale)
	return t.scale, nil
}

// Scale returns the amplitude scale applied while accumulating.
func (t *Transform) Scale() float64 {
	return t.scale
}

// SetScale sets the amplitude scale applied while accumulating.
func (t *Transform) SetScale(scale float64) {
	t.scale = scale
}

// HopSize returns the step between successive windows.
func (t *Transform) HopSize() int {
	return t.hopSize
}

// SetHopSize changes the step between successive windows. A hop equal to the
// window size gives non-overlapping windows; smaller hops give finer time
// resolution at higher cost.
func (t *Transform) SetHopSize(hopSize int) error {
	if err := validateHop(t.windowSize, hopSize); err != nil {
		return err
	}
	t.hopSize = hopSize
	return nil
}

// WindowSize returns the number of samples per window.
func (t *Transform) WindowSize() int {
	return t.windowSize
}

// BinFrequency returns the center frequency (Hz) of a spectrum bin.
func (t *Transform) BinFrequency(bin int, sampleRate float64) float64 {
	return BinFrequency(bin, t.windowSize, sampleRate)
}

// BinFrequency returns the center frequency (Hz) of bin for a transform of
// windowSize samples.
func BinFrequency(bin, windowSize int, sampleRate float64) float64 {
	if bin < 0 || bin > windowSize/2 || windowSize <= 0 {
		return 0.0
	}
	return float64(bin) * sampleRate / float64(windowSize)
}
