// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"spectra/internal/buffer"
)

// Reference tone used by Transform.Calibrate: 8000 samples of a full-scale
// sine with a period of 44.1 samples, i.e. 1 kHz at 44.1 kHz.
const (
	ReferenceSamples = 8000
	ReferencePeriod  = 44100.0 / 1000.0

	// signalBlock is the chunk size generated signals are split into, so they
	// exercise the chunked read path the same way captured audio does.
	signalBlock = 2000
)

// Signal produces synthetic mono test signals.
type Signal interface {
	// Generate returns samples values with the given period (in samples).
	Generate(samples int, period float64) *buffer.Chunked
}

// SineSignal generates a sine wave.
type SineSignal struct {
	Amplitude float64
}

// NewSineSignal returns a full-scale sine generator.
func NewSineSignal() *SineSignal {
	return &SineSignal{Amplitude: math.MaxInt16}
}

func (s *SineSignal) Generate(samples int, period float64) *buffer.Chunked {
	step := 2 * math.Pi / period
	return generate(samples, func(i int) float64 {
		return math.Sin(float64(i)*step) * s.Amplitude
	})
}

// SquareSignal generates a square wave.
type SquareSignal struct {
	Amplitude float64
}

// NewSquareSignal returns a full-scale square wave generator.
func NewSquareSignal() *SquareSignal {
	return &SquareSignal{Amplitude: math.MaxInt16}
}

func (s *SquareSignal) Generate(samples int, period float64) *buffer.Chunked {
	whole := max(int(period), 1)
	half := whole / 2
	return generate(samples, func(i int) float64 {
		if i%whole <= half {
			return s.Amplitude
		}
		return -s.Amplitude
	})
}

func generate(samples int, value func(i int) float64) *buffer.Chunked {
	data := buffer.NewChunked(1)
	for start := 0; start < samples; start += signalBlock {
		chunk := make(buffer.Chunk, min(signalBlock, samples-start))
		for j := range chunk {
			chunk[j] = toInt16(value(start + j))
		}
		data.Add(chunk)
	}
	return data
}

// toInt16 truncates towards zero and saturates at the int16 range.
func toInt16(v float64) int16 {
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

// ReferenceTone returns the calibration signal.
func ReferenceTone() *buffer.Chunked {
	return NewSineSignal().Generate(ReferenceSamples, ReferencePeriod)
}
