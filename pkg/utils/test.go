// SPDX-License-Identifier: MIT
//
// Package utils holds helpers shared by tests across the module: a recording
// transport and synthetic signal generators.
package utils

import (
	"math"
	"sync"

	"spectra/internal/buffer"
	"spectra/internal/transport"
)

// MockTransport implements the Transport interface for testing. It records a
// copy of every frame instead of transmitting.
type MockTransport struct {
	mu     sync.Mutex
	frames []transport.Frame
	closed bool
	Err    error // Returned from Send when set.
}

// Ensure MockTransport satisfies the interface at compile time.
var _ transport.Transport = (*MockTransport)(nil)

// Send stores a copy of the frame for later inspection.
func (m *MockTransport) Send(frame *transport.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.frames = append(m.frames, CopyFrame(frame))
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Frames returns every frame received so far.
func (m *MockTransport) Frames() []transport.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transport.Frame, len(m.frames))
	copy(out, m.frames)
	return out
}

// Last returns the most recent frame, or false if none arrived yet.
func (m *MockTransport) Last() (transport.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return transport.Frame{}, false
	}
	return m.frames[len(m.frames)-1], true
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CopyFrame returns a deep copy of frame, so the caller may reuse its slices.
func CopyFrame(frame *transport.Frame) transport.Frame {
	out := *frame
	if frame.Bins != nil {
		out.Bins = make([]float32, len(frame.Bins))
		copy(out.Bins, frame.Bins)
	}
	if frame.Raw != nil {
		out.Raw = make([]float64, len(frame.Raw))
		copy(out.Raw, frame.Raw)
	}
	if frame.Bands != nil {
		out.Bands = make(map[string]float64, len(frame.Bands))
		for k, v := range frame.Bands {
			out.Bands[k] = v
		}
	}
	return out
}

// GenerateComplexWave returns a 440Hz tone with its first two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []int16 {
	samples := make([]int16, size)
	for i := range samples {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		samples[i] = int16(signal * math.MaxInt16 * 0.9)
	}
	return samples
}

// GenerateSineWave returns a sine at frequency with 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int16 {
	samples := make([]int16, size)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = int16(math.Sin(2*math.Pi*frequency*t) * math.MaxInt16 * 0.9)
	}
	return samples
}

// Chunked splits samples into mono chunks of chunkSize samples.
func Chunked(samples []int16, chunkSize int) *buffer.Chunked {
	data := buffer.NewChunked(1)
	if chunkSize <= 0 {
		chunkSize = len(samples)
	}
	for start := 0; start < len(samples); start += chunkSize {
		end := min(start+chunkSize, len(samples))
		chunk := make(buffer.Chunk, end-start)
		copy(chunk, samples[start:end])
		data.Add(chunk)
	}
	return data
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
// The range is clamped to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
