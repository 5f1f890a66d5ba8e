// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// LevelMeter tracks the peak absolute amplitude seen by a capture source and
// applies an optional noise gate to it. Observe runs on the producer side,
// Take on the consumer side.
type LevelMeter struct {
	peak          atomic.Int32 // Largest absolute sample since the last Take.
	gateThreshold atomic.Int32 // Absolute amplitude threshold (0-32767).
}

// NewLevelMeter creates a meter with the gate threshold given as a fraction of
// full scale.
func NewLevelMeter(gateThreshold float64) *LevelMeter {
	m := &LevelMeter{}
	m.SetGateThreshold(gateThreshold)
	return m
}

// Observe records the peak of samples. It does not allocate.
func (m *LevelMeter) Observe(samples []int16) {
	var maxAmplitude int32
	for _, s := range samples {
		// Branchless absolute value and max.
		sample := int32(s)
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}

	for {
		current := m.peak.Load()
		if maxAmplitude <= current || m.peak.CompareAndSwap(current, maxAmplitude) {
			return
		}
	}
}

// Take returns the peak since the previous Take as a fraction of full scale,
// clamped to 1, and resets it.
func (m *LevelMeter) Take() float64 {
	return math.Min(1.0, float64(m.peak.Swap(0))/float64(math.MaxInt16))
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (m *LevelMeter) SetGateThreshold(threshold float64) {
	threshold = math.Max(0.0, math.Min(1.0, threshold))
	m.gateThreshold.Store(int32(threshold * float64(math.MaxInt16)))
}

// GateThreshold returns the current noise gate threshold as a float64.
func (m *LevelMeter) GateThreshold() float64 {
	return float64(m.gateThreshold.Load()) / float64(math.MaxInt16)
}

// GateOpen reports whether peak passes the gate. A zero threshold never closes.
func (m *LevelMeter) GateOpen(peak float64) bool {
	threshold := m.gateThreshold.Load()
	return threshold == 0 || peak*float64(math.MaxInt16) > float64(threshold)
}
