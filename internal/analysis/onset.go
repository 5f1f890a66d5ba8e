// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	applog "spectra/internal/log"
)

// OnsetDetector flags ticks whose spectral energy jumps relative to the
// previous tick, a cheap stand-in for kick/transient detection.
type OnsetDetector struct {
	threshold      float64 // Minimum energy for an onset.
	minEnergyRatio float64 // Minimum increase over the previous tick.
	lastEnergy     float64
}

// NewOnsetDetector creates a detector. An onset fires when the energy is above
// threshold and either no previous energy exists or the ratio to it exceeds
// minEnergyRatio.
func NewOnsetDetector(threshold, minEnergyRatio float64) *OnsetDetector {
	applog.Debugf("Analysis: Initializing OnsetDetector (Threshold: %.4f, MinRatio: %.2f)", threshold, minEnergyRatio)
	return &OnsetDetector{
		threshold:      threshold,
		minEnergyRatio: minEnergyRatio,
	}
}

// Detect feeds the energy of the current tick and reports an onset.
func (d *OnsetDetector) Detect(energy float64) bool {
	onset := energy > d.threshold &&
		(d.lastEnergy == 0 || energy/d.lastEnergy > d.minEnergyRatio)
	d.lastEnergy = energy
	return onset
}

// Reset forgets the previous energy.
func (d *OnsetDetector) Reset() {
	d.lastEnergy = 0
}

// SpectralEnergy returns the RMS of the spectrum's bins.
func SpectralEnergy(s *Spectrum) float64 {
	if len(s.sum) == 0 {
		return 0.0
	}
	var sumSquare float64
	for _, v := range s.sum {
		sumSquare += v * v
	}
	return math.Sqrt(sumSquare / float64(len(s.sum)))
}
