// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	applog "spectra/internal/log"
)

// FrequencyBand defines the name and frequency range for an energy band.
// HighHz of zero means "up to Nyquist".
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands returns the standard six bands.
func DefaultBands() []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: 0},
	}
}

// BandEnergy calculates the RMS magnitude of each frequency band of a spectrum.
// The result of the last Process call is kept until the next one.
type BandEnergy struct {
	bands      []FrequencyBand
	sampleRate float64
	energies   map[string]float64
}

// NewBandEnergy creates a band energy processor for spectra captured at
// sampleRate.
func NewBandEnergy(sampleRate float64, bands []FrequencyBand) (*BandEnergy, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("at least one frequency band is required")
	}
	for _, b := range bands {
		if b.HighHz != 0 && b.HighHz <= b.LowHz {
			return nil, fmt.Errorf("band %q: high %.1f Hz must exceed low %.1f Hz", b.Name, b.HighHz, b.LowHz)
		}
	}

	applog.Debugf("Analysis: Initializing BandEnergy with %d bands.", len(bands))
	return &BandEnergy{
		bands:      bands,
		sampleRate: sampleRate,
		energies:   make(map[string]float64, len(bands)),
	}, nil
}

// Process computes band energies for s. Bins are assigned to the first band
// whose [LowHz, HighHz) range contains their center frequency.
func (b *BandEnergy) Process(s *Spectrum) {
	nyquist := b.sampleRate / 2
	sums := make([]float64, len(b.bands))
	counts := make([]int, len(b.bands))

	for i, mag := range s.sum {
		freq := BinFrequency(i, s.windowSize, b.sampleRate)
		for j, band := range b.bands {
			high := band.HighHz
			if high == 0 {
				high = nyquist + 1
			}
			if freq >= band.LowHz && freq < high {
				sums[j] += mag * mag
				counts[j]++
				break
			}
		}
	}

	for j, band := range b.bands {
		energy := 0.0
		if counts[j] > 0 {
			energy = math.Sqrt(sums[j] / float64(counts[j]))
		}
		b.energies[band.Name] = energy
	}
}

// Energies returns a copy of the energies computed by the last Process call.
func (b *BandEnergy) Energies() map[string]float64 {
	out := make(map[string]float64, len(b.energies))
	for k, v := range b.energies {
		out[k] = v
	}
	return out
}

// Bands returns the configured bands.
func (b *BandEnergy) Bands() []FrequencyBand {
	return b.bands
}
