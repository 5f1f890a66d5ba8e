// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"
)

// Preset is one of the supported window/hop combinations. All presets use a
// Hamming window.
type Preset int

const (
	Preset512       Preset = iota // 512 samples, no overlap
	Preset512Hop256               // 512 samples, half overlap
	Preset2k                      // 2048 samples, no overlap; cheapest per sample
	Preset2kHop1k                 // 2048 samples, half overlap
)

// String returns the configuration name of the preset.
func (p Preset) String() string {
	switch p {
	case Preset512:
		return "512"
	case Preset512Hop256:
		return "512n256"
	case Preset2k:
		return "2k"
	case Preset2kHop1k:
		return "2k1k"
	default:
		return fmt.Sprintf("preset(%d)", int(p))
	}
}

// WindowSize returns the number of samples per window.
func (p Preset) WindowSize() int {
	switch p {
	case Preset2k, Preset2kHop1k:
		return 2048
	default:
		return 512
	}
}

// HopSize returns the step between windows.
func (p Preset) HopSize() int {
	switch p {
	case Preset512Hop256:
		return 256
	case Preset2kHop1k:
		return 1024
	default:
		return p.WindowSize()
	}
}

// New creates a Transform configured for the preset.
func (p Preset) New() (*Transform, error) {
	if p < Preset512 || p > Preset2kHop1k {
		return nil, fmt.Errorf("unknown preset %d", int(p))
	}
	return NewTransform(p.WindowSize(), p.HopSize(), NewHamming(p.WindowSize()))
}

// ParsePreset converts a configuration name (case-insensitive) to a Preset.
func ParsePreset(name string) (Preset, error) {
	switch strings.ToLower(name) {
	case "512":
		return Preset512, nil
	case "512n256":
		return Preset512Hop256, nil
	case "2k", "2048":
		return Preset2k, nil
	case "2k1k":
		return Preset2kHop1k, nil
	default:
		return Preset512Hop256, fmt.Errorf("unknown analysis preset: '%s'", name)
	}
}

// Presets lists every supported preset.
func Presets() []Preset {
	return []Preset{Preset512, Preset512Hop256, Preset2k, Preset2kHop1k}
}
