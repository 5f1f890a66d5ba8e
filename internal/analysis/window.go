// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	applog "spectra/internal/log"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// Window is a per-sample weighting table applied before the transform.
// Implementations are immutable once constructed and may be shared.
type Window interface {
	// Len returns the number of coefficients (the window size).
	Len() int
	// Coefficient returns the weight for sample position i.
	Coefficient(i int) float64
	// Correction returns the amplitude correction of the window shape.
	Correction() float64
}

// WindowFunc selects a window shape.
type WindowFunc int

// Available window shapes.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Hamming window constants. These differ slightly from the textbook 0.54/0.46
// pair and are the values the transform scale is calibrated against.
const (
	HammingOffset = 0.53836
	HammingFactor = 0.46164
)

// String returns the lower-case name of the window shape.
func (w WindowFunc) String() string {
	switch w {
	case BartlettHann:
		return "bartletthann"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc,
// returns Hamming and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hamming, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// HammingWindow is a Hamming window with a precomputed coefficient table.
type HammingWindow struct {
	coeffs []float64
}

// NewHamming builds the coefficient table for a window of n samples.
func NewHamming(n int) *HammingWindow {
	coeffs := make([]float64, n)
	if n == 1 {
		coeffs[0] = 1
		return &HammingWindow{coeffs: coeffs}
	}
	step := 2 * math.Pi / float64(n-1)
	for i := range coeffs {
		coeffs[i] = HammingOffset - HammingFactor*math.Cos(float64(i)*step)
	}
	return &HammingWindow{coeffs: coeffs}
}

func (h *HammingWindow) Len() int { return len(h.coeffs) }

func (h *HammingWindow) Coefficient(i int) float64 { return h.coeffs[i] }

func (h *HammingWindow) Correction() float64 { return HammingOffset }

// tabulatedWindow holds coefficients produced by one of gonum's window functions.
type tabulatedWindow struct {
	kind       WindowFunc
	coeffs     []float64
	correction float64
}

func (t *tabulatedWindow) Len() int { return len(t.coeffs) }

func (t *tabulatedWindow) Coefficient(i int) float64 { return t.coeffs[i] }

func (t *tabulatedWindow) Correction() float64 { return t.correction }

// NewWindow returns a window of n samples for the given shape. Hamming uses
// the calibrated constants above; every other shape is tabulated through
// gonum and corrected by its mean coefficient.
func NewWindow(kind WindowFunc, n int) Window {
	if kind == Hamming {
		return NewHamming(n)
	}

	// gonum's window functions multiply in place, so start from ones.
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}

	switch kind {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: Unknown window function type %d, defaulting to Hamming", kind)
		return NewHamming(n)
	}

	correction := 0.0
	if n > 0 {
		correction = floats.Sum(coeffs) / float64(n)
	}
	return &tabulatedWindow{kind: kind, coeffs: coeffs, correction: correction}
}
