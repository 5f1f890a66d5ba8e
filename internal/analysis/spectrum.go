// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// SilenceEpsilon is the level below which a spectrum is treated as silence.
// Rebinning never scales a silent range up into visible output.
const SilenceEpsilon = 0.0001

// ScaleMode selects how spectrum bins are compressed to display bins.
type ScaleMode int

const (
	ScaleLinear ScaleMode = iota
	ScaleLogarithmic
)

// String returns the configuration name of the mode.
func (m ScaleMode) String() string {
	if m == ScaleLogarithmic {
		return "log"
	}
	return "lin"
}

// ParseScaleMode converts "lin"/"linear" or "log"/"logarithmic" to a ScaleMode.
func ParseScaleMode(name string) (ScaleMode, error) {
	switch strings.ToLower(name) {
	case "lin", "linear":
		return ScaleLinear, nil
	case "log", "logarithmic":
		return ScaleLogarithmic, nil
	default:
		return ScaleLogarithmic, fmt.Errorf("unknown scale mode: '%s'", name)
	}
}

// Spectrum accumulates magnitude per frequency bin. A spectrum is produced by
// one Transform.Execute call and is read-only once returned.
type Spectrum struct {
	sum        []float64
	windowSize int
	addScale   float64
}

// NewSpectrum creates an all-zero spectrum for the given window size. It
// holds windowSize/2+1 bins; the upper half of the transform is the mirror
// image and is not stored.
func NewSpectrum(windowSize int) *Spectrum {
	return &Spectrum{
		sum:        make([]float64, windowSize/2+1),
		windowSize: windowSize,
		addScale:   1.0,
	}
}

// SpectrumOf wraps precomputed bin values, for auxiliary display and tests.
func SpectrumOf(values []float64) *Spectrum {
	sum := make([]float64, len(values))
	copy(sum, values)
	return &Spectrum{
		sum:        sum,
		windowSize: 2 * (len(values) - 1),
		addScale:   1.0,
	}
}

// SetAddScale sets the factor applied by subsequent Add calls.
func (s *Spectrum) SetAddScale(scale float64) {
	s.addScale = scale
}

// Add accumulates the magnitudes of one transform result. coeffs must hold at
// least Len() values. Every bin except the Nyquist bin is doubled to account
// for the discarded mirror half.
func (s *Spectrum) Add(coeffs []complex128) {
	last := len(s.sum) - 1
	norm := s.addScale / float64(s.windowSize)
	for i := range s.sum {
		v := cmplx.Abs(coeffs[i]) * norm
		if i < last {
			v *= 2.0
		}
		s.sum[i] += v
	}
}

// Scale multiplies every bin by factor.
func (s *Spectrum) Scale(factor float64) {
	floats.Scale(factor, s.sum)
}

// Max returns the largest bin value.
func (s *Spectrum) Max() float64 {
	if len(s.sum) == 0 {
		return 0
	}
	return floats.Max(s.sum)
}

// Len returns the number of bins.
func (s *Spectrum) Len() int {
	return len(s.sum)
}

// WindowSize returns the transform size the spectrum was produced with.
func (s *Spectrum) WindowSize() int {
	return s.windowSize
}

// Vector returns a copy of the bin values.
func (s *Spectrum) Vector() []float64 {
	out := make([]float64, len(s.sum))
	copy(out, s.sum)
	return out
}

// usedBins returns how many leading bins a usage fraction selects.
func (s *Spectrum) usedBins(usageFactor float64) int {
	usageFactor = math.Max(0, math.Min(1, usageFactor))
	return int(float64(len(s.sum)) * usageFactor)
}

// Silent reports whether every bin in the used range is below SilenceEpsilon.
// Rebinning a silent spectrum yields an all-zero vector.
func (s *Spectrum) Silent(usageFactor float64) bool {
	used := s.usedBins(usageFactor)
	if used == 0 {
		return true
	}
	return floats.Max(s.sum[:used]) < SilenceEpsilon
}

// Adjust rebins with the given mode.
func (s *Spectrum) Adjust(mode ScaleMode, count int, usageFactor, factor float64, keepSum bool) []float32 {
	if mode == ScaleLogarithmic {
		return s.AdjustLog(count, usageFactor, factor, keepSum)
	}
	return s.AdjustLin(count, usageFactor, factor, keepSum)
}

// AdjustLin compresses the first usageFactor fraction of bins uniformly into
// count display bins. Contributing bins are summed; unless keepSum is set each
// display bin is divided by its contributor count.
//
// With a linear mapping most musical content lands in the lowest display bins;
// AdjustLog is usually the better choice for display.
func (s *Spectrum) AdjustLin(count int, usageFactor, factor float64, keepSum bool) []float32 {
	if count <= 0 {
		return []float32{}
	}
	out := make([]float32, count)
	used := s.usedBins(usageFactor)
	if used == 0 || s.Silent(usageFactor) {
		return out
	}

	contributors := make([]int, count)
	for i := 0; i < used; i++ {
		n := i * count / used
		out[n] += float32(s.sum[i] * factor)
		contributors[n]++
	}

	if !keepSum {
		meanBins(out, contributors)
	}
	clampNegative(out)
	return out
}

// AdjustLog compresses the first usageFactor fraction of bins into count
// display bins on a log10 scale, so low frequencies get more display bins.
// Contributing bins are combined with max rather than sum to keep peaks
// visible; unless keepSum is set each display bin is divided by its
// contributor count.
func (s *Spectrum) AdjustLog(count int, usageFactor, factor float64, keepSum bool) []float32 {
	if count <= 0 {
		return []float32{}
	}
	out := make([]float32, count)
	used := s.usedBins(usageFactor)
	if used == 0 || s.Silent(usageFactor) {
		return out
	}

	contributors := make([]int, count)
	step := 9.0 / float64(used)
	for i := 0; i < used; i++ {
		n := min(int(math.Log10(1.0+float64(i)*step)*float64(count)), count-1)
		out[n] = max(out[n], float32(s.sum[i]*factor))
		contributors[n]++
	}

	if !keepSum {
		meanBins(out, contributors)
	}
	clampNegative(out)
	return out
}

// meanBins divides each display bin by its contributor count. Bins without
// contributors stay zero.
func meanBins(out []float32, contributors []int) {
	for n := range out {
		if contributors[n] > 0 {
			out[n] /= float32(contributors[n])
		}
	}
}

// clampNegative keeps display output non-negative when a negative factor is
// configured.
func clampNegative(out []float32) {
	for n, v := range out {
		if v < 0 {
			out[n] = 0
		}
	}
}
