// SPDX-License-Identifier: MIT
package analysis

import "spectra/internal/buffer"

// Analyzer turns one drained block of audio into a magnitude spectrum.
// The pipeline depends on this interface rather than on Transform so tests can
// substitute a canned analyzer.
type Analyzer interface {
	// Execute analyses buf. It is called once per tick from a single goroutine.
	Execute(buf *buffer.Chunked) (*Spectrum, error)
	WindowSize() int
	HopSize() int
}

// Calibrator is implemented by analyzers whose amplitude scale can be measured
// against the reference tone.
type Calibrator interface {
	Calibrate(target float64) (float64, error) // Calibrate returns the new scale.
}

// SpectrumProcessor derives secondary features from a finished spectrum.
type SpectrumProcessor interface {
	Process(s *Spectrum)
}

var _ Calibrator = (*Transform)(nil)
var _ SpectrumProcessor = (*BandEnergy)(nil)
