// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"spectra/internal/buffer"
	applog "spectra/internal/log"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recording format. The recorder writes what the transform analyses.
const (
	recordingBitDepth = 16
	recordingChannels = 1
	wavFormatPCM      = 1
)

// Recorder writes drained audio to a 16-bit mono WAV file. It is fed from the
// consumer goroutine after each Queue.Read, which keeps file I/O out of the
// capture callback.
type Recorder struct {
	sampleRate int
	maxSamples int // 0 for unlimited.

	isRecording atomic.Bool
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *goaudio.IntBuffer // Reusable buffer for format conversion
	written     int
	limitLogged bool
}

// NewRecorder creates a recorder for audio at sampleRate. A positive
// maxDuration caps the length of each recording.
func NewRecorder(sampleRate float64, maxDuration time.Duration) *Recorder {
	r := &Recorder{sampleRate: int(sampleRate)}
	if maxDuration > 0 {
		r.maxSamples = int(maxDuration.Seconds() * sampleRate)
	}
	return r
}

// RecordingFilename returns a timestamped file name inside dir.
func RecordingFilename(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("spectra-%s.wav", now.Format("20060102-150405")))
}

// Start creates filename and begins recording.
func (r *Recorder) Start(filename string) error {
	if r.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating recording directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	r.outputFile = file

	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, recordingBitDepth, recordingChannels, wavFormatPCM)

	if r.sampleBuf == nil {
		r.sampleBuf = &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: recordingChannels,
				SampleRate:  r.sampleRate,
			},
			SourceBitDepth: recordingBitDepth,
		}
	}
	r.written = 0
	r.limitLogged = false

	r.isRecording.Store(true)
	applog.Infof("Recorder: Recording to '%s'", filename)

	return nil
}

// WriteChunks appends every chunk of data in order. Samples beyond the
// configured maximum duration are dropped.
func (r *Recorder) WriteChunks(data *buffer.Chunked) error {
	if !r.isRecording.Load() || r.wavEncoder == nil {
		return nil
	}

	var writeErr error
	data.Chunks(func(chunk buffer.Chunk) bool {
		writeErr = r.write(chunk)
		return writeErr == nil
	})
	return writeErr
}

func (r *Recorder) write(chunk buffer.Chunk) error {
	n := len(chunk)
	if r.maxSamples > 0 {
		n = min(n, r.maxSamples-r.written)
		if n <= 0 {
			if !r.limitLogged {
				applog.Warnf("Recorder: Maximum duration reached, dropping further audio")
				r.limitLogged = true
			}
			return nil
		}
	}

	if cap(r.sampleBuf.Data) < n {
		r.sampleBuf.Data = make([]int, n)
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:n]
	for i, sample := range chunk[:n] {
		r.sampleBuf.Data[i] = int(sample)
	}

	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("writing to WAV file: %w", err)
	}
	r.written += n
	return nil
}

// Stop finalizes the WAV header and closes the file. Stopping when not
// recording is a no-op.
func (r *Recorder) Stop() error {
	if !r.isRecording.Load() {
		return nil
	}

	r.isRecording.Store(false)

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	applog.Infof("Recorder: Stopped after %d samples", r.written)
	return nil
}

// IsRecording reports whether a recording is in progress.
func (r *Recorder) IsRecording() bool {
	return r.isRecording.Load()
}

// Written returns the number of samples in the current or last recording.
func (r *Recorder) Written() int {
	return r.written
}
