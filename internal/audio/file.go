// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	applog "spectra/internal/log"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFile is returned for WAV files the file source cannot play.
var ErrUnsupportedFile = errors.New("unsupported wav file")

// pcmReader is the part of wav.Decoder the file source uses.
type pcmReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// FileSource plays a 16-bit PCM WAV file into a Queue from its own goroutine,
// delivering framesPerBuffer frames per block like a capture callback would.
// Multi-channel files are reduced to their first channel.
type FileSource struct {
	path            string
	framesPerBuffer int
	paced           bool

	queue *Queue
	level *LevelMeter
	state *StateTracker

	file       *os.File
	decoder    pcmReader
	sampleRate float64
	channels   int

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Compile-time check for interface implementation.
var _ Source = (*FileSource)(nil)

// NewFileSource creates a source for the WAV file at path. When paced is set,
// blocks are delivered in real time; otherwise as fast as the queue accepts
// them. level may be nil.
func NewFileSource(path string, framesPerBuffer int, paced bool, queue *Queue, level *LevelMeter) *FileSource {
	return &FileSource{
		path:            path,
		framesPerBuffer: framesPerBuffer,
		paced:           paced,
		queue:           queue,
		level:           level,
		state:           NewStateTracker("file"),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Start opens the file, validates its format and starts delivery.
func (f *FileSource) Start() error {
	f.state.Set(StateConnecting)

	file, err := os.Open(f.path)
	if err != nil {
		f.state.Set(StateFailed)
		return fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		f.state.Set(StateFailed)
		return fmt.Errorf("%w: %s is not a valid wav file", ErrUnsupportedFile, f.path)
	}
	decoder.ReadInfo()
	if decoder.BitDepth != 16 {
		file.Close()
		f.state.Set(StateFailed)
		return fmt.Errorf("%w: %s has %d-bit samples, only 16-bit PCM is supported", ErrUnsupportedFile, f.path, decoder.BitDepth)
	}
	if err := decoder.FwdToPCM(); err != nil {
		file.Close()
		f.state.Set(StateFailed)
		return fmt.Errorf("%w: %s: %w", ErrUnsupportedFile, f.path, err)
	}

	f.file = file
	f.decoder = decoder
	f.sampleRate = float64(decoder.SampleRate)
	f.channels = max(int(decoder.NumChans), 1)

	applog.Infof("Audio: Playing '%s' (%.0f Hz, %d channels, paced %v)", f.path, f.sampleRate, f.channels, f.paced)

	f.state.Set(StateReady)
	go f.run()
	return nil
}

// run delivers blocks until the file ends or Close is called.
func (f *FileSource) run() {
	defer close(f.done)
	defer f.state.Set(StateTerminated)

	intBuf := &goaudio.IntBuffer{
		Data:   make([]int, f.framesPerBuffer*f.channels),
		Format: &goaudio.Format{NumChannels: f.channels, SampleRate: int(f.sampleRate)},
	}
	block := make([]int16, f.framesPerBuffer)

	var ticker *time.Ticker
	if f.paced {
		ticker = time.NewTicker(time.Duration(float64(f.framesPerBuffer) / f.sampleRate * float64(time.Second)))
		defer ticker.Stop()
	}

	for {
		select {
		case <-f.stop:
			return
		default:
		}

		n, err := f.decoder.PCMBuffer(intBuf)
		frames := n / f.channels
		for i := range frames {
			block[i] = int16(intBuf.Data[i*f.channels])
		}
		if frames > 0 {
			deliver(block[:frames], f.queue, f.level)
		}

		if err != nil && !errors.Is(err, io.EOF) {
			applog.Errorf("Audio: Reading '%s' failed: %v", f.path, err)
			f.state.Set(StateFailed)
			return
		}
		if n == 0 || err != nil {
			applog.Infof("Audio: Reached end of '%s'", f.path)
			return
		}

		if ticker != nil {
			select {
			case <-f.stop:
				return
			case <-ticker.C:
			}
		}
	}
}

// Done is closed when delivery ends, either at end of file or after Close.
func (f *FileSource) Done() <-chan struct{} {
	return f.done
}

// SampleRate returns the file's sample rate. Valid after Start.
func (f *FileSource) SampleRate() float64 {
	return f.sampleRate
}

// State returns the capture state.
func (f *FileSource) State() State {
	return f.state.State()
}

// Close stops delivery and closes the file.
func (f *FileSource) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.stop)
		if f.file != nil {
			<-f.done
			err = f.file.Close()
		}
		f.state.Set(StateTerminated)
	})
	return err
}
