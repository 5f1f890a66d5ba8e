// SPDX-License-Identifier: MIT
/*
Package audio implements the capture side of the analysis pipeline:
- Lock-free hand-off of captured audio to the analysis tick (Queue)
- Live capture using PortAudio (Engine) and WAV file playback (FileSource)
- Peak level metering with a branchless noise gate
- WAV recording of the analysed stream

Thread Safety:
- Capture callbacks only copy into the Queue and update atomics
- Source state is tracked atomically and readable from any goroutine
- Everything downstream of Queue.Read runs on the consumer goroutine
*/
package audio

import (
	"fmt"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Engine captures mono int16 audio from a PortAudio input device and pushes
// every callback buffer into a Queue.
type Engine struct {
	// Core configuration and state.
	config *config.Config
	state  *StateTracker

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Hand-off to the consumer.
	queue     *Queue
	level     *LevelMeter
	suspended atomic.Bool
	callbacks atomic.Uint64
}

// Compile-time check for interface implementation.
var _ Source = (*Engine)(nil)

// NewEngine resolves the configured input device. PortAudio must be
// initialized. level may be nil.
func NewEngine(cfg *config.Config, queue *Queue, level *LevelMeter) (*Engine, error) {
	if cfg.Audio.InputChannels != 1 {
		return nil, fmt.Errorf("engine supports mono input only, got %d channels", cfg.Audio.InputChannels)
	}

	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}

	engine := &Engine{
		config:      cfg,
		state:       NewStateTracker("portaudio"),
		inputDevice: inputDevice,
		queue:       queue,
		level:       level,
	}

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	applog.Infof("Audio: Using input device '%s' (latency %.2fms)", inputDevice.Name, engine.inputLatency.Seconds()*1000)
	return engine, nil
}

// Start opens and starts the input stream. On failure the engine is left in
// StateFailed and the error wraps ErrCaptureUnavailable.
func (e *Engine) Start() error {
	e.state.Set(StateConnecting)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		e.state.Set(StateFailed)
		return fmt.Errorf("%w: opening input stream: %w", ErrCaptureUnavailable, err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		e.state.Set(StateFailed)
		return fmt.Errorf("%w: starting input stream: %w", ErrCaptureUnavailable, err)
	}

	e.state.Set(StateReady)
	return nil
}

// Suspend drops captured audio without closing the stream. It only acts on a
// ready engine; a failed or closed engine keeps its state.
func (e *Engine) Suspend() {
	if e.state.Transition(StateReady, StateSuspended) {
		e.suspended.Store(true)
	}
}

// Resume undoes Suspend. It only acts on a suspended engine.
func (e *Engine) Resume() {
	if e.state.Transition(StateSuspended, StateReady) {
		e.suspended.Store(false)
	}
}

// State returns the capture state.
func (e *Engine) State() State {
	return e.state.State()
}

// Err reports ErrCaptureUnavailable when the engine cannot deliver audio.
func (e *Engine) Err() error {
	return e.state.Err()
}

// Callbacks returns the number of capture callbacks received.
func (e *Engine) Callbacks() uint64 {
	return e.callbacks.Load()
}

// Close stops and closes the input stream. The engine cannot be restarted.
func (e *Engine) Close() error {
	defer e.state.Set(StateTerminated)

	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// processInputStream is the PortAudio callback. It runs on a driver thread
// and must not block: it only meters and copies the buffer into the queue.
func (e *Engine) processInputStream(in []int16) {
	e.callbacks.Add(1)
	if e.suspended.Load() {
		return
	}
	deliver(in, e.queue, e.level)
}

// deliver is the producer path shared by all sources.
func deliver(samples []int16, queue *Queue, level *LevelMeter) {
	if level != nil {
		level.Observe(samples)
	}
	queue.AddData(samples)
}
