// SPDX-License-Identifier: MIT
//
// Package pipeline drives the consumer side of the analyser. On every tick it
// drains the acquisition queue, runs the transform, rebins the spectrum into
// display bins and publishes one frame.
//
// All analysis state is owned by the goroutine calling Tick or Run; only the
// queue and the level meter are shared with the capture source.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/transport"
	"sync"
	"time"
)

// StateSource reports the lifecycle state of the capture source feeding the
// queue. audio.Engine and audio.FileSource implement it.
type StateSource interface {
	State() audio.State
}

// Options are the display settings applied on each tick. They may be changed
// while the pipeline runs.
type Options struct {
	Mode         analysis.ScaleMode
	Bins         int
	Usage        float64
	Factor       float64
	KeepSum      bool
	Raw          bool
	TickInterval time.Duration
}

// OptionsFromConfig returns the display options of a validated configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mode:         cfg.ScaleMode(),
		Bins:         cfg.Display.Bins,
		Usage:        cfg.Display.Usage,
		Factor:       cfg.Display.Factor,
		KeepSum:      cfg.Display.KeepSum,
		Raw:          cfg.Display.Raw,
		TickInterval: cfg.Display.TickInterval,
	}
}

func (o Options) validate() error {
	if o.Bins < 1 || o.Bins > config.MaxBins {
		return fmt.Errorf("bins must be in [1, %d], got %d", config.MaxBins, o.Bins)
	}
	if o.Usage <= 0 || o.Usage > 1 {
		return fmt.Errorf("usage must be in (0, 1], got %f", o.Usage)
	}
	if o.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", o.TickInterval)
	}
	return nil
}

// Stages are the optional collaborators of a pipeline. Nil members are
// skipped.
type Stages struct {
	Level    *audio.LevelMeter       // Peak level and noise gate.
	Source   StateSource             // Reported in Frame.State.
	Recorder *audio.Recorder         // Receives every drained block.
	Bands    *analysis.BandEnergy    // Fills Frame.Bands.
	Onset    *analysis.OnsetDetector // Fills Frame.Onset.
}

// Pipeline turns queued audio into published frames.
type Pipeline struct {
	queue    *audio.Queue
	analyzer analysis.Analyzer
	out      transport.Transport
	stages   Stages

	mu   sync.RWMutex
	opts Options

	seq       uint32
	lastState audio.State
	sendFails uint64
}

// New creates a pipeline reading from queue, analysing with analyzer and
// publishing to out.
func New(queue *audio.Queue, analyzer analysis.Analyzer, out transport.Transport, opts Options, stages Stages) (*Pipeline, error) {
	if queue == nil || analyzer == nil || out == nil {
		return nil, fmt.Errorf("pipeline requires a queue, an analyzer and a transport")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	applog.Debugf("Pipeline: Initializing (Window: %d, Hop: %d, Bins: %d, Mode: %s, Tick: %s)",
		analyzer.WindowSize(), analyzer.HopSize(), opts.Bins, opts.Mode, opts.TickInterval)

	return &Pipeline{
		queue:     queue,
		analyzer:  analyzer,
		out:       out,
		stages:    stages,
		opts:      opts,
		lastState: audio.StateDisconnected,
	}, nil
}

// Run ticks every Options.TickInterval until ctx is cancelled. It returns nil
// on cancellation and the error of the first tick that violates a contract.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.Options().TickInterval)
	defer ticker.Stop()

	applog.Infof("Pipeline: Running every %s", p.Options().TickInterval)
	for {
		select {
		case <-ctx.Done():
			applog.Infof("Pipeline: Stopped after %d frames", p.seq)
			return nil
		case now := <-ticker.C:
			if _, err := p.Tick(now); err != nil {
				return err
			}
		}
	}
}

// Tick runs one analysis step and returns the published frame.
//
// Capture problems never fail a tick: an empty drain produces a zero spectrum
// and a silent frame. Transport errors are logged. Only analysis contract
// violations, such as a buffer with the wrong channel count, are returned.
func (p *Pipeline) Tick(now time.Time) (*transport.Frame, error) {
	opts := p.Options()

	data := p.queue.Read()
	if r := p.stages.Recorder; r != nil && r.IsRecording() {
		if err := r.WriteChunks(data); err != nil {
			applog.Errorf("Pipeline: Recording failed: %v", err)
		}
	}

	spectrum, err := p.analyzer.Execute(data)
	if err != nil {
		return nil, fmt.Errorf("pipeline tick %d: %w", p.seq, err)
	}

	frame := &transport.Frame{
		Seq:       p.seq,
		Timestamp: now,
		State:     p.state(),
	}

	gateOpen := true
	if m := p.stages.Level; m != nil {
		frame.Peak = m.Take()
		gateOpen = m.GateOpen(frame.Peak)
	}

	frame.Silent = !gateOpen || spectrum.Silent(opts.Usage)
	if frame.Silent {
		frame.Bins = make([]float32, opts.Bins)
	} else {
		frame.Bins = spectrum.Adjust(opts.Mode, opts.Bins, opts.Usage, opts.Factor, opts.KeepSum)
	}

	if b := p.stages.Bands; b != nil && gateOpen {
		b.Process(spectrum)
		frame.Bands = b.Energies()
	}
	if d := p.stages.Onset; d != nil {
		energy := 0.0
		if gateOpen {
			energy = analysis.SpectralEnergy(spectrum)
		}
		frame.Onset = d.Detect(energy)
	}
	if opts.Raw {
		frame.Raw = spectrum.Vector()
	}

	p.seq++
	if err := p.out.Send(frame); err != nil {
		p.sendFails++
		// Log the first failure and then every 100th to avoid flooding at the tick rate.
		if p.sendFails == 1 || p.sendFails%100 == 0 {
			applog.Warnf("Pipeline: Send failed (%d failures): %v", p.sendFails, err)
		}
	}

	return frame, nil
}

// state returns the source state and logs when capture becomes degraded.
func (p *Pipeline) state() string {
	if p.stages.Source == nil {
		return ""
	}
	s := p.stages.Source.State()
	if s != p.lastState {
		switch s {
		case audio.StateFailed, audio.StateDisconnected:
			applog.Warnf("Pipeline: Capture %s, publishing silent frames", s)
		case audio.StateReady:
			applog.Debugf("Pipeline: Capture %s", s)
		}
		p.lastState = s
	}
	return s.String()
}

// Options returns the current display options.
func (p *Pipeline) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

// SetScaleMode switches between linear and logarithmic rebinning.
func (p *Pipeline) SetScaleMode(mode analysis.ScaleMode) {
	p.mu.Lock()
	p.opts.Mode = mode
	p.mu.Unlock()
	applog.Infof("Pipeline: Scale mode set to %s", mode)
}

// ToggleScaleMode flips the rebinning mode and returns the new one.
func (p *Pipeline) ToggleScaleMode() analysis.ScaleMode {
	mode := analysis.ScaleLogarithmic
	if p.Options().Mode == analysis.ScaleLogarithmic {
		mode = analysis.ScaleLinear
	}
	p.SetScaleMode(mode)
	return mode
}

// SetBins changes the number of display bins.
func (p *Pipeline) SetBins(bins int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.opts
	next.Bins = bins
	if err := next.validate(); err != nil {
		return err
	}
	p.opts = next
	return nil
}

// SetUsage changes the fraction of spectrum bins shown.
func (p *Pipeline) SetUsage(usage float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.opts
	next.Usage = usage
	if err := next.validate(); err != nil {
		return err
	}
	p.opts = next
	return nil
}

// SetFactor changes the amplitude factor applied while rebinning.
func (p *Pipeline) SetFactor(factor float64) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	p.mu.Lock()
	p.opts.Factor = factor
	p.mu.Unlock()
}

// Frames returns the number of frames produced so far. Call from the ticking
// goroutine.
func (p *Pipeline) Frames() uint32 {
	return p.seq
}
