// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"spectra/internal/analysis"
	"spectra/internal/audio"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/pipeline"
	"spectra/internal/transport"
	"spectra/internal/transport/udp"
	"spectra/internal/tui"
	"time"

	"golang.org/x/sync/errgroup"
)

// tuiLogFile receives log output while the terminal UI owns the screen.
const tuiLogFile = "spectra.log"

// runLive captures from PortAudio and publishes frames until ctx is
// cancelled, the terminal UI quits or the pipeline fails.
//
// A capture device that cannot be opened does not stop the run: the pipeline
// keeps publishing silent frames with the failed state.
func runLive(ctx context.Context, cfg *config.Config, opts *options) error {
	if opts.tui {
		logFile, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer logFile.Close()
		applog.SetOutput(logFile)
		defer applog.SetOutput(os.Stderr)
	}
	defer applog.Sync()

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return err
	}

	queue := audio.NewQueue()
	level := audio.NewLevelMeter(cfg.Audio.GateThreshold)

	var source pipeline.StateSource
	engine, err := audio.NewEngine(cfg, queue, level)
	switch {
	case err == nil:
		defer engine.Close()
		if err := engine.Start(); err != nil {
			applog.Warnf("Audio: %v", err)
		}
		source = engine
	case errors.Is(err, audio.ErrCaptureUnavailable):
		applog.Warnf("Audio: %v", err)
		failed := audio.NewStateTracker("portaudio")
		failed.Set(audio.StateFailed)
		source = failed
	default:
		return err
	}

	recorder, err := startRecorder(cfg, opts.output, cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	if recorder != nil {
		defer func() {
			if stopErr := recorder.Stop(); stopErr != nil {
				applog.Errorf("Recorder: %v", stopErr)
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	out, err := buildTransports(cfg, !opts.tui)
	if err != nil {
		return err
	}
	var monitor *tui.ProgramTransport
	if opts.tui {
		monitor = tui.NewProgramTransport()
		out = append(out, monitor)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			applog.Warnf("Transport: %v", closeErr)
		}
	}()

	stages, err := newStages(cfg, cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	stages.Level = level
	stages.Source = source
	stages.Recorder = recorder

	p, err := pipeline.New(queue, analyzer, out, pipeline.OptionsFromConfig(cfg), stages)
	if err != nil {
		return err
	}

	g.Go(func() error {
		return p.Run(gctx)
	})

	if monitor != nil {
		var capture tui.Capture
		if engine != nil {
			capture = engine
		}
		program := tui.NewMonitorProgram(gctx, p, capture)
		monitor.Attach(program)
		g.Go(func() error {
			defer cancel()
			return tui.RunMonitor(gctx, program)
		})
	}

	err = g.Wait()
	if engine != nil {
		applog.Infof("Audio: %s", captureSummary(engine.Callbacks(), queue.Delivered(), queue.Drained()))
		if capErr := engine.Err(); capErr != nil {
			applog.Warnf("Audio: Capture ended degraded: %v", capErr)
		}
	}
	return err
}

// captureSummary describes a finished capture. The queue counters are in
// samples.
func captureSummary(callbacks, delivered, drained uint64) string {
	return fmt.Sprintf("%d callbacks, %d samples delivered, %d samples drained", callbacks, delivered, drained)
}

// runFile analyses a WAV file and returns a one-line summary. When recording
// is enabled the analysed channel is written to output.
func runFile(ctx context.Context, cfg *config.Config, path, output string, paced bool) (string, error) {
	analyzer, err := newAnalyzer(cfg)
	if err != nil {
		return "", err
	}

	queue := audio.NewQueue()
	level := audio.NewLevelMeter(cfg.Audio.GateThreshold)
	source := audio.NewFileSource(path, cfg.Audio.FramesPerBuffer, paced, queue, level)
	if err := source.Start(); err != nil {
		return "", err
	}
	defer source.Close()

	recorder, err := startRecorder(cfg, output, source.SampleRate())
	if err != nil {
		return "", err
	}
	if recorder != nil {
		defer recorder.Stop()
	}

	stages, err := newStages(cfg, source.SampleRate())
	if err != nil {
		return "", err
	}
	stages.Level = level
	stages.Source = source
	stages.Recorder = recorder

	opts := pipeline.OptionsFromConfig(cfg)
	p, err := pipeline.New(queue, analyzer, transport.NewLoggingTransport(1), opts, stages)
	if err != nil {
		return "", err
	}

	var (
		onsets int
		silent int
	)
	count := func(f *transport.Frame) {
		if f.Onset {
			onsets++
		}
		if f.Silent {
			silent++
		}
	}

	ticker := time.NewTicker(opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case now := <-ticker.C:
			f, err := p.Tick(now)
			if err != nil {
				return "", err
			}
			count(f)
		case <-source.Done():
			// Flush whatever the source delivered since the last tick.
			f, err := p.Tick(time.Now())
			if err != nil {
				return "", err
			}
			count(f)
			return fmt.Sprintf("%s: %d frames, %d silent, %d onsets (%.0f Hz, window %d, hop %d)",
				path, p.Frames(), silent, onsets, source.SampleRate(), analyzer.WindowSize(), analyzer.HopSize()), nil
		}
	}
}

// newAnalyzer creates the configured transform and applies either the
// configured scale or a calibration.
func newAnalyzer(cfg *config.Config) (*analysis.Transform, error) {
	t, err := cfg.Preset().New()
	if err != nil {
		return nil, err
	}
	if cfg.Analysis.CalibrateTo > 0 {
		if _, err := t.Calibrate(cfg.Analysis.CalibrateTo); err != nil {
			return nil, err
		}
		return t, nil
	}
	t.SetScale(cfg.Analysis.Scale)
	return t, nil
}

// newStages creates the band and onset stages for audio at sampleRate.
func newStages(cfg *config.Config, sampleRate float64) (pipeline.Stages, error) {
	bands, err := analysis.NewBandEnergy(sampleRate, analysis.DefaultBands())
	if err != nil {
		return pipeline.Stages{}, err
	}
	return pipeline.Stages{
		Bands: bands,
		Onset: analysis.NewOnsetDetector(cfg.Analysis.OnsetThreshold, cfg.Analysis.OnsetRatio),
	}, nil
}

// buildTransports creates the configured network transports. withLog adds a
// transport that logs about one frame per second.
func buildTransports(cfg *config.Config, withLog bool) (transport.Multi, error) {
	var out transport.Multi

	if cfg.Transport.WebSocketEnabled {
		out = append(out, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress))
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			out.Close()
			return nil, err
		}
		publisher, err := udp.NewUDPPublisher(sender)
		if err != nil {
			sender.Close()
			out.Close()
			return nil, err
		}
		out = append(out, publisher)
	}

	if withLog {
		every := max(int(time.Second/cfg.Display.TickInterval), 1)
		out = append(out, transport.NewLoggingTransport(every))
	}

	return out, nil
}

// startRecorder starts a recording when enabled. filename may be empty, in
// which case a timestamped name inside the output directory is used.
func startRecorder(cfg *config.Config, filename string, sampleRate float64) (*audio.Recorder, error) {
	if !cfg.Recording.Enabled {
		return nil, nil
	}
	if filename == "" {
		filename = audio.RecordingFilename(cfg.Recording.OutputDir, time.Now())
	}

	r := audio.NewRecorder(sampleRate, time.Duration(cfg.Recording.MaxDuration)*time.Second)
	if err := r.Start(filename); err != nil {
		return nil, err
	}
	applog.Infof("Recorder: Recording to %s", filename)
	return r, nil
}
