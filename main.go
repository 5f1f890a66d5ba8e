// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"spectra/cmd"
	applog "spectra/internal/log"
	"spectra/pkg/build"
	"syscall"
)

// main is the entry point for the spectrum analyser.
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and configuration
//
// 2. Concurrent Phase (Hot Path):
//   - Capture callback pushes audio into the acquisition queue
//   - Pipeline ticks drain it, analyse and publish frames
//   - Optional terminal UI draws the frames
//
// 3. Shutdown Phase (Cold Path):
//   - SIGINT/SIGTERM cancel the run context
//   - Recording is finalized, transports and the stream are closed
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no linker flags; their fallback information is
	// good enough to run with.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v", err)
	}

	// Limit OS threads for real-time audio processing:
	// - One thread for the capture callback (time-critical)
	// - One thread for the analysis tick, UI and I/O
	runtime.GOMAXPROCS(2)

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[1:])
	stop()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	applog.Sync()
	if err != nil {
		applog.Fatalf("%v", err)
	}
}
