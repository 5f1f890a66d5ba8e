// SPDX-License-Identifier: MIT
package tui

import (
	applog "spectra/internal/log"
	"spectra/internal/transport"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// ProgramTransport implements the Transport interface by forwarding frames to
// a Bubble Tea program. Only the newest frame is kept: if the program is busy
// drawing, older frames are replaced rather than queued, so Send never blocks
// the analysis tick.
type ProgramTransport struct {
	send      func(tea.Msg)
	latest    chan *transport.Frame
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	replaced  atomic.Uint64
}

// NewProgramTransport creates a transport that holds frames until Attach
// connects it to a program.
func NewProgramTransport() *ProgramTransport {
	return &ProgramTransport{
		latest: make(chan *transport.Frame, 1),
		done:   make(chan struct{}),
	}
}

func newProgramTransport(send func(tea.Msg)) *ProgramTransport {
	t := NewProgramTransport()
	t.start(send)
	return t
}

// Attach starts forwarding frames to p. Call it once, after the program was
// created.
func (t *ProgramTransport) Attach(p *tea.Program) {
	t.start(p.Send)
}

func (t *ProgramTransport) start(send func(tea.Msg)) {
	t.send = send
	t.wg.Add(1)
	go t.forward()
}

func (t *ProgramTransport) forward() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case f := <-t.latest:
			t.send(FrameMsg{Frame: f})
		}
	}
}

// Send hands frame to the program. The pipeline allocates a new frame per
// tick, so the frame is not copied.
func (t *ProgramTransport) Send(frame *transport.Frame) error {
	select {
	case <-t.done:
		return transport.ErrClosed
	default:
	}

	for {
		select {
		case t.latest <- frame:
			return nil
		default:
		}
		// Replace the pending frame with the newer one.
		select {
		case <-t.latest:
			t.replaced.Add(1)
		default:
		}
	}
}

// Replaced returns how many frames were superseded before the program saw them.
func (t *ProgramTransport) Replaced() uint64 {
	return t.replaced.Load()
}

// Close stops forwarding. The program itself is not stopped.
func (t *ProgramTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.wg.Wait()
		applog.Debugf("Transport: ProgramTransport closed (%d frames replaced)", t.replaced.Load())
	})
	return nil
}

// Ensure ProgramTransport satisfies the interface at compile time.
var _ transport.Transport = (*ProgramTransport)(nil)
