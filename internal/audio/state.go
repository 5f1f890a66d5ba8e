// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	applog "spectra/internal/log"
	"sync/atomic"
)

// ErrCaptureUnavailable is reported when the capture source cannot deliver
// audio. It is an environmental condition: the pipeline keeps running and
// publishes silent frames.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// State is the lifecycle state of a capture source.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateSuspended
	StateFailed
	StateTerminated
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateSuspended:
		return "suspended"
	case StateFailed:
		return "failed"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Source is a capture collaborator that pushes audio into a Queue.
type Source interface {
	Start() error
	Close() error
	State() State
}

// StateTracker holds a source's state for lock-free reads from other
// goroutines and logs every transition.
type StateTracker struct {
	name  string
	state atomic.Int32
}

// NewStateTracker creates a tracker in StateDisconnected.
func NewStateTracker(name string) *StateTracker {
	return &StateTracker{name: name}
}

// Set moves to state to and logs the transition. Terminated is final; later
// transitions are ignored and Set returns false.
func (t *StateTracker) Set(to State) bool {
	for {
		from := State(t.state.Load())
		if from == StateTerminated || from == to {
			return false
		}
		if t.state.CompareAndSwap(int32(from), int32(to)) {
			t.logTransition(from, to)
			return true
		}
	}
}

// Transition moves from state from to state to only if the tracker is in
// from. It reports whether the move happened.
func (t *StateTracker) Transition(from, to State) bool {
	if from == to || from == StateTerminated {
		return false
	}
	if !t.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	t.logTransition(from, to)
	return true
}

func (t *StateTracker) logTransition(from, to State) {
	if to == StateFailed {
		applog.Warnf("Audio: %s capture %s -> %s", t.name, from, to)
	} else {
		applog.Infof("Audio: %s capture %s -> %s", t.name, from, to)
	}
}

// State returns the current state.
func (t *StateTracker) State() State {
	return State(t.state.Load())
}

// Err returns nil while the source is ready or deliberately suspended and an
// ErrCaptureUnavailable wrap otherwise.
func (t *StateTracker) Err() error {
	switch s := t.State(); s {
	case StateReady, StateSuspended:
		return nil
	default:
		return fmt.Errorf("%w: %s is %s", ErrCaptureUnavailable, t.name, s)
	}
}
