// SPDX-License-Identifier: MIT
package transport

import (
	"time"

	"go.uber.org/multierr"
)

// Frame is one analysis tick as published to visualizers.
type Frame struct {
	Seq       uint32             `json:"seq"`             // Monotonically increasing per pipeline.
	Timestamp time.Time          `json:"timestamp"`       // When the tick ran.
	Bins      []float32          `json:"bins"`            // Display bins, always exactly the configured count.
	Silent    bool               `json:"silent"`          // Bins were zeroed by the silence rule or the gate.
	Peak      float64            `json:"peak"`            // Peak input level since the previous tick, 0-1.
	Bands     map[string]float64 `json:"bands,omitempty"` // RMS magnitude per frequency band.
	Onset     bool               `json:"onset"`           // Spectral energy jumped since the previous tick.
	State     string             `json:"state"`           // Capture source state.
	Raw       []float64          `json:"raw,omitempty"`   // Full spectrum, when enabled.
}

// Transport defines a generic interface for publishing frames.
// Implementations should be thread-safe and must not block the caller for long:
// Send runs on the analysis tick.
type Transport interface {
	Send(frame *Frame) error
	Close() error
}

// Multi fans frames out to several transports.
type Multi []Transport

// Send delivers frame to every transport, even when some fail, and returns the
// combined error.
func (m Multi) Send(frame *Frame) error {
	var err error
	for _, t := range m {
		err = multierr.Append(err, t.Send(frame))
	}
	return err
}

// Close closes every transport and returns the combined error.
func (m Multi) Close() error {
	var err error
	for _, t := range m {
		err = multierr.Append(err, t.Close())
	}
	return err
}

// Ensure Multi satisfies the interface at compile time.
var _ Transport = Multi(nil)
