// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	applog "spectra/internal/log"
	"strings"
)

// LoggingTransport implements the Transport interface by logging frames.
// Every frame is logged at debug level; one in every `every` frames at info.
type LoggingTransport struct {
	every uint32
}

// NewLoggingTransport creates a new LoggingTransport instance. every <= 0 keeps
// all frames at debug level.
func NewLoggingTransport(every int) *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{every: uint32(max(every, 0))}
}

// Send logs a one-line summary of the frame.
func (lt *LoggingTransport) Send(frame *Frame) error {
	if lt.every > 0 && frame.Seq%lt.every == 0 {
		applog.Infof("Frame: %s", FormatFrame(frame))
	} else {
		applog.Debugf("Frame: %s", FormatFrame(frame))
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed")
	return nil
}

// FormatFrame renders a frame as a single line.
func FormatFrame(frame *Frame) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s peak=%.3f", frame.Seq, frame.State, frame.Peak)
	if frame.Silent {
		sb.WriteString(" silent")
	}
	if frame.Onset {
		sb.WriteString(" onset")
	}
	sb.WriteString(" [")
	for i, v := range frame.Bins {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.2f", v)
	}
	sb.WriteByte(']')
	return sb.String()
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
