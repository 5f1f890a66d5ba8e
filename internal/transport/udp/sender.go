// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"io"
	"net"
	applog "spectra/internal/log"
	"sync"
	"sync/atomic"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp: sender closed")

// UDPSender writes datagrams to one fixed destination over a connected UDP
// socket. A nil conn marks the sender as closed.
type UDPSender struct {
	target *net.UDPAddr

	mu   sync.Mutex
	conn *net.UDPConn

	packets atomic.Uint64
	bytes   atomic.Uint64
}

// Ensure UDPSender satisfies the interface the publisher needs.
var _ PacketSender = (*UDPSender)(nil)

// NewUDPSender resolves targetAddress ("host:port") and connects a socket to
// it. No local port is bound.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	target, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("resolving UDP target '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("connecting UDP socket to '%s': %w", targetAddress, err)
	}

	applog.Infof("UDPSender: Sending to %s from %s", target, conn.LocalAddr())
	return &UDPSender{target: target, conn: conn}, nil
}

// Send writes data as one datagram. A missing receiver surfaces as a write
// error on a later Send; callers treat it as transient.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrSenderClosed
	}

	n, err := s.conn.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		applog.Debugf("UDPSender: Write to %s failed: %v", s.target, err)
		return fmt.Errorf("sending %d byte datagram: %w", len(data), err)
	}

	s.packets.Add(1)
	s.bytes.Add(uint64(n))
	return nil
}

// Close closes the socket. Closing twice is a no-op.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	applog.Infof("UDPSender: Closing %s after %d packets (%d bytes)", s.target, s.packets.Load(), s.bytes.Load())
	if err := conn.Close(); err != nil {
		return fmt.Errorf("closing UDP socket: %w", err)
	}
	return nil
}

// Target returns the resolved destination address.
func (s *UDPSender) Target() *net.UDPAddr {
	return s.target
}

// Stats returns the number of datagrams and bytes sent so far.
func (s *UDPSender) Stats() (packets, bytes uint64) {
	return s.packets.Load(), s.bytes.Load()
}
