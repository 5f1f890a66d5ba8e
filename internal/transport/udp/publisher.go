// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	applog "spectra/internal/log"
	"spectra/internal/transport"
	"time"
)

// headerSize is the size of the fixed packet header in bytes.
const headerSize = 4 + 8 + 2

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

// PacketSender is the part of UDPSender the publisher uses.
type PacketSender interface {
	Send(data []byte) error
	Close() error
}

// UDPPublisher packs frames into a defined binary format and sends them over
// UDP using a UDPSender. It implements transport.Transport and is driven by
// the pipeline's tick.
type UDPPublisher struct {
	sender PacketSender // The underlying UDP sender instance.

	// Pre-allocated buffer to reduce allocations in the hot path.
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
func NewUDPPublisher(sender PacketSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	applog.Infof("UDPPublisher: Initializing")
	return &UDPPublisher{
		sender:       sender,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

/*
UDP Packet Structure (BigEndian) - See visual diagram below

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Frame sequence number   |
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Bin Count         | uint16         | 2            | Number of floats (N)    |
| Bins              | []float32      | N * 4        | Display bins            |
+-----------------------------------------------------------------------------+

Visual Layout:

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Bin Count   |          Bins           |
|      (uint32)     |        (int64)        |    (uint16)   |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// Send packs frame and transmits it as a single datagram.
func (p *UDPPublisher) Send(frame *transport.Frame) error {
	if len(frame.Bins) > math.MaxUint16 {
		return fmt.Errorf("UDPPublisher: %d bins exceed packet limit", len(frame.Bins))
	}

	p.packetBuffer.Reset()

	// Chain error checks for cleaner code.
	err := binary.Write(p.packetBuffer, binary.BigEndian, frame.Seq)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, frame.Timestamp.UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(frame.Bins)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, frame.Bins)
	}
	if err != nil {
		return fmt.Errorf("UDPPublisher: packing frame %d: %w", frame.Seq, err)
	}

	packetBytes := p.packetBuffer.Bytes()
	if err := p.sender.Send(packetBytes); err != nil {
		return err
	}

	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", frame.Seq, len(packetBytes))
	return nil
}

// Close closes the underlying sender.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called")
	return p.sender.Close()
}

// DecodePacket parses a packet produced by Send.
func DecodePacket(packet []byte) (seq uint32, timestamp time.Time, bins []float32, err error) {
	if len(packet) < headerSize {
		return 0, time.Time{}, nil, ErrShortPacket
	}
	seq = binary.BigEndian.Uint32(packet[0:4])
	timestamp = time.Unix(0, int64(binary.BigEndian.Uint64(packet[4:12])))
	count := int(binary.BigEndian.Uint16(packet[12:14]))

	payload := packet[headerSize:]
	if len(payload) < count*4 {
		return 0, time.Time{}, nil, fmt.Errorf("%w: %d bins need %d bytes, got %d", ErrShortPacket, count, count*4, len(payload))
	}
	bins = make([]float32, count)
	for i := range bins {
		bins[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[i*4:]))
	}
	return seq, timestamp, bins, nil
}

// Ensure UDPPublisher satisfies the interface at compile time.
var _ transport.Transport = (*UDPPublisher)(nil)
