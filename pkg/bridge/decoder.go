// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"time"
)

// Decoder is the bridge packet decoder state machine
type Decoder struct {
	state        int
	buffer       []byte // unstuffed length + address + payload
	escapeNext   bool
	addressBytes int
	length       int
	packet       *Packet
	rawBuffer    []byte
}

// NewDecoder creates a new packet decoder
func NewDecoder() *Decoder {
	return &Decoder{
		state:     stateIdle,
		buffer:    make([]byte, 0, MaxPacketSize),
		rawBuffer: make([]byte, 0, MaxPacketSize*2),
	}
}

// Reset returns the decoder to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.buffer = d.buffer[:0]
	d.addressBytes = 0
	d.length = 0
	d.escapeNext = false
	d.packet = nil
	d.rawBuffer = d.rawBuffer[:0]
}

// RawBytes returns the bytes received since the last START
func (d *Decoder) RawBytes() []byte {
	return d.rawBuffer
}

// DecodeByte feeds one byte to the decoder. It returns a packet when an END
// byte completes a valid frame, nil while a frame is in progress, and an
// error for malformed frames.
func (d *Decoder) DecodeByte(b byte) (*Packet, error) {
	// Noise between frames is not kept
	if d.state != stateIdle {
		d.rawBuffer = append(d.rawBuffer, b)
	}

	// Framing bytes are never escaped on the wire
	switch b {
	case StartByte:
		d.Reset()
		d.rawBuffer = append(d.rawBuffer, b)
		d.state = stateLength
		return nil, nil
	case EndByte:
		return d.finish()
	case EscByte:
		if d.escapeNext {
			d.Reset()
			return nil, fmt.Errorf("double escape byte")
		}
		d.escapeNext = true
		return nil, nil
	}

	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateIdle:
		return nil, nil

	case stateLength:
		if b > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("invalid length: %d (max %d)", b, MaxPayloadSize)
		}
		d.length = int(b)
		d.packet = &Packet{cborPayload: make([]byte, 0, b)}
		d.buffer = append(d.buffer, b)
		d.state = stateAddress

	case stateAddress:
		d.packet.address |= uint64(b) << (d.addressBytes * 8)
		d.buffer = append(d.buffer, b)
		d.addressBytes++
		if d.addressBytes == AddressSize {
			if d.length == 0 {
				d.state = stateCRC1
			} else {
				d.state = statePayload
			}
		}

	case statePayload:
		d.packet.cborPayload = append(d.packet.cborPayload, b)
		d.buffer = append(d.buffer, b)
		if len(d.packet.cborPayload) == d.length {
			d.state = stateCRC1
		}

	case stateCRC1:
		d.packet.crc = uint16(b) << 8
		d.state = stateCRC2

	case stateCRC2:
		d.packet.crc |= uint16(b)
		d.state = stateEnd

	default:
		d.Reset()
		return nil, fmt.Errorf("unexpected byte 0x%02X after CRC", b)
	}
	return nil, nil
}

func (d *Decoder) finish() (*Packet, error) {
	defer d.Reset()

	if d.state != stateEnd {
		return nil, fmt.Errorf("unexpected END byte in state %d", d.state)
	}

	calculated := CalculateCRC(d.buffer)
	if d.packet.crc != calculated {
		return nil, fmt.Errorf("CRC mismatch: expected 0x%04X, got 0x%04X", calculated, d.packet.crc)
	}

	p := d.packet
	p.timestamp = time.Now()
	return p, nil
}
