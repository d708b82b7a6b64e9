// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge carries SEN6x I2C transactions over a serial or WebSocket
// link to a microcontroller that owns the physical bus.
//
// Packets use the Thermoquad serial envelope: START, length, 8-byte
// little-endian bridge address, CBOR payload [msg_type, payload_map],
// CRC-16-CCITT, END, with byte stuffing between the framing bytes.
package bridge

import "time"

// Protocol framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Packet size limits
const (
	MaxPacketSize  = 128 // 14 overhead + 114 payload
	MaxPayloadSize = 114
	AddressSize    = 8
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Special addresses
const (
	AddressBroadcast = 0x0000000000000000
	AddressStateless = 0xFFFFFFFFFFFFFFFF
)

// Message types - I2C requests (host → bridge) 0x10-0x1F
const (
	MsgI2CWrite = 0x10 // {0: addr, 1: bytes}
	MsgI2CRead  = 0x11 // {0: addr, 1: count}
)

// Message types - control (host → bridge) 0x20-0x2F
const (
	MsgPingRequest = 0x2F
)

// Message types - replies (bridge → host) 0x30-0x3F
const (
	MsgI2CData      = 0x30 // {0: addr, 1: bytes}
	MsgI2CAck       = 0x31 // {0: addr}
	MsgPingResponse = 0x3F // {0: uptime_ms}
)

// Message types - errors (bridge → host)
const (
	MsgError = 0xE0 // {0: code}
)

// Payload map keys
const (
	keyAddr   = 0
	keyData   = 1
	keyCount  = 1
	keyUptime = 0
	keyCode   = 0
)

// DefaultTimeout bounds the wait for a bridge reply
const DefaultTimeout = 2 * time.Second

// Decoder states (internal)
const (
	stateIdle = iota
	stateLength
	stateAddress
	statePayload
	stateCRC1
	stateCRC2
	stateEnd // CRC complete, waiting for END
)

// MessageName returns the name of a message type
func MessageName(msgType uint8) string {
	switch msgType {
	case MsgI2CWrite:
		return "I2C_WRITE"
	case MsgI2CRead:
		return "I2C_READ"
	case MsgPingRequest:
		return "PING_REQUEST"
	case MsgI2CData:
		return "I2C_DATA"
	case MsgI2CAck:
		return "I2C_ACK"
	case MsgPingResponse:
		return "PING_RESPONSE"
	case MsgError:
		return "ERROR"
	}
	return "UNKNOWN"
}
