// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"time"
)

// Packet is one decoded bridge packet
type Packet struct {
	address     uint64
	cborPayload []byte // [msg_type, payload_map]
	crc         uint16
	timestamp   time.Time

	// Parsed lazily from cborPayload
	msgType    uint8
	payloadMap map[int]interface{}
	parsed     bool
	parseErr   error
}

// NewPacket builds a packet from a message type and payload map
func NewPacket(address uint64, msgType uint8, payload map[int]interface{}) *Packet {
	return &Packet{
		address:    address,
		msgType:    msgType,
		payloadMap: payload,
		parsed:     true,
		timestamp:  time.Now(),
	}
}

func (p *Packet) ensureParsed() {
	if p.parsed {
		return
	}
	p.parsed = true
	if len(p.cborPayload) == 0 {
		return
	}
	p.msgType, p.payloadMap, p.parseErr = ParseCBORMessage(p.cborPayload)
}

// Address returns the bridge address the packet was sent from or to
func (p *Packet) Address() uint64 {
	return p.address
}

// Type returns the message type
func (p *Packet) Type() uint8 {
	p.ensureParsed()
	return p.msgType
}

// Payload returns the raw CBOR bytes (nil for packets built with NewPacket)
func (p *Packet) Payload() []byte {
	return p.cborPayload
}

// PayloadMap returns the decoded payload map (nil for empty payloads)
func (p *Packet) PayloadMap() map[int]interface{} {
	p.ensureParsed()
	return p.payloadMap
}

// ParseError returns any error from parsing the CBOR payload
func (p *Packet) ParseError() error {
	p.ensureParsed()
	return p.parseErr
}

// CRC returns the received CRC
func (p *Packet) CRC() uint16 {
	return p.crc
}

// Timestamp returns when the packet was decoded or built
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}

// I2CAddress returns the target I2C address carried by I2C messages
func (p *Packet) I2CAddress() (uint16, bool) {
	v, ok := GetMapUint(p.PayloadMap(), keyAddr)
	if !ok || v > 0x7F {
		return 0, false
	}
	return uint16(v), true
}

// Data returns the byte string carried by I2C_WRITE and I2C_DATA
func (p *Packet) Data() ([]byte, bool) {
	return GetMapBytes(p.PayloadMap(), keyData)
}

// String formats the packet for logs
func (p *Packet) String() string {
	if err := p.ParseError(); err != nil {
		return fmt.Sprintf("[0x%016X] invalid payload: %v", p.address, err)
	}

	m := p.PayloadMap()
	switch p.Type() {
	case MsgI2CWrite, MsgI2CData:
		addr, _ := p.I2CAddress()
		data, _ := p.Data()
		return fmt.Sprintf("[0x%016X] %s addr=0x%02X data=% X", p.address, MessageName(p.Type()), addr, data)
	case MsgI2CRead:
		addr, _ := p.I2CAddress()
		count, _ := GetMapUint(m, keyCount)
		return fmt.Sprintf("[0x%016X] I2C_READ addr=0x%02X count=%d", p.address, addr, count)
	case MsgI2CAck:
		addr, _ := p.I2CAddress()
		return fmt.Sprintf("[0x%016X] I2C_ACK addr=0x%02X", p.address, addr)
	case MsgPingResponse:
		uptime, _ := GetMapUint(m, keyUptime)
		return fmt.Sprintf("[0x%016X] PING_RESPONSE uptime=%dms", p.address, uptime)
	case MsgError:
		code, _ := GetMapUint(m, keyCode)
		return fmt.Sprintf("[0x%016X] ERROR code=0x%02X", p.address, code)
	}
	return fmt.Sprintf("[0x%016X] %s (0x%02X)", p.address, MessageName(p.Type()), p.Type())
}
