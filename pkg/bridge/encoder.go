// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"encoding/binary"
	"fmt"
)

// EncodePacket encodes p to wire format
func EncodePacket(p *Packet) ([]byte, error) {
	return EncodePacketFromValues(p.Address(), p.Type(), p.PayloadMap())
}

// EncodePacketFromValues builds a framed, stuffed packet ready for transmission
func EncodePacketFromValues(address uint64, msgType uint8, payloadMap map[int]interface{}) ([]byte, error) {
	cborPayload, err := encodeCBORPayload(msgType, payloadMap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR payload: %w", err)
	}
	if len(cborPayload) > MaxPayloadSize {
		return nil, fmt.Errorf("CBOR payload too large: %d bytes (max %d)", len(cborPayload), MaxPayloadSize)
	}

	// length + address + payload is covered by the CRC and stuffed
	data := make([]byte, 1+AddressSize, 1+AddressSize+len(cborPayload)+2)
	data[0] = uint8(len(cborPayload))
	binary.LittleEndian.PutUint64(data[1:], address)
	data = append(data, cborPayload...)

	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc))

	packet := make([]byte, 0, len(data)*2+2)
	packet = append(packet, StartByte)
	packet = append(packet, stuffBytes(data)...)
	return append(packet, EndByte), nil
}

// NewI2CWrite builds a request writing data to the I2C device at addr
func NewI2CWrite(bridge uint64, addr uint16, data []byte) *Packet {
	return NewPacket(bridge, MsgI2CWrite, map[int]interface{}{
		keyAddr: uint64(addr),
		keyData: data,
	})
}

// NewI2CRead builds a request reading count bytes from the I2C device at addr
func NewI2CRead(bridge uint64, addr uint16, count int) *Packet {
	return NewPacket(bridge, MsgI2CRead, map[int]interface{}{
		keyAddr:  uint64(addr),
		keyCount: uint64(count),
	})
}

// NewPingRequest builds a ping request
func NewPingRequest(bridge uint64) *Packet {
	return NewPacket(bridge, MsgPingRequest, nil)
}

// stuffBytes replaces START, END and ESC with ESC + (byte XOR EscXor)
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}

// UnstuffBytes removes byte stuffing from escaped data
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false
	for _, b := range data {
		switch {
		case escapeNext:
			result = append(result, b^EscXor)
			escapeNext = false
		case b == EscByte:
			escapeNext = true
		default:
			result = append(result, b)
		}
	}
	if escapeNext {
		return nil, fmt.Errorf("incomplete escape sequence at end of data")
	}
	return result, nil
}
