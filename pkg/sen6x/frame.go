// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import "encoding/binary"

// groupSize is the wire size of one data word: 2 data bytes + 1 CRC byte
const groupSize = 3

// EncodeFrame builds an outbound frame: the opcode big-endian without CRC,
// followed by [hi, lo, crc] for each parameter word.
func EncodeFrame(opcode uint16, words ...uint16) []byte {
	frame := make([]byte, 2, 2+len(words)*groupSize)
	binary.BigEndian.PutUint16(frame, opcode)
	for _, w := range words {
		hi, lo := byte(w>>8), byte(w)
		frame = append(frame, hi, lo, wordCRC(hi, lo))
	}
	return frame
}

// EncodeBytes builds an outbound frame from a raw payload. The payload is
// split into 2-byte words, each followed by its CRC.
func EncodeBytes(opcode uint16, data []byte) ([]byte, error) {
	if len(data)%2 != 0 {
		return nil, errorf(CodeInvalidParameter, "encode", "payload length %d is not a whole number of words", len(data))
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return EncodeFrame(opcode, words...), nil
}

// ExpectedFrameLength returns the number of bus bytes carrying count data bytes
func ExpectedFrameLength(count int) int {
	return count / 2 * groupSize
}

// DecodeFrame validates an inbound frame and returns its data bytes.
//
// In fixed-count mode the frame must be exactly ExpectedFrameLength(count)
// bytes and yield exactly count data bytes. In zero-terminated mode decoding
// stops at the first {0,0} word, count is only an upper bound, and whatever
// follows the terminator is discarded.
func DecodeFrame(frame []byte, count int, zeroTerminated bool) ([]byte, error) {
	expected := ExpectedFrameLength(count)
	if len(frame) != expected {
		return nil, errorf(CodeProtocol, "decode", "expected %d bytes, got %d", expected, len(frame))
	}
	if len(frame) == 0 {
		return nil, errorf(CodeProtocol, "decode", "received no bytes")
	}

	data := make([]byte, 0, count)
	for i := 0; i+groupSize <= len(frame); i += groupSize {
		hi, lo, crc := frame[i], frame[i+1], frame[i+2]
		if calc := wordCRC(hi, lo); calc != crc {
			return nil, errorf(CodeProtocol, "decode", "CRC mismatch at byte %d: expected 0x%02X, got 0x%02X", i+2, calc, crc)
		}
		data = append(data, hi, lo)

		if zeroTerminated && hi == 0 && lo == 0 {
			// Rest of the frame is drained
			return data, nil
		}
		if len(data) >= count {
			break
		}
	}

	if len(data) != count {
		return nil, errorf(CodeDataLength, "decode", "expected %d data bytes, got %d", count, len(data))
	}
	return data, nil
}

// trimZero returns the string up to the first NUL byte
func trimZero(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

func be16(data []byte, offset int) uint16 {
	return binary.BigEndian.Uint16(data[offset:])
}

func be16s(data []byte, offset int) int16 {
	return int16(binary.BigEndian.Uint16(data[offset:]))
}
