// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// CRC Tests
// ============================================================

func TestCalculateCRC_Empty(t *testing.T) {
	crc := CalculateCRC([]byte{})
	if crc != crcInitial {
		t.Errorf("CRC of empty data should be initial value, got 0x%02X", crc)
	}
}

func TestCalculateCRC_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint8
	}{
		{"datasheet example 0xBEEF", []byte{0xBE, 0xEF}, 0x92},
		{"zero word", []byte{0x00, 0x00}, 0x81},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := CalculateCRC(tt.data)
			if crc != tt.expected {
				t.Errorf("CRC mismatch: expected 0x%02X, got 0x%02X", tt.expected, crc)
			}
		})
	}
}

func TestCalculateCRC_PerWordNotCumulative(t *testing.T) {
	frame := EncodeFrame(0x60B2, 0xBEEF, 0xBEEF)
	if frame[4] != 0x92 || frame[7] != 0x92 {
		t.Errorf("each word should carry its own CRC, got 0x%02X and 0x%02X", frame[4], frame[7])
	}
}

// ============================================================
// Encode Tests
// ============================================================

func TestEncodeFrame_OpcodeOnly(t *testing.T) {
	frame := EncodeFrame(0x0021)
	if !bytes.Equal(frame, []byte{0x00, 0x21}) {
		t.Errorf("expected opcode bytes without CRC, got % X", frame)
	}
}

func TestEncodeFrame_WithWords(t *testing.T) {
	frame := EncodeFrame(0x6720, 0x03F4)
	expected := []byte{0x67, 0x20, 0x03, 0xF4, CalculateCRC([]byte{0x03, 0xF4})}
	if !bytes.Equal(frame, expected) {
		t.Errorf("expected % X, got % X", expected, frame)
	}
}

func TestEncodeFrame_AllWordsRoundTrip(t *testing.T) {
	for w := 0; w <= 0xFFFF; w++ {
		frame := EncodeFrame(0x0000, uint16(w))
		data, err := DecodeFrame(frame[2:], 2, false)
		if err != nil {
			t.Fatalf("word 0x%04X: unexpected error %v", w, err)
		}
		if be16(data, 0) != uint16(w) {
			t.Fatalf("word 0x%04X decoded as 0x%04X", w, be16(data, 0))
		}
	}
}

func TestEncodeBytes(t *testing.T) {
	frame, err := EncodeBytes(0x6181, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frame) != 2+4*3 {
		t.Fatalf("expected 14 bytes, got %d", len(frame))
	}
	if !bytes.Equal(frame, EncodeFrame(0x6181, 0x0102, 0x0304, 0x0506, 0x0708)) {
		t.Errorf("byte payload should encode like words, got % X", frame)
	}
}

func TestEncodeBytes_OddLength(t *testing.T) {
	_, err := EncodeBytes(0x6181, []byte{1, 2, 3})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected InvalidParameter, got %v", err)
	}
}

// ============================================================
// Decode Tests
// ============================================================

func TestDecodeFrame_FixedCount(t *testing.T) {
	data := []byte{0x00, 0x64, 0x12, 0x34, 0xFF, 0xFF}
	got, err := DecodeFrame(buildReply(data), len(data), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("expected % X, got % X", data, got)
	}
}

func TestDecodeFrame_BitFlips(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78}
	frame := buildReply(data)

	for i := range frame {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), frame...)
			corrupt[i] ^= 1 << bit
			_, err := DecodeFrame(corrupt, len(data), false)
			if !errors.Is(err, ErrProtocol) {
				t.Fatalf("byte %d bit %d: expected Protocol error, got %v", i, bit, err)
			}
		}
	}
}

func TestDecodeFrame_WrongBusCount(t *testing.T) {
	frame := buildReply([]byte{1, 2, 3, 4})

	tests := []struct {
		name  string
		frame []byte
	}{
		{"short", frame[:3]},
		{"long", append(append([]byte(nil), frame...), buildReply([]byte{5, 6})...)},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFrame(tt.frame, 4, false)
			if CodeOf(err) != CodeProtocol {
				t.Errorf("expected Protocol, got %v", err)
			}
		})
	}
}

func TestDecodeFrame_OddCount(t *testing.T) {
	_, err := DecodeFrame(buildReply([]byte{1, 2}), 3, false)
	if CodeOf(err) != CodeDataLength {
		t.Errorf("expected DataLength, got %v", err)
	}
}

func TestDecodeFrame_ZeroTerminated(t *testing.T) {
	data := make([]byte, 32)
	copy(data, "SEN66")
	for i := 8; i < len(data); i++ {
		data[i] = 0xAA // garbage after the terminator
	}

	got, err := DecodeFrame(buildReply(data), 32, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trimZero(got) != "SEN66" {
		t.Errorf("expected SEN66, got %q", trimZero(got))
	}
	if len(got) != 8 {
		t.Errorf("decoding should stop at the first zero word, got %d bytes", len(got))
	}
}

func TestDecodeFrame_ZeroTerminatedIgnoresTrailingCRC(t *testing.T) {
	data := make([]byte, 8)
	copy(data, "AB")
	frame := buildReply(data)
	frame[len(frame)-1] ^= 0xFF // corrupt a word after the terminator

	got, err := DecodeFrame(frame, 8, true)
	if err != nil {
		t.Fatalf("trailing bytes should be drained unchecked, got %v", err)
	}
	if trimZero(got) != "AB" {
		t.Errorf("expected AB, got %q", trimZero(got))
	}
}

func TestDecodeFrame_ZeroTerminatedFull(t *testing.T) {
	data := []byte("ABCDEFGH")
	got, err := DecodeFrame(buildReply(data), 8, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "ABCDEFGH" {
		t.Errorf("expected full string, got %q", got)
	}
}

func TestExpectedFrameLength(t *testing.T) {
	tests := []struct{ count, expected int }{
		{2, 3}, {4, 6}, {14, 21}, {18, 27}, {32, 48},
	}
	for _, tt := range tests {
		if got := ExpectedFrameLength(tt.count); got != tt.expected {
			t.Errorf("ExpectedFrameLength(%d) = %d, expected %d", tt.count, got, tt.expected)
		}
	}
}

// ============================================================
// Error Tests
// ============================================================

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"nil", nil, CodeOK},
		{"plain error", errors.New("boom"), CodeProtocol},
		{"sentinel", ErrTimeout, CodeTimeout},
		{"wrapped", newError(CodeUnknownCommand, "ALTITUDE", nil), CodeUnknownCommand},
		{"joined keeps first", errors.Join(ErrInvalidParameter, ErrProtocol), CodeInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCode_String(t *testing.T) {
	if CodeProtocol.String() != "Protocol error" {
		t.Errorf("unexpected description %q", CodeProtocol.String())
	}
	if CodeFirmwareTooOld.String() != "Not supported on this SEN6x firmware level" {
		t.Errorf("unexpected description %q", CodeFirmwareTooOld.String())
	}
	if Code(0xEE).String() != "Unknown error (0xEE)" {
		t.Errorf("unexpected description %q", Code(0xEE).String())
	}
}

func TestBusError_KeepsCode(t *testing.T) {
	err := busError("READ_VERSION", ErrTimeout)
	if CodeOf(err) != CodeTimeout {
		t.Errorf("expected Timeout to survive, got %v", err)
	}
	err = busError("READ_VERSION", errors.New("nack"))
	if CodeOf(err) != CodeProtocol {
		t.Errorf("expected Protocol, got %v", err)
	}
}
