// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

// decodeAll feeds every byte to a fresh decoder and returns the packets
func decodeAll(t *testing.T, data []byte) []*Packet {
	t.Helper()
	d := NewDecoder()
	var packets []*Packet
	for _, b := range data {
		p, err := d.DecodeByte(b)
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		if p != nil {
			packets = append(packets, p)
		}
	}
	return packets
}

// ============================================================
// CRC Tests
// ============================================================

func TestCalculateCRC(t *testing.T) {
	if crc := CalculateCRC(nil); crc != crcInitial {
		t.Errorf("CRC of empty data should be initial value, got 0x%04X", crc)
	}
	// CRC-16/CCITT-FALSE check value
	if crc := CalculateCRC([]byte("123456789")); crc != 0x29B1 {
		t.Errorf("expected 0x29B1, got 0x%04X", crc)
	}
}

// ============================================================
// Encoder / Decoder Tests
// ============================================================

func TestEncodePacket_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		packet *Packet
	}{
		{"ping", NewPingRequest(0x0123456789ABCDEF)},
		{"write with framing bytes", NewI2CWrite(AddressBroadcast, 0x6B, []byte{0x7E, 0x7F, 0x7D, 0x00, 0x21})},
		{"read", NewI2CRead(AddressStateless, 0x6C, 48)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := EncodePacket(tt.packet)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wire[0] != StartByte || wire[len(wire)-1] != EndByte {
				t.Errorf("packet not framed: % X", wire)
			}
			if bytes.IndexByte(wire[1:len(wire)-1], StartByte) >= 0 || bytes.IndexByte(wire[1:len(wire)-1], EndByte) >= 0 {
				t.Errorf("framing bytes not stuffed: % X", wire)
			}

			packets := decodeAll(t, wire)
			if len(packets) != 1 {
				t.Fatalf("expected 1 packet, got %d", len(packets))
			}
			got := packets[0]
			if got.Address() != tt.packet.Address() || got.Type() != tt.packet.Type() {
				t.Errorf("expected %s, got %s", tt.packet, got)
			}
			if err := got.ParseError(); err != nil {
				t.Errorf("unexpected parse error: %v", err)
			}
			wantData, _ := tt.packet.Data()
			gotData, _ := got.Data()
			if !bytes.Equal(wantData, gotData) {
				t.Errorf("expected data % X, got % X", wantData, gotData)
			}
		})
	}
}

func TestEncodePacket_PayloadTooLarge(t *testing.T) {
	_, err := EncodePacket(NewI2CWrite(0, 0x6B, make([]byte, MaxPayloadSize)))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestDecoder_CRCMismatch(t *testing.T) {
	wire, _ := EncodePacket(NewPingRequest(1))
	wire[len(wire)-2] ^= 0x01

	d := NewDecoder()
	var lastErr error
	for _, b := range wire {
		if _, err := d.DecodeByte(b); err != nil {
			lastErr = err
		}
	}
	if lastErr == nil || !strings.Contains(lastErr.Error(), "CRC mismatch") {
		t.Errorf("expected CRC mismatch, got %v", lastErr)
	}
}

func TestDecoder_InvalidLength(t *testing.T) {
	d := NewDecoder()
	d.DecodeByte(StartByte)
	if _, err := d.DecodeByte(MaxPayloadSize + 1); err == nil {
		t.Error("expected length error")
	}
}

func TestDecoder_UnexpectedEnd(t *testing.T) {
	d := NewDecoder()
	d.DecodeByte(StartByte)
	d.DecodeByte(0x02)
	if _, err := d.DecodeByte(EndByte); err == nil {
		t.Error("expected error for truncated packet")
	}
}

func TestDecoder_StartByteResetsState(t *testing.T) {
	wire, _ := EncodePacket(NewPingRequest(7))
	// A truncated packet followed by a complete one
	stream := append([]byte{StartByte, 0x05, 0x01, 0x02}, wire...)

	packets := decodeAll(t, stream)
	if len(packets) != 1 || packets[0].Address() != 7 {
		t.Errorf("expected the complete packet only, got %v", packets)
	}
}

func TestDecoder_IgnoresNoiseBeforeStart(t *testing.T) {
	wire, _ := EncodePacket(NewPingRequest(9))
	packets := decodeAll(t, append([]byte{0x00, 0x55, 0xAA}, wire...))
	if len(packets) != 1 {
		t.Errorf("expected 1 packet, got %d", len(packets))
	}
}

func TestDecoder_NoiseDoesNotAccumulate(t *testing.T) {
	d := NewDecoder()
	for i := 0; i < 10*MaxPacketSize; i++ {
		if _, err := d.DecodeByte(0x55); err != nil {
			t.Fatalf("unexpected error on idle noise: %v", err)
		}
	}
	if n := len(d.RawBytes()); n != 0 {
		t.Errorf("idle noise should not be buffered, have %d bytes", n)
	}

	wire, _ := EncodePacket(NewPingRequest(9))
	var got *Packet
	for _, b := range wire {
		p, err := d.DecodeByte(b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil {
			got = p
		}
	}
	if got == nil || got.Type() != MsgPingRequest {
		t.Errorf("expected the ping after the noise, got %v", got)
	}
}

func TestStuffUnstuffRoundTrip(t *testing.T) {
	data := []byte{0x00, StartByte, 0x11, EndByte, EscByte, 0xFF}
	stuffed := stuffBytes(data)
	if len(stuffed) != len(data)+3 {
		t.Errorf("expected 3 escapes, got % X", stuffed)
	}
	got, err := UnstuffBytes(stuffed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("expected % X, got % X", data, got)
	}

	if _, err := UnstuffBytes([]byte{0x01, EscByte}); err == nil {
		t.Error("expected error for incomplete escape")
	}
}

// ============================================================
// CBOR Tests
// ============================================================

func TestParseCBORMessage_Errors(t *testing.T) {
	mustMarshal := func(v interface{}) []byte {
		data, err := cbor.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an array", mustMarshal(42)},
		{"wrong arity", mustMarshal([]interface{}{uint64(1)})},
		{"type not uint", mustMarshal([]interface{}{"x", nil})},
		{"type out of range", mustMarshal([]interface{}{uint64(300), nil})},
		{"payload not a map", mustMarshal([]interface{}{uint64(1), "x"})},
		{"string key", mustMarshal([]interface{}{uint64(1), map[string]int{"a": 1}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseCBORMessage(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetMapHelpers(t *testing.T) {
	m := map[int]interface{}{0: uint64(5), 1: []byte{1, 2}, 2: int64(-1), 3: int64(7)}

	if v, ok := GetMapUint(m, 0); !ok || v != 5 {
		t.Errorf("expected 5, got %d", v)
	}
	if _, ok := GetMapUint(m, 2); ok {
		t.Error("negative values are not unsigned")
	}
	if v, ok := GetMapUint(m, 3); !ok || v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
	if b, ok := GetMapBytes(m, 1); !ok || !bytes.Equal(b, []byte{1, 2}) {
		t.Errorf("unexpected bytes % X", b)
	}
	if _, ok := GetMapBytes(nil, 1); ok {
		t.Error("nil map has no values")
	}
}

func TestPacket_String(t *testing.T) {
	s := NewI2CRead(0, 0x6B, 27).String()
	if !strings.Contains(s, "I2C_READ addr=0x6B count=27") {
		t.Errorf("unexpected %q", s)
	}
}
