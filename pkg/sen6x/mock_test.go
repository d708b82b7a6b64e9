// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import (
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// ============================================================
// Test Doubles
// ============================================================

type busCall struct {
	write bool
	addr  uint16
	data  []byte // written frame
	n     int    // requested read length
}

// mockBus records every transaction and replays queued read responses
type mockBus struct {
	calls     []busCall
	responses [][]byte

	writeErr    error
	readErr     error
	failOpcodes map[uint16]error
}

func newMockBus() *mockBus {
	return &mockBus{failOpcodes: make(map[uint16]error)}
}

func (m *mockBus) Write(addr uint16, w []byte) error {
	m.calls = append(m.calls, busCall{write: true, addr: addr, data: append([]byte(nil), w...)})
	if len(w) >= 2 {
		if err, ok := m.failOpcodes[uint16(w[0])<<8|uint16(w[1])]; ok {
			return err
		}
	}
	return m.writeErr
}

func (m *mockBus) Read(addr uint16, n int) ([]byte, error) {
	m.calls = append(m.calls, busCall{addr: addr, n: n})
	if m.readErr != nil {
		return nil, m.readErr
	}
	if len(m.responses) == 0 {
		return nil, errors.New("no response queued")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

// respond queues a reply built from data bytes
func (m *mockBus) respond(data ...byte) {
	m.responses = append(m.responses, buildReply(data))
}

// respondRaw queues a reply exactly as given
func (m *mockBus) respondRaw(frame []byte) {
	m.responses = append(m.responses, frame)
}

// writes returns the written frames in order
func (m *mockBus) writes() [][]byte {
	var frames [][]byte
	for _, c := range m.calls {
		if c.write {
			frames = append(frames, c.data)
		}
	}
	return frames
}

// opcodes returns the opcode of every written frame in order
func (m *mockBus) opcodes() []uint16 {
	var ops []uint16
	for _, w := range m.writes() {
		ops = append(ops, uint16(w[0])<<8|uint16(w[1]))
	}
	return ops
}

// recordingClock records requested delays without sleeping
type recordingClock struct {
	sleeps []time.Duration
}

func (c *recordingClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
}

func (c *recordingClock) total() time.Duration {
	var t time.Duration
	for _, d := range c.sleeps {
		t += d
	}
	return t
}

// ============================================================
// Helpers
// ============================================================

// buildReply frames data bytes the way the sensor sends them
func buildReply(data []byte) []byte {
	frame := make([]byte, 0, len(data)/2*3)
	for i := 0; i+1 < len(data); i += 2 {
		frame = append(frame, data[i], data[i+1], CalculateCRC(data[i:i+2]))
	}
	return frame
}

// wordBytes converts words to big-endian bytes
func wordBytes(words ...uint16) []byte {
	b := make([]byte, 0, len(words)*2)
	for _, w := range words {
		b = append(b, byte(w>>8), byte(w))
	}
	return b
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.DebugLevel)
	return l
}

func newTestDevice(v Variant) (*Device, *mockBus, *recordingClock) {
	bus := newMockBus()
	clock := &recordingClock{}
	d := New(bus, WithVariant(v), WithClock(clock), WithLogger(quietLogger()))
	return d, bus, clock
}

// newRunningDevice returns a device whose measurement is already running
// with the start transaction cleared from the bus log.
func newRunningDevice(v Variant) (*Device, *mockBus, *recordingClock) {
	d, bus, clock := newTestDevice(v)
	if err := d.Start(); err != nil {
		panic(err)
	}
	bus.calls = nil
	clock.sleeps = nil
	return d, bus, clock
}

func opcode(v Variant, c Command) uint16 {
	op, _ := Resolve(v, c)
	return op
}
