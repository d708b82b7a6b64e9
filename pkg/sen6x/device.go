// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Bus is the I2C transport used by a Device.
//
// Read must return the bytes the target sent for a request of n bytes.
// A result of any other length is treated as a protocol error.
type Bus interface {
	Write(addr uint16, w []byte) error
	Read(addr uint16, n int) ([]byte, error)
}

// Clock provides the settle delays the sensor requires between commands
type Clock interface {
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Device is a session with one SEN6x module.
//
// A Device is not safe for concurrent use. Callers sharing a bus between
// goroutines must serialize access themselves.
type Device struct {
	bus       Bus
	clock     Clock
	log       logrus.FieldLogger
	readDelay time.Duration

	variant        Variant
	detected       bool
	running        bool
	pendingRestart bool
	firmwareMajor  uint8
	firmwareMinor  uint8
}

// Option configures a Device
type Option func(*Device)

// WithVariant selects the module variant instead of DefaultVariant
func WithVariant(v Variant) Option {
	return func(d *Device) { d.variant = v }
}

// WithClock replaces the clock used for settle delays
func WithClock(c Clock) Option {
	return func(d *Device) { d.clock = c }
}

// WithLogger sets the logger used for frame tracing (debug level)
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Device) { d.log = l }
}

// WithReadDelay sets the wait between writing a read command and reading the reply
func WithReadDelay(delay time.Duration) Option {
	return func(d *Device) { d.readDelay = delay }
}

// New creates a Device on bus. The session starts idle.
func New(bus Bus, opts ...Option) *Device {
	d := &Device{
		bus:       bus,
		clock:     systemClock{},
		log:       logrus.StandardLogger(),
		readDelay: defaultReadWait,
		variant:   DefaultVariant,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Variant returns the active variant
func (d *Device) Variant() Variant {
	return d.variant
}

// SetVariant selects a variant explicitly and clears the detected flag
func (d *Device) SetVariant(v Variant) {
	d.variant = v
	d.detected = false
}

// Detected reports whether the variant was confirmed by Detect
func (d *Device) Detected() bool {
	return d.detected
}

// Running reports whether a measurement is in progress
func (d *Device) Running() bool {
	return d.running
}

// Address returns the I2C address for the active variant
func (d *Device) Address() uint16 {
	return d.variant.Address()
}

// resolve looks up a command, failing with UnknownCommand before any I/O
func (d *Device) resolve(c Command) (uint16, error) {
	op, ok := Resolve(d.variant, c)
	if !ok {
		return Unsupported, errorf(CodeUnknownCommand, c.String(), "not supported on %s", d.variant)
	}
	return op, nil
}

// send writes a complete frame to the device
func (d *Device) send(c Command, frame []byte) error {
	addr := d.Address()
	d.log.WithFields(logrus.Fields{
		"addr":    addr,
		"command": c.String(),
	}).Debugf("I2C send % X", frame)

	if err := d.bus.Write(addr, frame); err != nil {
		return busError(c.String(), err)
	}
	return nil
}

// receive reads and decodes count data bytes
func (d *Device) receive(c Command, count int, zeroTerminated bool) ([]byte, error) {
	addr := d.Address()
	frame, err := d.bus.Read(addr, ExpectedFrameLength(count))
	if err != nil {
		return nil, busError(c.String(), err)
	}
	d.log.WithFields(logrus.Fields{
		"addr":    addr,
		"command": c.String(),
		"length":  len(frame),
	}).Debugf("I2C received % X", frame)

	data, err := DecodeFrame(frame, count, zeroTerminated)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Op = c.String()
		}
		return nil, err
	}
	return data, nil
}

// command sends a bare opcode
func (d *Device) command(c Command) error {
	op, err := d.resolve(c)
	if err != nil {
		return err
	}
	return d.send(c, EncodeFrame(op))
}

// write sends an opcode with parameter words and waits for execution
func (d *Device) write(c Command, words ...uint16) error {
	op, err := d.resolve(c)
	if err != nil {
		return err
	}
	if err := d.send(c, EncodeFrame(op, words...)); err != nil {
		return err
	}
	d.clock.Sleep(writeDelay)
	return nil
}

// read sends an opcode, waits for execution, then reads count data bytes
func (d *Device) read(c Command, count int) ([]byte, error) {
	return d.readFrom(c, c, count, false)
}

// readFrom issues the opcode of cmd and decodes the reply as c.
// It exists for SEN60 where number concentration shares the measured values opcode.
func (d *Device) readFrom(c, cmd Command, count int, zeroTerminated bool) ([]byte, error) {
	op, err := d.resolve(cmd)
	if err != nil {
		return nil, err
	}
	if err := d.send(c, EncodeFrame(op)); err != nil {
		return nil, err
	}
	d.clock.Sleep(d.readDelay)
	return d.receive(c, count, zeroTerminated)
}
