// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package i2cbus connects a sen6x.Device to a local I2C bus, either a Linux
// i2c-dev adapter through periph.io or any tinygo.org/x/drivers I2C
// implementation.
package i2cbus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// Bus is a host I2C bus opened through periph.io
type Bus struct {
	name string
	bus  i2c.BusCloser
}

// Open initializes the host drivers and opens the named bus.
// An empty name opens the first bus found, e.g. "/dev/i2c-1" or "1".
func Open(name string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", name, err)
	}
	return &Bus{name: name, bus: b}, nil
}

// Write sends w to the device at addr
func (b *Bus) Write(addr uint16, w []byte) error {
	dev := i2c.Dev{Bus: b.bus, Addr: addr}
	return dev.Tx(w, nil)
}

// Read reads n bytes from the device at addr
func (b *Bus) Read(addr uint16, n int) ([]byte, error) {
	r := make([]byte, n)
	dev := i2c.Dev{Bus: b.bus, Addr: addr}
	if err := dev.Tx(nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

// String returns the bus name
func (b *Bus) String() string {
	return b.bus.String()
}

// Close releases the bus
func (b *Bus) Close() error {
	return b.bus.Close()
}

// TxBus adapts a tinygo drivers.I2C to the sen6x bus interface
type TxBus struct {
	bus drivers.I2C
}

// FromDrivers wraps a tinygo I2C implementation
func FromDrivers(bus drivers.I2C) *TxBus {
	return &TxBus{bus: bus}
}

// Write sends w to the device at addr
func (t *TxBus) Write(addr uint16, w []byte) error {
	return t.bus.Tx(addr, w, nil)
}

// Read reads n bytes from the device at addr
func (t *TxBus) Read(addr uint16, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := t.bus.Tx(addr, nil, r); err != nil {
		return nil, err
	}
	return r, nil
}
