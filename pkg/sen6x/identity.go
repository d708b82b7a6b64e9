// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import (
	"strings"
)

// Status register reply lengths
const (
	statusLengthSEN60 = 2
	statusLength      = 4
)

// ProductName reads the product name, e.g. "SEN66". The SEN60 has no
// product name command and returns UnknownCommand.
func (d *Device) ProductName() (string, error) {
	return d.identity(ReadProductName)
}

// SerialNumber reads the module serial number
func (d *Device) SerialNumber() (string, error) {
	return d.identity(ReadSerialNumber)
}

func (d *Device) identity(c Command) (string, error) {
	data, err := d.readFrom(c, c, maxIdentityLength, true)
	if err != nil {
		return "", err
	}
	return trimZero(data), nil
}

// Version reads the firmware, hardware and protocol version and caches the
// firmware level for FirmwareAtLeast.
func (d *Device) Version() (Version, error) {
	data, err := d.read(ReadVersion, versionLength)
	if err != nil {
		return Version{}, err
	}

	v := Version{
		FirmwareMajor: data[0],
		FirmwareMinor: data[1],
		FirmwareDebug: data[2] != 0,
		HardwareMajor: data[3],
		HardwareMinor: data[4],
		ProtocolMajor: data[5],
		ProtocolMinor: data[6],
		LibraryMajor:  LibraryMajor,
		LibraryMinor:  LibraryMinor,
	}
	d.firmwareMajor = v.FirmwareMajor
	d.firmwareMinor = v.FirmwareMinor
	return v, nil
}

// FirmwareAtLeast reports whether the module firmware is at least major.minor.
// The version is read once if it is not cached yet.
func (d *Device) FirmwareAtLeast(major, minor uint8) (bool, error) {
	if d.firmwareMajor == 0 {
		if _, err := d.Version(); err != nil {
			return false, err
		}
	}
	if d.firmwareMajor != major {
		return d.firmwareMajor > major, nil
	}
	return d.firmwareMinor >= minor, nil
}

// Status reads and clears the device status register. A non-zero status is
// returned together with an OutOfRange error. The SEN60 has no clearing
// variant of the command, so its register is only read.
func (d *Device) Status() (Status, error) {
	c := ReadAndClearDeviceStatus
	if d.variant == SEN60 {
		c = ReadDeviceStatus
	}
	return d.status(c)
}

// PeekStatus reads the device status register without clearing it
func (d *Device) PeekStatus() (Status, error) {
	return d.status(ReadDeviceStatus)
}

func (d *Device) status(c Command) (Status, error) {
	if _, err := d.resolve(c); err != nil {
		return StatusOK, err
	}

	ok, err := d.FirmwareAtLeast(statusFirmwareMajor, statusFirmwareMinor)
	if err != nil {
		return StatusOK, err
	}
	if !ok {
		return StatusOK, errorf(CodeFirmwareTooOld, c.String(), "firmware %d.%d, need %d.%d",
			d.firmwareMajor, d.firmwareMinor, statusFirmwareMajor, statusFirmwareMinor)
	}

	length := statusLength
	if d.variant == SEN60 {
		length = statusLengthSEN60
	}
	data, err := d.read(c, length)
	if err != nil {
		return StatusOK, err
	}

	s := decodeStatus(d.variant, data)
	if s != StatusOK {
		return s, errorf(CodeOutOfRange, c.String(), "device status %s", s)
	}
	return s, nil
}

func decodeStatus(variant Variant, data []byte) Status {
	var s Status
	if variant == SEN60 {
		if data[1]&0x02 != 0 {
			s |= StatusSpeedError
		}
		if data[1]&0x10 != 0 {
			s |= StatusFanError
		}
		return s
	}

	if data[1]&0x20 != 0 {
		s |= StatusSpeedError
	}
	if data[2]&0x02 != 0 {
		s |= StatusCO2Error2
	}
	if data[2]&0x04 != 0 {
		s |= StatusHCHOError
	}
	if data[2]&0x08 != 0 {
		s |= StatusPMError
	}
	if data[2]&0x10 != 0 {
		s |= StatusCO2Error1
	}
	if data[3]&0x80 != 0 {
		s |= StatusGasError
	}
	if data[3]&0x40 != 0 {
		s |= StatusRHTError
	}
	if data[3]&0x10 != 0 {
		s |= StatusFanError
	}
	return s
}

// namePrefixes maps the first five characters of the product name to a variant.
// The SEN63C reports itself as "SEN63" on some firmware.
var namePrefixes = map[string]Variant{
	"SEN63": SEN63C,
	"SEN65": SEN65,
	"SEN66": SEN66,
	"SEN68": SEN68,
}

// Detect identifies the connected module and selects its variant.
//
// The product name is read first. If that fails the module is assumed to be
// a SEN60, which has no name command, and its serial number is read instead.
// A missing module and an unrecognized name both report false and leave the
// selected variant unchanged.
func (d *Device) Detect() bool {
	d.detected = false
	prev := d.variant

	// All variants except the SEN60 share the product name opcode and address
	if d.variant == SEN60 {
		d.variant = DefaultVariant
	}

	name, err := d.ProductName()
	if err != nil {
		d.log.WithError(err).Debug("no product name, trying SEN60")
		d.variant = SEN60
		if _, serr := d.SerialNumber(); serr != nil {
			d.log.WithError(serr).Debug("no SEN6x module detected")
			d.variant = prev
			return false
		}
		d.detected = true
		return true
	}

	if len(name) >= 5 {
		if v, ok := namePrefixes[strings.ToUpper(name[:5])]; ok {
			d.variant = v
			d.detected = true
			return true
		}
	}
	d.log.WithField("name", name).Debug("unrecognized product name")
	d.variant = prev
	return false
}
