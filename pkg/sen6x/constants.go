// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sen6x is a Go driver for the Sensirion SEN6x family of environmental
// sensor modules (SEN60, SEN63C, SEN65, SEN66, SEN68).
//
// All five modules share one I2C command set with per-variant gaps. This package
// provides the opcode registry, the CRC-8 word framing used on the wire, and a
// Device that sequences measurement start/stop around configuration commands.
package sen6x

import (
	"fmt"
	"strings"
	"time"
)

// I2C addresses
const (
	AddressSEN60 = 0x6C
	AddressSEN6x = 0x6B
)

// CRC-8 configuration
const (
	crcPolynomial = 0x31
	crcInitial    = 0xFF
)

// Library version reported alongside the sensor version
const (
	LibraryMajor = 1
	LibraryMinor = 3
)

// Read lengths (data bytes, CRC excluded)
const (
	versionLength     = 8
	dataReadyLength   = 2
	wordLength        = 2
	tuningLength      = 12
	VOCStateLength    = 8
	maxIdentityLength = 32
)

// Settle delays
const (
	startDelay      = 1000 * time.Millisecond
	stopDelay       = 1000 * time.Millisecond
	resetDelay      = 1000 * time.Millisecond
	cleanStopDelay  = 500 * time.Millisecond
	frcDelay        = 1000 * time.Millisecond
	writeDelay      = 20 * time.Millisecond
	defaultReadWait = 100 * time.Millisecond
)

// Parameter limits
const (
	MinAmbientPressure = 700
	MaxAmbientPressure = 1200
	MaxAltitude        = 3000
	MaxTemperatureSlot = 4
)

// Minimum firmware for the status register
const (
	statusFirmwareMajor = 2
	statusFirmwareMinor = 0
)

// Variant identifies a module in the SEN6x family
type Variant uint8

// Variant values, in canonical table order
const (
	SEN60 Variant = iota
	SEN63C
	SEN65
	SEN66
	SEN68

	numVariants = 5
)

// DefaultVariant is used until Detect or WithVariant says otherwise
const DefaultVariant = SEN66

var variantNames = [numVariants]string{"SEN60", "SEN63C", "SEN65", "SEN66", "SEN68"}

// String returns the module name
func (v Variant) String() string {
	if v >= numVariants {
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
	return variantNames[v]
}

// Address returns the 7-bit I2C address of the variant
func (v Variant) Address() uint16 {
	if v == SEN60 {
		return AddressSEN60
	}
	return AddressSEN6x
}

// Variants returns all variants in table order
func Variants() []Variant {
	return []Variant{SEN60, SEN63C, SEN65, SEN66, SEN68}
}

// ParseVariant parses a module name such as "sen66" or "SEN63C".
// "SEN63" is accepted for the SEN63C.
func ParseVariant(s string) (Variant, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "SEN63" {
		return SEN63C, nil
	}
	for i, n := range variantNames {
		if n == name {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("unknown variant %q", s)
}

// Command is a logical command, independent of its per-variant opcode
type Command uint8

// Logical commands, in canonical table order
const (
	StartMeasurement Command = iota
	StopMeasurement
	ReadDataReady
	ReadMeasuredValues
	ReadRawValues
	ReadNumberConcentration
	TemperatureOffset
	TemperatureAccelParams
	ReadProductName
	ReadSerialNumber
	ReadVersion
	ReadDeviceStatus
	ReadAndClearDeviceStatus
	Reset
	StartFanCleaning
	ActivateSHTHeater
	VOCTuning
	VOCState
	NOxTuning
	ForceCO2Recalibration
	CO2SelfCalibration
	AmbientPressure
	Altitude

	numCommands = 23
)

var commandNames = [numCommands]string{
	"START_MEASUREMENT",
	"STOP_MEASUREMENT",
	"READ_DATA_READY",
	"READ_MEASURED_VALUES",
	"READ_RAW_VALUES",
	"READ_NUMBER_CONCENTRATION",
	"TEMPERATURE_OFFSET",
	"TEMPERATURE_ACCEL_PARAMS",
	"READ_PRODUCT_NAME",
	"READ_SERIAL_NUMBER",
	"READ_VERSION",
	"READ_DEVICE_STATUS",
	"READ_AND_CLEAR_DEVICE_STATUS",
	"RESET",
	"START_FAN_CLEANING",
	"ACTIVATE_SHT_HEATER",
	"VOC_TUNING",
	"VOC_STATE",
	"NOX_TUNING",
	"FORCE_CO2_RECALIBRATION",
	"CO2_SELF_CALIBRATION",
	"AMBIENT_PRESSURE",
	"ALTITUDE",
}

// String returns the command name
func (c Command) String() string {
	if c >= numCommands {
		return fmt.Sprintf("Command(%d)", uint8(c))
	}
	return commandNames[c]
}

// Commands returns all logical commands in table order
func Commands() []Command {
	cmds := make([]Command, numCommands)
	for i := range cmds {
		cmds[i] = Command(i)
	}
	return cmds
}

// Status is the decoded device status register
type Status uint16

// Status flags
const (
	StatusOK         Status = 0x0000
	StatusSpeedError Status = 0x0001
	StatusFanError   Status = 0x0004
	StatusGasError   Status = 0x0008
	StatusRHTError   Status = 0x0010
	StatusCO2Error2  Status = 0x0020
	StatusCO2Error1  Status = 0x0040
	StatusHCHOError  Status = 0x0080
	StatusPMError    Status = 0x0100
)

var statusNames = []struct {
	flag Status
	name string
}{
	{StatusSpeedError, "SPEED"},
	{StatusFanError, "FAN"},
	{StatusGasError, "GAS"},
	{StatusRHTError, "RHT"},
	{StatusCO2Error2, "CO2_2"},
	{StatusCO2Error1, "CO2_1"},
	{StatusHCHOError, "HCHO"},
	{StatusPMError, "PM"},
}

// Has reports whether all bits in flag are set
func (s Status) Has(flag Status) bool {
	return s&flag == flag
}

// Flags returns the names of the set flags
func (s Status) Flags() []string {
	var names []string
	for _, f := range statusNames {
		if s.Has(f.flag) {
			names = append(names, f.name)
		}
	}
	return names
}

// StatusFlagNames lists every status flag name
func StatusFlagNames() []string {
	names := make([]string, len(statusNames))
	for i, f := range statusNames {
		names[i] = f.name
	}
	return names
}

// String returns "OK" or the set flags joined by "|"
func (s Status) String() string {
	if s == StatusOK {
		return "OK"
	}
	return strings.Join(s.Flags(), "|")
}
