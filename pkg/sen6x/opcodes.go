// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

// Unsupported is the opcode stored for commands a variant does not implement.
// It is never sent on the wire.
const Unsupported uint16 = 0x0000

// opcodeTable maps [variant][command] to the wire opcode.
var opcodeTable = [numVariants][numCommands]uint16{
	SEN60: {
		0x2152, // START_MEASUREMENT
		0x3F86, // STOP_MEASUREMENT
		0xE4B8, // READ_DATA_READY
		0xEC05, // READ_MEASURED_VALUES
		0x0000, // READ_RAW_VALUES
		0x0000, // READ_NUMBER_CONCENTRATION (part of READ_MEASURED_VALUES)
		0x0000, // TEMPERATURE_OFFSET
		0x0000, // TEMPERATURE_ACCEL_PARAMS
		0x0000, // READ_PRODUCT_NAME
		0x3682, // READ_SERIAL_NUMBER
		0xD100, // READ_VERSION
		0xE00B, // READ_DEVICE_STATUS
		0x0000, // READ_AND_CLEAR_DEVICE_STATUS
		0x3F8D, // RESET
		0x3730, // START_FAN_CLEANING
		0x0000, // ACTIVATE_SHT_HEATER
		0x0000, // VOC_TUNING
		0x0000, // VOC_STATE
		0x0000, // NOX_TUNING
		0x0000, // FORCE_CO2_RECALIBRATION
		0x0000, // CO2_SELF_CALIBRATION
		0x0000, // AMBIENT_PRESSURE
		0x0000, // ALTITUDE
	},
	SEN63C: {
		0x0021, 0x0104, 0x0202, 0x0471, 0x0492, 0x0316,
		0x60B2, 0x6100, 0xD014, 0xD033, 0xD100, 0xD206,
		0xD210, 0xD304, 0x5607, 0x6765,
		0x0000, 0x0000, 0x0000, // no gas sensors
		0x6707, 0x6711, 0x6720, 0x6736,
	},
	SEN65: {
		0x0021, 0x0104, 0x0202, 0x0446, 0x0455, 0x0316,
		0x60B2, 0x6100, 0xD014, 0xD033, 0xD100, 0xD206,
		0xD210, 0xD304, 0x5607, 0x6765,
		0x60D0, 0x6181, 0x60E1,
		0x0000, 0x0000, 0x0000, 0x0000, // no CO2 sensor
	},
	SEN66: {
		0x0021, 0x0104, 0x0202, 0x0300, 0x0405, 0x0316,
		0x60B2, 0x6100, 0xD014, 0xD033, 0xD100, 0xD206,
		0xD210, 0xD304, 0x5607, 0x6765,
		0x60D0, 0x6181, 0x60E1,
		0x6707, 0x6711, 0x6720, 0x6736,
	},
	SEN68: {
		0x0021, 0x0104, 0x0202, 0x0467, 0x0455, 0x0316,
		0x60B2, 0x6100, 0xD014, 0xD033, 0xD100, 0xD206,
		0xD210, 0xD304, 0x5607, 0x6765,
		0x60D0, 0x6181, 0x60E1,
		0x0000, 0x0000, 0x0000, 0x0000, // no CO2 sensor
	},
}

// Resolve returns the wire opcode for command c on variant v.
// The second result is false when the variant does not support the command,
// including for out-of-range inputs.
func Resolve(v Variant, c Command) (uint16, bool) {
	if v >= numVariants || c >= numCommands {
		return Unsupported, false
	}
	op := opcodeTable[v][c]
	return op, op != Unsupported
}

// Supports reports whether variant v implements command c
func Supports(v Variant, c Command) bool {
	_, ok := Resolve(v, c)
	return ok
}
