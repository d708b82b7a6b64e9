// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import "fmt"

// Field identifies one measured quantity
type Field uint16

// Measured quantities
const (
	FieldMassPM1 Field = 1 << iota
	FieldMassPM2p5
	FieldMassPM4
	FieldMassPM10
	FieldNumberPM0p5
	FieldNumberPM1
	FieldNumberPM2p5
	FieldNumberPM4
	FieldNumberPM10
	FieldHumidity
	FieldTemperature
	FieldVOC
	FieldNOx
	FieldCO2
	FieldHCHO
)

var fieldNames = map[Field]string{
	FieldMassPM1:     "pm1_0",
	FieldMassPM2p5:   "pm2_5",
	FieldMassPM4:     "pm4_0",
	FieldMassPM10:    "pm10",
	FieldNumberPM0p5: "number_pm0_5",
	FieldNumberPM1:   "number_pm1_0",
	FieldNumberPM2p5: "number_pm2_5",
	FieldNumberPM4:   "number_pm4_0",
	FieldNumberPM10:  "number_pm10",
	FieldHumidity:    "humidity",
	FieldTemperature: "temperature",
	FieldVOC:         "voc_index",
	FieldNOx:         "nox_index",
	FieldCO2:         "co2",
	FieldHCHO:        "hcho",
}

// String returns the field's snake_case name
func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field_0x%04X", uint16(f))
}

// AllFields lists every measured quantity in report order
func AllFields() []Field {
	fields := make([]Field, 0, len(fieldNames))
	for f := FieldMassPM1; f <= FieldHCHO; f <<= 1 {
		fields = append(fields, f)
	}
	return fields
}

const (
	fieldsMass   = FieldMassPM1 | FieldMassPM2p5 | FieldMassPM4 | FieldMassPM10
	fieldsNumber = FieldNumberPM0p5 | FieldNumberPM1 | FieldNumberPM2p5 | FieldNumberPM4 | FieldNumberPM10
	fieldsRHT    = FieldHumidity | FieldTemperature
	fieldsGas    = FieldVOC | FieldNOx
)

// Fields is a set of measured quantities
type Fields uint16

// Has reports whether f is in the set
func (s Fields) Has(f Field) bool {
	return uint16(s)&uint16(f) != 0
}

// layout describes where a variant puts its fields in the measured values reply
type layout struct {
	measuredLength int
	rawLength      int // 0 when raw values are not supported
	fields         Fields
}

var layouts = [numVariants]layout{
	SEN60:  {measuredLength: 18, rawLength: 0, fields: Fields(fieldsMass | fieldsNumber)},
	SEN63C: {measuredLength: 14, rawLength: 4, fields: Fields(fieldsMass | fieldsRHT | FieldCO2)},
	SEN65:  {measuredLength: 16, rawLength: 8, fields: Fields(fieldsMass | fieldsRHT | fieldsGas)},
	SEN66:  {measuredLength: 18, rawLength: 10, fields: Fields(fieldsMass | fieldsRHT | fieldsGas | FieldCO2)},
	SEN68:  {measuredLength: 18, rawLength: 8, fields: Fields(fieldsMass | fieldsRHT | fieldsGas | FieldHCHO)},
}

// FieldsFor returns the quantities reported by Values for variant v
func FieldsFor(v Variant) Fields {
	if v >= numVariants {
		return 0
	}
	return layouts[v].fields
}

// MeasuredLength returns the measured values read length for variant v
func MeasuredLength(v Variant) int {
	if v >= numVariants {
		return 0
	}
	return layouts[v].measuredLength
}

// RawLength returns the raw values read length for variant v (0 if unsupported)
func RawLength(v Variant) int {
	if v >= numVariants {
		return 0
	}
	return layouts[v].rawLength
}

// Values is one measured values reading. Fields the variant does not
// report are zero; use Has to tell absent from zero.
type Values struct {
	Variant Variant

	MassPM1   float64 // µg/m³
	MassPM2p5 float64
	MassPM4   float64
	MassPM10  float64

	// Number concentration, SEN60 only (#/cm³)
	NumberPM0p5 float64
	NumberPM1   float64
	NumberPM2p5 float64
	NumberPM4   float64
	NumberPM10  float64

	Humidity    float64 // %RH
	Temperature float64 // °C
	VOC         float64 // index
	NOx         float64 // index
	CO2         uint16  // ppm
	HCHO        float64 // ppb
}

// Has reports whether the reading's variant provides f
func (v Values) Has(f Field) bool {
	return FieldsFor(v.Variant).Has(f)
}

// Get returns the value of f, or 0 if the reading does not provide it
func (v Values) Get(f Field) float64 {
	if !v.Has(f) {
		return 0
	}
	switch f {
	case FieldMassPM1:
		return v.MassPM1
	case FieldMassPM2p5:
		return v.MassPM2p5
	case FieldMassPM4:
		return v.MassPM4
	case FieldMassPM10:
		return v.MassPM10
	case FieldNumberPM0p5:
		return v.NumberPM0p5
	case FieldNumberPM1:
		return v.NumberPM1
	case FieldNumberPM2p5:
		return v.NumberPM2p5
	case FieldNumberPM4:
		return v.NumberPM4
	case FieldNumberPM10:
		return v.NumberPM10
	case FieldHumidity:
		return v.Humidity
	case FieldTemperature:
		return v.Temperature
	case FieldVOC:
		return v.VOC
	case FieldNOx:
		return v.NOx
	case FieldCO2:
		return float64(v.CO2)
	case FieldHCHO:
		return v.HCHO
	}
	return 0
}

// Map returns the provided fields keyed by name
func (v Values) Map() map[string]float64 {
	m := make(map[string]float64)
	for _, f := range AllFields() {
		if v.Has(f) {
			m[f.String()] = v.Get(f)
		}
	}
	return m
}

// RawValues is one raw values reading
type RawValues struct {
	Variant Variant

	Humidity    float64 // %RH
	Temperature float64 // °C
	VOC         uint16  // raw ticks
	NOx         uint16  // raw ticks
	CO2         uint16  // ppm, SEN66 only
}

// Concentration is one particle number concentration reading (#/cm³)
type Concentration struct {
	PM0p5 float64
	PM1   float64
	PM2p5 float64
	PM4   float64
	PM10  float64
}

// Version is the module and library version
type Version struct {
	FirmwareMajor uint8
	FirmwareMinor uint8
	FirmwareDebug bool
	HardwareMajor uint8
	HardwareMinor uint8
	ProtocolMajor uint8
	ProtocolMinor uint8
	LibraryMajor  uint8
	LibraryMinor  uint8
}

// Tuning holds the VOC or NOx gas index algorithm parameters
type Tuning struct {
	IndexOffset          int16
	LearnTimeOffsetHours int16
	LearnTimeGainHours   int16
	GateMaxDurationMin   int16
	StdInitial           int16
	GainFactor           int16
}

func (t Tuning) words() []uint16 {
	return []uint16{
		uint16(t.IndexOffset),
		uint16(t.LearnTimeOffsetHours),
		uint16(t.LearnTimeGainHours),
		uint16(t.GateMaxDurationMin),
		uint16(t.StdInitial),
		uint16(t.GainFactor),
	}
}

func tuningFromBytes(data []byte) Tuning {
	return Tuning{
		IndexOffset:          be16s(data, 0),
		LearnTimeOffsetHours: be16s(data, 2),
		LearnTimeGainHours:   be16s(data, 4),
		GateMaxDurationMin:   be16s(data, 6),
		StdInitial:           be16s(data, 8),
		GainFactor:           be16s(data, 10),
	}
}

// TemperatureCompensation configures one temperature offset slot
type TemperatureCompensation struct {
	Offset float64 // °C
	Slope  float64 // normalized offset slope
	Time   uint16  // time constant, seconds
	Slot   uint16  // 0..4
}

// TemperatureAcceleration holds the RH/T engine acceleration parameters
type TemperatureAcceleration struct {
	K  uint16
	P  uint16
	T1 uint16
	T2 uint16
}
