// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

// Number concentration reply layout
const (
	concentrationLength      = 10
	concentrationOffset      = 0
	concentrationLengthSEN60 = 18
	concentrationOffsetSEN60 = 8
)

// DataReady reports whether a new measurement can be read.
// A measurement is started first if needed.
func (d *Device) DataReady() (bool, error) {
	if err := d.ensureStarted(ReadDataReady); err != nil {
		return false, err
	}
	data, err := d.read(ReadDataReady, dataReadyLength)
	if err != nil {
		return false, err
	}
	return data[1] == 1, nil
}

// Values reads the measured values. A measurement is started first if needed.
func (d *Device) Values() (Values, error) {
	v := Values{Variant: d.variant}

	if _, err := d.resolve(ReadMeasuredValues); err != nil {
		return v, err
	}
	if err := d.ensureStarted(ReadMeasuredValues); err != nil {
		return v, err
	}

	data, err := d.read(ReadMeasuredValues, MeasuredLength(d.variant))
	if err != nil {
		return v, err
	}
	return decodeValues(d.variant, data), nil
}

// decodeValues scales a measured values reply. data must be MeasuredLength(variant) bytes.
func decodeValues(variant Variant, data []byte) Values {
	v := Values{Variant: variant}

	v.MassPM1 = float64(be16(data, 0)) / 10
	v.MassPM2p5 = float64(be16(data, 2)) / 10
	v.MassPM4 = float64(be16(data, 4)) / 10
	v.MassPM10 = float64(be16(data, 6)) / 10

	if variant == SEN60 {
		c := decodeConcentration(data, 8)
		v.NumberPM0p5 = c.PM0p5
		v.NumberPM1 = c.PM1
		v.NumberPM2p5 = c.PM2p5
		v.NumberPM4 = c.PM4
		v.NumberPM10 = c.PM10
		return v
	}

	v.Humidity = float64(be16s(data, 8)) / 100
	v.Temperature = float64(be16s(data, 10)) / 200

	switch variant {
	case SEN63C:
		v.CO2 = be16(data, 12)
	case SEN65:
		v.VOC = float64(be16s(data, 12)) / 10
		v.NOx = float64(be16s(data, 14)) / 10
	case SEN66:
		v.VOC = float64(be16s(data, 12)) / 10
		v.NOx = float64(be16s(data, 14)) / 10
		v.CO2 = be16(data, 16)
	case SEN68:
		v.VOC = float64(be16s(data, 12)) / 10
		v.NOx = float64(be16s(data, 14)) / 10
		v.HCHO = float64(be16(data, 16)) / 10
	}
	return v
}

// RawValues reads the raw humidity, temperature and gas ticks.
// A measurement is started first if needed.
func (d *Device) RawValues() (RawValues, error) {
	r := RawValues{Variant: d.variant}

	if _, err := d.resolve(ReadRawValues); err != nil {
		return r, err
	}
	if err := d.ensureStarted(ReadRawValues); err != nil {
		return r, err
	}

	data, err := d.read(ReadRawValues, RawLength(d.variant))
	if err != nil {
		return r, err
	}
	return decodeRawValues(d.variant, data), nil
}

func decodeRawValues(variant Variant, data []byte) RawValues {
	r := RawValues{Variant: variant}
	r.Humidity = float64(be16s(data, 0)) / 100
	r.Temperature = float64(be16s(data, 2)) / 200
	if variant == SEN63C {
		return r
	}
	r.VOC = be16(data, 4)
	r.NOx = be16(data, 6)
	if variant == SEN66 {
		r.CO2 = be16(data, 8)
	}
	return r
}

// Concentration reads the particle number concentration.
// On the SEN60 it is taken from the measured values reply.
func (d *Device) Concentration() (Concentration, error) {
	cmd, length, offset := ReadNumberConcentration, concentrationLength, concentrationOffset
	if d.variant == SEN60 {
		cmd, length, offset = ReadMeasuredValues, concentrationLengthSEN60, concentrationOffsetSEN60
	}

	if _, err := d.resolve(cmd); err != nil {
		return Concentration{}, err
	}
	if err := d.ensureStarted(ReadNumberConcentration); err != nil {
		return Concentration{}, err
	}

	data, err := d.readFrom(ReadNumberConcentration, cmd, length, false)
	if err != nil {
		return Concentration{}, err
	}
	return decodeConcentration(data, offset), nil
}

func decodeConcentration(data []byte, offset int) Concentration {
	return Concentration{
		PM0p5: float64(be16(data, offset)) / 10,
		PM1:   float64(be16(data, offset+2)) / 10,
		PM2p5: float64(be16(data, offset+4)) / 10,
		PM4:   float64(be16(data, offset+6)) / 10,
		PM10:  float64(be16(data, offset+8)) / 10,
	}
}
