// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import (
	"math"
)

// Scale factors for temperature compensation
const (
	tempOffsetScale = 200
	tempSlopeScale  = 1000
)

// FRC reply value reported when the recalibration failed
const frcFailed = 0xFFFF

// ============================================================
// Temperature
// ============================================================

// SetTemperatureOffset writes a temperature compensation slot.
// Slots above MaxTemperatureSlot are clamped.
func (d *Device) SetTemperatureOffset(tc TemperatureCompensation) error {
	return d.write(TemperatureOffset, temperatureWords(tc)...)
}

func temperatureWords(tc TemperatureCompensation) []uint16 {
	slot := tc.Slot
	if slot > MaxTemperatureSlot {
		slot = MaxTemperatureSlot
	}
	return []uint16{
		uint16(scaleInt16(tc.Offset, tempOffsetScale)),
		uint16(scaleInt16(tc.Slope, tempSlopeScale)),
		tc.Time,
		slot,
	}
}

// scaleInt16 converts a physical value to a saturated signed wire value
func scaleInt16(v, scale float64) int16 {
	s := math.Round(v * scale)
	switch {
	case s > math.MaxInt16:
		return math.MaxInt16
	case s < math.MinInt16:
		return math.MinInt16
	}
	return int16(s)
}

// SetTemperatureAcceleration writes the RH/T acceleration parameters.
// Measurement is stopped for the write and restarted afterwards.
func (d *Device) SetTemperatureAcceleration(ta TemperatureAcceleration) error {
	return d.guarded(TemperatureAccelParams, nil, func() error {
		return d.write(TemperatureAccelParams, ta.K, ta.P, ta.T1, ta.T2)
	})
}

// ============================================================
// Gas index algorithms
// ============================================================

// VOCTuning reads the VOC algorithm tuning parameters
func (d *Device) VOCTuning() (Tuning, error) {
	return d.readTuning(VOCTuning)
}

// NOxTuning reads the NOx algorithm tuning parameters
func (d *Device) NOxTuning() (Tuning, error) {
	return d.readTuning(NOxTuning)
}

func (d *Device) readTuning(c Command) (Tuning, error) {
	var t Tuning
	err := d.guarded(c, nil, func() error {
		data, err := d.read(c, tuningLength)
		if err != nil {
			return err
		}
		t = tuningFromBytes(data)
		return nil
	})
	return t, err
}

// SetVOCTuning writes the VOC algorithm tuning parameters.
// Out of range values are replaced by their defaults.
func (d *Device) SetVOCTuning(t Tuning) error {
	t = ClampVOCTuning(t)
	return d.guarded(VOCTuning, nil, func() error {
		return d.write(VOCTuning, t.words()...)
	})
}

// SetNOxTuning writes the NOx algorithm tuning parameters.
// Out of range values are replaced by their defaults.
func (d *Device) SetNOxTuning(t Tuning) error {
	t = ClampNOxTuning(t)
	return d.guarded(NOxTuning, nil, func() error {
		return d.write(NOxTuning, t.words()...)
	})
}

func clamp(v, lo, hi, def int16) int16 {
	if v < lo || v > hi {
		return def
	}
	return v
}

// ClampVOCTuning applies the VOC algorithm limits
func ClampVOCTuning(t Tuning) Tuning {
	t.IndexOffset = clamp(t.IndexOffset, 1, 250, 100)
	t.LearnTimeOffsetHours = clamp(t.LearnTimeOffsetHours, 1, 1000, 12)
	t.LearnTimeGainHours = clamp(t.LearnTimeGainHours, 1, 1000, 12)
	t.GateMaxDurationMin = clamp(t.GateMaxDurationMin, 1, 3000, 180)
	t.StdInitial = clamp(t.StdInitial, 10, 5000, 50)
	t.GainFactor = clamp(t.GainFactor, 1, 1000, 230)
	return t
}

// ClampNOxTuning applies the NOx algorithm limits. The learning time gain and
// initial standard deviation are fixed by the firmware.
func ClampNOxTuning(t Tuning) Tuning {
	t.IndexOffset = clamp(t.IndexOffset, 1, 250, 1)
	t.LearnTimeOffsetHours = clamp(t.LearnTimeOffsetHours, 1, 1000, 12)
	t.LearnTimeGainHours = 12
	t.GateMaxDurationMin = clamp(t.GateMaxDurationMin, 1, 3000, 720)
	t.StdInitial = 50
	t.GainFactor = clamp(t.GainFactor, 1, 1000, 230)
	return t
}

// VOCState reads the VOC algorithm state. It may be read while measuring,
// typically right before power-off so it can be restored later.
func (d *Device) VOCState() ([VOCStateLength]byte, error) {
	var state [VOCStateLength]byte
	data, err := d.read(VOCState, VOCStateLength)
	if err != nil {
		return state, err
	}
	copy(state[:], data)
	return state, nil
}

// SetVOCState restores a VOC algorithm state saved with VOCState
func (d *Device) SetVOCState(state [VOCStateLength]byte) error {
	return d.guarded(VOCState, nil, func() error {
		op, err := d.resolve(VOCState)
		if err != nil {
			return err
		}
		frame, err := EncodeBytes(op, state[:])
		if err != nil {
			return err
		}
		if err := d.send(VOCState, frame); err != nil {
			return err
		}
		d.clock.Sleep(writeDelay)
		return nil
	})
}

// ============================================================
// CO2
// ============================================================

// ForceCO2Recalibration runs a forced recalibration against a reference
// concentration in ppm and returns the applied correction in ppm.
func (d *Device) ForceCO2Recalibration(ppm uint16) (int, error) {
	var correction int
	err := d.guarded(ForceCO2Recalibration, nil, func() error {
		op, err := d.resolve(ForceCO2Recalibration)
		if err != nil {
			return err
		}
		if err := d.send(ForceCO2Recalibration, EncodeFrame(op, ppm)); err != nil {
			return err
		}
		d.clock.Sleep(frcDelay)

		data, err := d.receive(ForceCO2Recalibration, wordLength, false)
		if err != nil {
			return err
		}
		raw := be16(data, 0)
		if raw == frcFailed {
			return errorf(CodeCommandNotAllowedInState, ForceCO2Recalibration.String(), "recalibration failed")
		}
		correction = int(raw) - 0x8000
		return nil
	})
	return correction, err
}

// CO2SelfCalibration reports whether automatic self-calibration is enabled
func (d *Device) CO2SelfCalibration() (bool, error) {
	var enabled bool
	err := d.guarded(CO2SelfCalibration, nil, func() error {
		data, err := d.read(CO2SelfCalibration, wordLength)
		if err != nil {
			return err
		}
		enabled = data[1] != 0
		return nil
	})
	return enabled, err
}

// SetCO2SelfCalibration enables or disables automatic self-calibration
func (d *Device) SetCO2SelfCalibration(enabled bool) error {
	var w uint16
	if enabled {
		w = 1
	}
	return d.guarded(CO2SelfCalibration, nil, func() error {
		return d.write(CO2SelfCalibration, w)
	})
}

// AmbientPressure reads the ambient pressure used for CO2 compensation (hPa)
func (d *Device) AmbientPressure() (uint16, error) {
	return d.readWord(AmbientPressure)
}

// SetAmbientPressure sets the ambient pressure used for CO2 compensation.
// Values outside 700..1200 hPa are rejected.
func (d *Device) SetAmbientPressure(hPa uint16) error {
	validate := func() error {
		if hPa < MinAmbientPressure || hPa > MaxAmbientPressure {
			return errorf(CodeInvalidParameter, AmbientPressure.String(),
				"%d hPa outside %d..%d", hPa, MinAmbientPressure, MaxAmbientPressure)
		}
		return nil
	}
	return d.guarded(AmbientPressure, validate, func() error {
		return d.write(AmbientPressure, hPa)
	})
}

// Altitude reads the sensor altitude used for CO2 compensation (m)
func (d *Device) Altitude() (uint16, error) {
	return d.readWord(Altitude)
}

// SetAltitude sets the sensor altitude. Values above 3000 m are rejected.
func (d *Device) SetAltitude(m uint16) error {
	validate := func() error {
		if m > MaxAltitude {
			return errorf(CodeInvalidParameter, Altitude.String(), "%d m above %d", m, MaxAltitude)
		}
		return nil
	}
	return d.guarded(Altitude, validate, func() error {
		return d.write(Altitude, m)
	})
}

func (d *Device) readWord(c Command) (uint16, error) {
	var v uint16
	err := d.guarded(c, nil, func() error {
		data, err := d.read(c, wordLength)
		if err != nil {
			return err
		}
		v = be16(data, 0)
		return nil
	})
	return v, err
}

// ============================================================
// Maintenance
// ============================================================

// StartFanCleaning runs the fan at full speed for about 10 s. A running
// measurement is stopped first and is not restarted.
func (d *Device) StartFanCleaning() error {
	if _, err := d.resolve(StartFanCleaning); err != nil {
		return err
	}
	if d.running {
		if err := d.Stop(); err != nil {
			return err
		}
		d.clock.Sleep(cleanStopDelay)
	}
	return d.command(StartFanCleaning)
}

// ActivateHeater turns on the SHT heater for about 1 s. Wait at least 20 s
// before measuring again so the temperature readings settle.
func (d *Device) ActivateHeater() error {
	return d.command(ActivateSHTHeater)
}
