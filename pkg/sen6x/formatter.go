// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import (
	"fmt"
	"strings"
)

// FormatValues formats a measured values reading on one line.
// Only the fields the reading's variant provides are included.
func FormatValues(v Values) string {
	parts := []string{
		fmt.Sprintf("PM1=%.1f", v.MassPM1),
		fmt.Sprintf("PM2.5=%.1f", v.MassPM2p5),
		fmt.Sprintf("PM4=%.1f", v.MassPM4),
		fmt.Sprintf("PM10=%.1f µg/m³", v.MassPM10),
	}

	if v.Has(FieldNumberPM0p5) {
		c := Concentration{PM0p5: v.NumberPM0p5, PM1: v.NumberPM1, PM2p5: v.NumberPM2p5, PM4: v.NumberPM4, PM10: v.NumberPM10}
		parts = append(parts, FormatConcentration(c))
	}
	if v.Has(FieldHumidity) {
		parts = append(parts, fmt.Sprintf("RH=%.2f%%", v.Humidity))
	}
	if v.Has(FieldTemperature) {
		parts = append(parts, fmt.Sprintf("T=%.2f°C", v.Temperature))
	}
	if v.Has(FieldVOC) {
		parts = append(parts, fmt.Sprintf("VOC=%.1f", v.VOC))
	}
	if v.Has(FieldNOx) {
		parts = append(parts, fmt.Sprintf("NOx=%.1f", v.NOx))
	}
	if v.Has(FieldCO2) {
		parts = append(parts, fmt.Sprintf("CO2=%d ppm", v.CO2))
	}
	if v.Has(FieldHCHO) {
		parts = append(parts, fmt.Sprintf("HCHO=%.1f ppb", v.HCHO))
	}

	return fmt.Sprintf("[%s] %s", v.Variant, strings.Join(parts, " "))
}

// FormatRawValues formats a raw values reading on one line
func FormatRawValues(r RawValues) string {
	result := fmt.Sprintf("[%s] RH=%.2f%% T=%.2f°C", r.Variant, r.Humidity, r.Temperature)
	if r.Variant == SEN63C {
		return result
	}
	result += fmt.Sprintf(" VOC=%d NOx=%d", r.VOC, r.NOx)
	if r.Variant == SEN66 {
		result += fmt.Sprintf(" CO2=%d ppm", r.CO2)
	}
	return result
}

// FormatConcentration formats a number concentration reading
func FormatConcentration(c Concentration) string {
	return fmt.Sprintf("N0.5=%.1f N1=%.1f N2.5=%.1f N4=%.1f N10=%.1f #/cm³",
		c.PM0p5, c.PM1, c.PM2p5, c.PM4, c.PM10)
}

// FormatVersion formats a version record
func FormatVersion(v Version) string {
	debug := ""
	if v.FirmwareDebug {
		debug = " (debug)"
	}
	return fmt.Sprintf("firmware %d.%d%s, hardware %d.%d, protocol %d.%d, library %d.%d",
		v.FirmwareMajor, v.FirmwareMinor, debug,
		v.HardwareMajor, v.HardwareMinor,
		v.ProtocolMajor, v.ProtocolMinor,
		v.LibraryMajor, v.LibraryMinor)
}

// FormatTuning formats gas index algorithm parameters
func FormatTuning(t Tuning) string {
	return fmt.Sprintf("offset=%d learn_offset=%dh learn_gain=%dh gate_max=%dmin std_initial=%d gain=%d",
		t.IndexOffset, t.LearnTimeOffsetHours, t.LearnTimeGainHours,
		t.GateMaxDurationMin, t.StdInitial, t.GainFactor)
}

// FormatStatus formats a status register value
func FormatStatus(s Status) string {
	if s == StatusOK {
		return "OK"
	}
	return "errors: " + strings.Join(s.Flags(), ", ")
}
