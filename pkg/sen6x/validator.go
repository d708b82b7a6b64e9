// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import "fmt"

// AnomalyType represents different kinds of implausible readings
type AnomalyType int

const (
	AnomalyHumidity AnomalyType = iota
	AnomalyTemperature
	AnomalyPMOrder
	AnomalyCO2
	AnomalyGasIndex
	AnomalyHCHO
)

// Plausible sensor ranges
const (
	minHumidity    = 0.0
	maxHumidity    = 100.0
	minTemperature = -40.0
	maxTemperature = 125.0
	maxCO2         = 40000
	maxGasIndex    = 500.0
	maxHCHO        = 1000.0
)

// ValidationError represents one implausible value in a reading
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateValues checks a reading for physically implausible values.
// Returns a slice of validation errors (empty if the reading is plausible).
func ValidateValues(v Values) []ValidationError {
	errors := []ValidationError{}

	if v.MassPM1 > v.MassPM2p5 || v.MassPM2p5 > v.MassPM4 || v.MassPM4 > v.MassPM10 {
		errors = append(errors, ValidationError{
			Type: AnomalyPMOrder,
			Message: fmt.Sprintf("PM mass not cumulative (PM1=%.1f PM2.5=%.1f PM4=%.1f PM10=%.1f)",
				v.MassPM1, v.MassPM2p5, v.MassPM4, v.MassPM10),
			Details: map[string]interface{}{"pm1": v.MassPM1, "pm2p5": v.MassPM2p5, "pm4": v.MassPM4, "pm10": v.MassPM10},
		})
	}

	if v.Has(FieldHumidity) && (v.Humidity < minHumidity || v.Humidity > maxHumidity) {
		errors = append(errors, ValidationError{
			Type:    AnomalyHumidity,
			Message: fmt.Sprintf("Humidity out of range (%.2f%%, valid: 0 to 100%%)", v.Humidity),
			Details: map[string]interface{}{"value": v.Humidity, "min": minHumidity, "max": maxHumidity},
		})
	}

	if v.Has(FieldTemperature) && (v.Temperature < minTemperature || v.Temperature > maxTemperature) {
		errors = append(errors, ValidationError{
			Type:    AnomalyTemperature,
			Message: fmt.Sprintf("Temperature out of range (%.2f°C, valid: -40 to 125°C)", v.Temperature),
			Details: map[string]interface{}{"value": v.Temperature, "min": minTemperature, "max": maxTemperature},
		})
	}

	if v.Has(FieldCO2) && v.CO2 > maxCO2 {
		errors = append(errors, ValidationError{
			Type:    AnomalyCO2,
			Message: fmt.Sprintf("CO2 out of range (%d ppm, max %d)", v.CO2, maxCO2),
			Details: map[string]interface{}{"value": v.CO2, "max": maxCO2},
		})
	}

	if v.Has(FieldVOC) && (v.VOC < 0 || v.VOC > maxGasIndex) {
		errors = append(errors, ValidationError{
			Type:    AnomalyGasIndex,
			Message: fmt.Sprintf("VOC index out of range (%.1f, valid: 0 to 500)", v.VOC),
			Details: map[string]interface{}{"field": "voc", "value": v.VOC, "max": maxGasIndex},
		})
	}

	if v.Has(FieldNOx) && (v.NOx < 0 || v.NOx > maxGasIndex) {
		errors = append(errors, ValidationError{
			Type:    AnomalyGasIndex,
			Message: fmt.Sprintf("NOx index out of range (%.1f, valid: 0 to 500)", v.NOx),
			Details: map[string]interface{}{"field": "nox", "value": v.NOx, "max": maxGasIndex},
		})
	}

	if v.Has(FieldHCHO) && v.HCHO > maxHCHO {
		errors = append(errors, ValidationError{
			Type:    AnomalyHCHO,
			Message: fmt.Sprintf("HCHO out of range (%.1f ppb, max %.0f)", v.HCHO, maxHCHO),
			Details: map[string]interface{}{"value": v.HCHO, "max": maxHCHO},
		})
	}

	return errors
}
