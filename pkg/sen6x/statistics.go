// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sen6x

import (
	"fmt"
	"time"
)

// Statistics tracks reading outcomes and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalReadings    uint64
	ValidReadings    uint64
	ProtocolErrors   uint64
	DataLengthErrors uint64
	TimeoutErrors    uint64
	StateErrors      uint64
	OtherErrors      uint64
	AnomalousValues  uint64
	ByCode           map[Code]uint64

	// Rates (calculated)
	ReadingRate float64 // readings/sec
	ErrorRate   float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		ByCode:         make(map[Code]uint64),
	}
}

// Update records the outcome of one reading
func (s *Statistics) Update(readErr error, validationErrors []ValidationError) {
	s.TotalReadings++
	s.LastUpdateTime = time.Now()

	if readErr != nil {
		code := CodeOf(readErr)
		s.ByCode[code]++
		switch code {
		case CodeProtocol:
			s.ProtocolErrors++
		case CodeDataLength:
			s.DataLengthErrors++
		case CodeTimeout:
			s.TimeoutErrors++
		case CodeCommandNotAllowedInState:
			s.StateErrors++
		default:
			s.OtherErrors++
		}
		return
	}

	if len(validationErrors) > 0 {
		s.AnomalousValues++
		return
	}
	s.ValidReadings++
}

// Errors returns the total number of failed readings
func (s *Statistics) Errors() uint64 {
	return s.ProtocolErrors + s.DataLengthErrors + s.TimeoutErrors + s.StateErrors + s.OtherErrors
}

// CalculateRates calculates reading and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ReadingRate = float64(s.TotalReadings) / elapsed
		s.ErrorRate = float64(s.Errors()+s.AnomalousValues) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalReadings == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalReadings)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Readings:  %8d\n", s.TotalReadings)
	result += fmt.Sprintf("Valid Readings:  %8d (%.1f%%)\n", s.ValidReadings, percent(s.ValidReadings))

	if s.ProtocolErrors > 0 {
		result += fmt.Sprintf("Protocol Errors: %8d (%.1f%%)\n", s.ProtocolErrors, percent(s.ProtocolErrors))
	}
	if s.DataLengthErrors > 0 {
		result += fmt.Sprintf("Length Errors:   %8d (%.1f%%)\n", s.DataLengthErrors, percent(s.DataLengthErrors))
	}
	if s.TimeoutErrors > 0 {
		result += fmt.Sprintf("Timeouts:        %8d (%.1f%%)\n", s.TimeoutErrors, percent(s.TimeoutErrors))
	}
	if s.StateErrors > 0 {
		result += fmt.Sprintf("State Errors:    %8d (%.1f%%)\n", s.StateErrors, percent(s.StateErrors))
	}
	if s.OtherErrors > 0 {
		result += fmt.Sprintf("Other Errors:    %8d (%.1f%%)\n", s.OtherErrors, percent(s.OtherErrors))
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous:       %8d (%.1f%%)\n", s.AnomalousValues, percent(s.AnomalousValues))
	}

	result += fmt.Sprintf("Reading Rate:    %8.2f readings/sec\n", s.ReadingRate)
	result += fmt.Sprintf("Error Rate:      %8.2f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
