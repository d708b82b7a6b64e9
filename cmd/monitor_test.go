// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

// ============================================================
// Uptime Formatting Tests
// ============================================================

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		ms   uint64
		want string
	}{
		{0, "0 seconds"},
		{999, "0 seconds"},
		{1000, "1 second"},
		{59000, "59 seconds"},
		{60000, "1 minute"},
		{61000, "1 minute and 1 second"},
		{3600000, "1 hour"},
		{3661000, "1 hour, 1 minute, and 1 second"},
		{90061000, "1 day, 1 hour, 1 minute, and 1 second"},
		{172800000, "2 days"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatUptime(tt.ms); got != tt.want {
				t.Errorf("formatUptime(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

// ============================================================
// Model Update Tests
// ============================================================

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func TestModel_Reading(t *testing.T) {
	m := initialModel("Serial: test", sen6x.SEN66, "S1", false)

	v := sen6x.Values{Variant: sen6x.SEN66, MassPM2p5: 4, Humidity: 40, Temperature: 21, CO2: 500}
	m = update(t, m, readingMsg{values: v})

	if m.stats.TotalReadings != 1 || m.stats.ValidReadings != 1 {
		t.Errorf("unexpected stats %+v", m.stats)
	}
	if m.last == nil || m.last.CO2 != 500 {
		t.Error("last reading not kept")
	}
	if len(m.errorLog) != 0 {
		t.Errorf("valid reading should not be logged without --show-all, got %d entries", len(m.errorLog))
	}

	m.showAll = true
	m = update(t, m, readingMsg{values: v})
	if len(m.errorLog) != 1 || m.errorLog[0].isError {
		t.Errorf("expected one info entry with --show-all, got %+v", m.errorLog)
	}
}

func TestModel_ReadingErrors(t *testing.T) {
	m := initialModel("Serial: test", sen6x.SEN66, "S1", false)

	m = update(t, m, readingMsg{readErr: sen6x.ErrTimeout})
	if m.stats.TimeoutErrors != 1 {
		t.Errorf("expected a timeout error, got %+v", m.stats)
	}
	if len(m.errorLog) != 1 || !m.errorLog[0].isError {
		t.Fatalf("expected an error entry, got %+v", m.errorLog)
	}

	v := sen6x.Values{Variant: sen6x.SEN66, Humidity: 130}
	m = update(t, m, readingMsg{values: v, validationErrors: sen6x.ValidateValues(v)})
	if m.stats.AnomalousValues != 1 {
		t.Errorf("expected an anomalous reading, got %+v", m.stats)
	}
}

func TestModel_LogCapped(t *testing.T) {
	m := initialModel("Serial: test", sen6x.SEN66, "S1", false)

	for i := 0; i < 150; i++ {
		m = update(t, m, readingMsg{readErr: fmt.Errorf("failure %d", i)})
	}

	if len(m.errorLog) != 100 {
		t.Fatalf("expected 100 entries, got %d", len(m.errorLog))
	}
	if !strings.Contains(m.errorLog[0].message, "failure 50") {
		t.Errorf("oldest entries should be dropped, first is %q", m.errorLog[0].message)
	}
}

func TestModel_StatusLoggedOnChange(t *testing.T) {
	m := initialModel("Serial: test", sen6x.SEN66, "S1", false)

	m = update(t, m, statusMsg{status: sen6x.StatusOK})
	m = update(t, m, statusMsg{status: sen6x.StatusOK})
	if len(m.errorLog) != 1 {
		t.Errorf("repeated status should be logged once, got %d", len(m.errorLog))
	}

	m = update(t, m, statusMsg{status: sen6x.StatusFanError})
	if len(m.errorLog) != 2 || !m.errorLog[1].isError {
		t.Errorf("status change should be logged as an error, got %+v", m.errorLog)
	}
}

func TestModel_ResetAndConnectionLost(t *testing.T) {
	m := initialModel("Serial: test", sen6x.SEN66, "S1", false)
	m = update(t, m, readingMsg{readErr: sen6x.ErrProtocol})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if m.stats.TotalReadings != 0 {
		t.Errorf("expected stats reset, got %d readings", m.stats.TotalReadings)
	}

	m = update(t, m, connectionLostMsg{err: errors.New("eof")})
	if !m.connLost {
		t.Error("expected connection lost flag")
	}
	if !strings.Contains(m.View(), "SEN6X") {
		t.Error("view should render the title")
	}
}
