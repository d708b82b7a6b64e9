// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

// ============================================================
// Settings Table Tests
// ============================================================

func settingNames(v sen6x.Variant) map[string]bool {
	names := make(map[string]bool)
	for _, s := range settingsFor(v) {
		names[s.name] = true
	}
	return names
}

func TestSettingsFor(t *testing.T) {
	tests := []struct {
		variant  sen6x.Variant
		count    int
		has      []string
		excludes []string
	}{
		{sen6x.SEN60, 1, []string{"Fan cleaning"}, []string{"VOC tuning", "SHT heater", "Temperature offset"}},
		{sen6x.SEN63C, 6, []string{"Altitude", "CO2 self calibration"}, []string{"VOC tuning", "NOx tuning"}},
		{sen6x.SEN65, 5, []string{"VOC tuning", "NOx tuning"}, []string{"Ambient pressure", "CO2 self calibration"}},
		{sen6x.SEN66, len(allSettings), []string{"VOC tuning", "Ambient pressure"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			names := settingNames(tt.variant)
			if len(names) != tt.count {
				t.Errorf("expected %d settings, got %d: %v", tt.count, len(names), names)
			}
			for _, n := range tt.has {
				if !names[n] {
					t.Errorf("expected %q", n)
				}
			}
			for _, n := range tt.excludes {
				if names[n] {
					t.Errorf("did not expect %q", n)
				}
			}
		})
	}
}

func TestParseTuningInput(t *testing.T) {
	got, err := parseTuningInput("100 12 12 180 50 230")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := sen6x.Tuning{
		IndexOffset:          100,
		LearnTimeOffsetHours: 12,
		LearnTimeGainHours:   12,
		GateMaxDurationMin:   180,
		StdInitial:           50,
		GainFactor:           230,
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if tuningString(got) != "100 12 12 180 50 230" {
		t.Errorf("unexpected rendering %q", tuningString(got))
	}

	for _, bad := range []string{"", "1 2 3", "1 2 3 4 5 x", "1 2 3 4 5 6 7"} {
		if _, err := parseTuningInput(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseTemperatureInput(t *testing.T) {
	tests := []struct {
		in      string
		want    sen6x.TemperatureCompensation
		wantErr bool
	}{
		{"-1.5", sen6x.TemperatureCompensation{Offset: -1.5}, false},
		{"2 0.01 300 3", sen6x.TemperatureCompensation{Offset: 2, Slope: 0.01, Time: 300, Slot: 3}, false},
		{"", sen6x.TemperatureCompensation{}, true},
		{"abc", sen6x.TemperatureCompensation{}, true},
		{"1 2 3 4 5", sen6x.TemperatureCompensation{}, true},
		{"1 0 -5", sen6x.TemperatureCompensation{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTemperatureInput(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

// ============================================================
// Tune Model Tests
// ============================================================

func updateTune(t *testing.T, m tuneModel, msg tea.Msg) (tuneModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(tuneModel), cmd
}

func TestTuneModel_FocusCycle(t *testing.T) {
	m := initialTuneModel(&lockedDevice{}, "Serial: test", sen6x.SEN66)

	m, _ = updateTune(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focused != focusValueInput || !m.valueInput.Focused() {
		t.Errorf("expected value input focus, got %d", m.focused)
	}
	m, _ = updateTune(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focused != focusApplyButton || m.valueInput.Focused() {
		t.Errorf("expected button focus, got %d", m.focused)
	}
	m, _ = updateTune(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focused != focusSettingList {
		t.Errorf("expected focus to wrap to the list, got %d", m.focused)
	}
	m, _ = updateTune(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focused != focusApplyButton {
		t.Errorf("expected shift+tab to go back to the button, got %d", m.focused)
	}
}

func TestTuneModel_ApplyNeedsValue(t *testing.T) {
	m := initialTuneModel(&lockedDevice{}, "Serial: test", sen6x.SEN66)
	m.cycleFocus(1)

	m, cmd := updateTune(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.pending {
		t.Error("empty input should not start a write")
	}
	if len(m.errorLog) != 1 || !m.errorLog[0].isError {
		t.Errorf("expected an error entry, got %+v", m.errorLog)
	}

	m.valueInput.SetValue("100 12 12 180 50 230")
	m, cmd = updateTune(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.pending {
		t.Error("expected a pending write")
	}

	// A second apply while the first is running is ignored
	_, cmd = updateTune(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected no second write while pending")
	}
}

func TestTuneModel_Results(t *testing.T) {
	m := initialTuneModel(&lockedDevice{}, "Serial: test", sen6x.SEN66)

	m, _ = updateTune(t, m, settingReadMsg{name: "Altitude", value: "250"})
	if m.current["Altitude"] != "250" {
		t.Errorf("expected current altitude, got %q", m.current["Altitude"])
	}

	m.pending = true
	m, _ = updateTune(t, m, settingWrittenMsg{name: "Altitude", result: "300", readable: true})
	if m.pending || m.current["Altitude"] != "300" {
		t.Errorf("write result not applied: pending=%v current=%q", m.pending, m.current["Altitude"])
	}

	m, _ = updateTune(t, m, settingWrittenMsg{name: "Ambient pressure", err: sen6x.ErrCommandNotAllowedInState})
	last := m.errorLog[len(m.errorLog)-1]
	if !last.isError {
		t.Error("failed write should be logged as an error")
	}

	m, _ = updateTune(t, m, settingReadMsg{name: "NOx tuning", err: errors.New("boom")})
	if _, ok := m.current["NOx tuning"]; ok {
		t.Error("failed read should not set a value")
	}
}
