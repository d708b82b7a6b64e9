// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Interactive TUI for sensor settings",
	Long: `Browse and change sensor settings in an interactive terminal UI.

Only the settings the connected variant supports are listed. Selecting a
setting reads its current value; type a new value and press Enter to apply it.

Tab switches between the settings list, the value input and the Apply button.`,
	Args: cobra.NoArgs,
	RunE: runTune,
}

func init() {
	rootCmd.AddCommand(tuneCmd)
}

//////////////////////////////////////////////////////////////
// Settings
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusSettingList = iota
	focusValueInput
	focusApplyButton
)

// setting is one entry in the settings list
type setting struct {
	name        string
	help        string
	command     sen6x.Command
	placeholder string
	read        func(d *sen6x.Device) (string, error) // nil for actions
	write       func(d *sen6x.Device, in string) (string, error)
}

func (s setting) Title() string       { return s.name }
func (s setting) Description() string { return s.help }
func (s setting) FilterValue() string { return s.name }

func parseTuningInput(in string) (sen6x.Tuning, error) {
	fields := strings.Fields(in)
	if len(fields) != 6 {
		return sen6x.Tuning{}, fmt.Errorf("expected 6 values, got %d", len(fields))
	}
	v, err := parseInt16s(fields)
	if err != nil {
		return sen6x.Tuning{}, err
	}
	return sen6x.Tuning{
		IndexOffset:          v[0],
		LearnTimeOffsetHours: v[1],
		LearnTimeGainHours:   v[2],
		GateMaxDurationMin:   v[3],
		StdInitial:           v[4],
		GainFactor:           v[5],
	}, nil
}

func tuningString(t sen6x.Tuning) string {
	return fmt.Sprintf("%d %d %d %d %d %d",
		t.IndexOffset, t.LearnTimeOffsetHours, t.LearnTimeGainHours,
		t.GateMaxDurationMin, t.StdInitial, t.GainFactor)
}

// parseTemperatureInput reads "offset [slope [time [slot]]]"
func parseTemperatureInput(in string) (sen6x.TemperatureCompensation, error) {
	var tc sen6x.TemperatureCompensation
	fields := strings.Fields(in)
	if len(fields) == 0 || len(fields) > 4 {
		return tc, fmt.Errorf("expected 1 to 4 values, got %d", len(fields))
	}

	var err error
	if tc.Offset, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return tc, fmt.Errorf("invalid offset %q", fields[0])
	}
	if len(fields) > 1 {
		if tc.Slope, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return tc, fmt.Errorf("invalid slope %q", fields[1])
		}
	}
	if len(fields) > 2 {
		if tc.Time, err = parseUint16(fields[2]); err != nil {
			return tc, err
		}
	}
	if len(fields) > 3 {
		if tc.Slot, err = parseUint16(fields[3]); err != nil {
			return tc, err
		}
	}
	return tc, nil
}

var allSettings = []setting{
	{
		name:        "VOC tuning",
		help:        "offset learn_offset learn_gain gate_max std_initial gain",
		command:     sen6x.VOCTuning,
		placeholder: "100 12 12 180 50 230",
		read: func(d *sen6x.Device) (string, error) {
			t, err := d.VOCTuning()
			return tuningString(t), err
		},
		write: func(d *sen6x.Device, in string) (string, error) {
			t, err := parseTuningInput(in)
			if err != nil {
				return "", err
			}
			t = sen6x.ClampVOCTuning(t)
			return tuningString(t), d.SetVOCTuning(t)
		},
	},
	{
		name:        "NOx tuning",
		help:        "offset learn_offset learn_gain gate_max std_initial gain",
		command:     sen6x.NOxTuning,
		placeholder: "1 12 12 720 50 230",
		read: func(d *sen6x.Device) (string, error) {
			t, err := d.NOxTuning()
			return tuningString(t), err
		},
		write: func(d *sen6x.Device, in string) (string, error) {
			t, err := parseTuningInput(in)
			if err != nil {
				return "", err
			}
			t = sen6x.ClampNOxTuning(t)
			return tuningString(t), d.SetNOxTuning(t)
		},
	},
	{
		name:        "Ambient pressure",
		help:        "hPa, 700 to 1200",
		command:     sen6x.AmbientPressure,
		placeholder: "1013",
		read: func(d *sen6x.Device) (string, error) {
			p, err := d.AmbientPressure()
			return strconv.Itoa(int(p)), err
		},
		write: func(d *sen6x.Device, in string) (string, error) {
			p, err := parseUint16(in)
			if err != nil {
				return "", err
			}
			return strconv.Itoa(int(p)), d.SetAmbientPressure(p)
		},
	},
	{
		name:        "Altitude",
		help:        "meters above sea level, 0 to 3000",
		command:     sen6x.Altitude,
		placeholder: "0",
		read: func(d *sen6x.Device) (string, error) {
			m, err := d.Altitude()
			return strconv.Itoa(int(m)), err
		},
		write: func(d *sen6x.Device, in string) (string, error) {
			m, err := parseUint16(in)
			if err != nil {
				return "", err
			}
			return strconv.Itoa(int(m)), d.SetAltitude(m)
		},
	},
	{
		name:        "CO2 self calibration",
		help:        "on or off",
		command:     sen6x.CO2SelfCalibration,
		placeholder: "on",
		read: func(d *sen6x.Device) (string, error) {
			on, err := d.CO2SelfCalibration()
			return onOff(on), err
		},
		write: func(d *sen6x.Device, in string) (string, error) {
			on, err := parseOnOff(in)
			if err != nil {
				return "", err
			}
			return onOff(on), d.SetCO2SelfCalibration(on)
		},
	},
	{
		name:        "Temperature offset",
		help:        "offset [slope [time [slot]]]",
		command:     sen6x.TemperatureOffset,
		placeholder: "-1.5 0 0 0",
		write: func(d *sen6x.Device, in string) (string, error) {
			tc, err := parseTemperatureInput(in)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("slot %d: %.2f°C", tc.Slot, tc.Offset), d.SetTemperatureOffset(tc)
		},
	},
	{
		name:    "Fan cleaning",
		help:    "blow out dust, leaves the measurement stopped",
		command: sen6x.StartFanCleaning,
		write: func(d *sen6x.Device, in string) (string, error) {
			return "started", d.StartFanCleaning()
		},
	},
	{
		name:    "SHT heater",
		help:    "remove condensation from the humidity sensor",
		command: sen6x.ActivateSHTHeater,
		write: func(d *sen6x.Device, in string) (string, error) {
			return "activated", d.ActivateHeater()
		},
	},
}

// settingsFor returns the settings variant v supports
func settingsFor(v sen6x.Variant) []setting {
	var out []setting
	for _, s := range allSettings {
		if sen6x.Supports(v, s.command) {
			out = append(out, s)
		}
	}
	return out
}

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// lockedDevice serializes device access from concurrent tea commands
type lockedDevice struct {
	mu sync.Mutex
	d  *sen6x.Device
}

func (l *lockedDevice) do(fn func(d *sen6x.Device) (string, error)) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.d)
}

// tuneModel is the Bubble Tea model for the settings TUI
type tuneModel struct {
	dev      *lockedDevice
	connInfo string
	variant  sen6x.Variant

	settingList list.Model
	valueInput  textinput.Model
	focused     int

	current  map[string]string
	pending  bool
	errorLog []errorLogEntry

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type settingReadMsg struct {
	name  string
	value string
	err   error
}

type settingWrittenMsg struct {
	name     string
	result   string
	readable bool
	err      error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialTuneModel(dev *lockedDevice, connInfo string, variant sen6x.Variant) tuneModel {
	ti := textinput.New()
	ti.CharLimit = 48
	ti.Width = 32

	items := []list.Item{}
	for _, s := range settingsFor(variant) {
		items = append(items, s)
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	settingList := list.New(items, delegate, 34, 18)
	settingList.Title = "Settings"
	settingList.SetShowStatusBar(false)
	settingList.SetShowHelp(false)
	settingList.SetFilteringEnabled(false)

	m := tuneModel{
		dev:         dev,
		connInfo:    connInfo,
		variant:     variant,
		settingList: settingList,
		valueInput:  ti,
		focused:     focusSettingList,
		current:     make(map[string]string),
		width:       80,
		height:      24,
	}
	m.syncPlaceholder()
	return m
}

func (m tuneModel) selected() *setting {
	item := m.settingList.SelectedItem()
	if item == nil {
		return nil
	}
	s := item.(setting)
	return &s
}

func (m *tuneModel) syncPlaceholder() {
	if s := m.selected(); s != nil {
		m.valueInput.Placeholder = s.placeholder
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m tuneModel) readCmd() tea.Cmd {
	s := m.selected()
	if s == nil || s.read == nil {
		return nil
	}
	dev := m.dev
	return func() tea.Msg {
		value, err := dev.do(s.read)
		return settingReadMsg{name: s.name, value: value, err: err}
	}
}

func (m tuneModel) writeCmd(in string) tea.Cmd {
	s := m.selected()
	if s == nil {
		return nil
	}
	dev := m.dev
	return func() tea.Msg {
		result, err := dev.do(func(d *sen6x.Device) (string, error) {
			return s.write(d, in)
		})
		return settingWrittenMsg{name: s.name, result: result, readable: s.read != nil, err: err}
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m tuneModel) Init() tea.Cmd {
	return m.readCmd()
}

func (m tuneModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case settingReadMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s: read failed: %v", msg.name, msg.err), true)
			break
		}
		m.current[msg.name] = msg.value

	case settingWrittenMsg:
		m.pending = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s: %v", msg.name, msg.err), true)
			break
		}
		m.addLogEntry(fmt.Sprintf("%s: %s", msg.name, msg.result), false)
		if msg.readable {
			m.current[msg.name] = msg.result
		}
		m.valueInput.SetValue("")
	}

	return m, nil
}

func (m tuneModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "q":
		if m.focused != focusValueInput {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		m.cycleFocus(1)
		return m, nil

	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil

	case "enter":
		if m.focused == focusValueInput || m.focused == focusApplyButton {
			return m.apply()
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focused {
	case focusSettingList:
		before := m.settingList.Index()
		m.settingList, cmd = m.settingList.Update(msg)
		if m.settingList.Index() != before {
			m.syncPlaceholder()
			m.valueInput.SetValue("")
			return m, tea.Batch(cmd, m.readCmd())
		}
	case focusValueInput:
		m.valueInput, cmd = m.valueInput.Update(msg)
	}
	return m, cmd
}

func (m *tuneModel) cycleFocus(delta int) {
	m.focused = (m.focused + delta + focusApplyButton + 1) % (focusApplyButton + 1)
	if m.focused == focusValueInput {
		m.valueInput.Focus()
	} else {
		m.valueInput.Blur()
	}
}

func (m tuneModel) apply() (tea.Model, tea.Cmd) {
	s := m.selected()
	if s == nil || m.pending {
		return m, nil
	}

	in := strings.TrimSpace(m.valueInput.Value())
	if in == "" && s.read != nil {
		m.addLogEntry(fmt.Sprintf("%s: enter a value first", s.name), true)
		return m, nil
	}

	m.pending = true
	m.addLogEntry(fmt.Sprintf("%s: applying...", s.name), false)
	return m, m.writeCmd(in)
}

func (m *tuneModel) addLogEntry(message string, isError bool) {
	m.errorLog = append(m.errorLog, errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.errorLog) > 100 {
		m.errorLog = m.errorLog[len(m.errorLog)-100:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	focusedBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("12"))

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("12")).
			Padding(0, 2)

	focusedButtonStyle = buttonStyle.
				Background(lipgloss.Color("10"))
)

func (m tuneModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("SEN6X SETTINGS"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s | q=quit Tab=switch", m.connInfo, m.variant)))
	s.WriteString("\n\n")

	leftWidth := 36
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focused == focusSettingList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	settingsPanel := listStyle.Render(m.settingList.View())
	controlPanel := boxStyle.Width(rightWidth).Render(m.renderControlPanel())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, settingsPanel, " ", controlPanel))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.renderEventLog()))

	return s.String()
}

func (m tuneModel) renderControlPanel() string {
	sel := m.selected()
	if sel == nil {
		return headerStyle.Render("No settings available for " + m.variant.String())
	}

	var s strings.Builder
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Setting:"), sel.name))
	s.WriteString(headerStyle.Render(sel.help))
	s.WriteString("\n\n")

	if sel.read != nil {
		current, ok := m.current[sel.name]
		if !ok {
			current = "reading..."
		}
		s.WriteString(fmt.Sprintf("%s %s\n\n", statsLabelStyle.Render("Current:"), statsValueStyle.Render(current)))
	}

	if sel.placeholder != "" {
		s.WriteString(statsLabelStyle.Render("New value: "))
		if m.focused == focusValueInput {
			s.WriteString(m.valueInput.View())
		} else {
			val := m.valueInput.Value()
			if val == "" {
				val = m.valueInput.Placeholder
			}
			s.WriteString(fmt.Sprintf("[%s]", val))
		}
		s.WriteString("\n\n")
	}

	btnText := "[ Apply ]"
	if sel.placeholder == "" {
		btnText = "[ Run ]"
	}
	switch {
	case m.pending:
		s.WriteString(warningStyle.Render("Working..."))
	case m.focused == focusApplyButton:
		s.WriteString(focusedButtonStyle.Render(btnText))
	default:
		s.WriteString(buttonStyle.Render(btnText))
	}

	return s.String()
}

func (m tuneModel) renderEventLog() string {
	if len(m.errorLog) == 0 {
		return headerStyle.Render("  (no events yet)")
	}

	logHeight := m.height - 28
	if logHeight < 4 {
		logHeight = 4
	}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	var c strings.Builder
	for _, entry := range m.errorLog[startIdx:] {
		timestamp := entry.timestamp.Format("15:04:05")
		if entry.isError {
			c.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			c.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), statsValueStyle.Render("✓ "+entry.message)))
		}
	}
	return c.String()
}

func runTune(cmd *cobra.Command, args []string) error {
	s, err := OpenSession(cfg.Device)
	if err != nil {
		return err
	}
	defer s.Close()

	logger.SetLevel(logrus.ErrorLevel)

	m := initialTuneModel(&lockedDevice{d: s.Device}, s.Info, s.Device.Variant())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
