// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

var (
	monitorInterval time.Duration
	monitorShowAll  bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of measured values and read errors",
	Long: `Show the latest reading, reading statistics and an event log in a terminal UI.

Implausible values and failed transactions are logged as they happen. Use
--show-all to log every reading. Press 'q' to quit.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Second, "Polling interval")
	monitorCmd.Flags().BoolVar(&monitorShowAll, "show-all", false, "Log every reading (not just errors)")
}

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// TUI model
type model struct {
	connInfo      string
	variant       sen6x.Variant
	serial        string
	showAll       bool
	stats         *sen6x.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
	connLost      bool
	last          *sen6x.Values
	lastAt        time.Time
	status        *sen6x.Status
	bridgeUptime  time.Duration
}

// Messages
type tickMsg time.Time
type readingMsg struct {
	values           sen6x.Values
	readErr          error
	validationErrors []sen6x.ValidationError
}
type statusMsg struct {
	status sen6x.Status
}
type bridgeUptimeMsg struct {
	uptime time.Duration
}
type connectionLostMsg struct {
	err error
}

// formatUptime formats uptime in milliseconds to human-friendly string
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n uint64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
}

func initialModel(connInfo string, variant sen6x.Variant, serial string, showAll bool) model {
	return model{
		connInfo:      connInfo,
		variant:       variant,
		serial:        serial,
		showAll:       showAll,
		stats:         sen6x.NewStatistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.stats.Reset()
			m.addLogEntry("Statistics reset", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case readingMsg:
		if msg.readErr != nil {
			m.stats.Update(msg.readErr, nil)
			m.addLogEntry(fmt.Sprintf("%s: %v", sen6x.CodeOf(msg.readErr), msg.readErr), true)
			break
		}

		m.stats.Update(nil, msg.validationErrors)
		values := msg.values
		m.last = &values
		m.lastAt = time.Now()

		for _, verr := range msg.validationErrors {
			m.addLogEntry(verr.Message, true)
		}
		if len(msg.validationErrors) == 0 && m.showAll {
			m.addLogEntry(sen6x.FormatValues(values), false)
		}

	case statusMsg:
		if m.status == nil || *m.status != msg.status {
			m.addLogEntry(fmt.Sprintf("Device status: %s", sen6x.FormatStatus(msg.status)), msg.status != sen6x.StatusOK)
		}
		status := msg.status
		m.status = &status

	case bridgeUptimeMsg:
		m.bridgeUptime = msg.uptime

	case connectionLostMsg:
		m.connLost = true
		m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
	}

	return m, nil
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("SEN6X - LIVE MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s %s | Press 'r' to reset, 'q' to quit",
		m.connInfo, m.variant, m.serial)))
	s.WriteString("\n\n")

	if m.connLost {
		s.WriteString(errorStyle.Render("✗ Connection lost"))
		s.WriteString("\n\n")
	} else if m.last == nil {
		s.WriteString(warningStyle.Render("⏳ Waiting for first reading..."))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderStats())
	s.WriteString("\n\n")

	if m.last != nil {
		s.WriteString(statsLabelStyle.Render("Latest Reading:"))
		s.WriteString(headerStyle.Render(" " + m.lastAt.Format("15:04:05")))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(m.renderValues()))
		s.WriteString("\n\n")
	}

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(m.width - 4).Render(m.renderLog()))

	return s.String()
}

func (m model) renderStats() string {
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	totalErrors := m.stats.Errors() + m.stats.AnomalousValues
	if m.stats.TotalReadings > 0 {
		validPercent = float64(m.stats.ValidReadings) * 100.0 / float64(m.stats.TotalReadings)
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalReadings)
	}

	var c strings.Builder
	c.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalReadings)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidReadings, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	))

	if m.stats.ProtocolErrors > 0 || m.stats.TimeoutErrors > 0 {
		c.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Protocol:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ProtocolErrors)),
			statsLabelStyle.Render("Timeouts:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.TimeoutErrors)),
		))
	}
	if m.stats.AnomalousValues > 0 {
		c.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.AnomalousValues)),
		))
	}
	if m.status != nil {
		style := statsValueStyle
		if *m.status != sen6x.StatusOK {
			style = errorStyle
		}
		c.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Device Status:"), style.Render(sen6x.FormatStatus(*m.status))))
	}
	if m.bridgeUptime > 0 {
		c.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Bridge Uptime:"), statsValueStyle.Render(formatUptime(uint64(m.bridgeUptime.Milliseconds())))))
	}

	rate := statsValueStyle
	if m.stats.ErrorRate > 0 {
		rate = errorStyle
	}
	c.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Reading Rate:"), statsValueStyle.Render(fmt.Sprintf("%.2f/s", m.stats.ReadingRate)),
		statsLabelStyle.Render("Error Rate:"), rate.Render(fmt.Sprintf("%.2f err/s", m.stats.ErrorRate)),
	))

	return boxStyle.Render(c.String())
}

// valueRows lists the dashboard rows in display order
var valueRows = []struct {
	field  sen6x.Field
	label  string
	format string
}{
	{sen6x.FieldMassPM1, "PM1.0:", "%.1f µg/m³"},
	{sen6x.FieldMassPM2p5, "PM2.5:", "%.1f µg/m³"},
	{sen6x.FieldMassPM4, "PM4.0:", "%.1f µg/m³"},
	{sen6x.FieldMassPM10, "PM10:", "%.1f µg/m³"},
	{sen6x.FieldNumberPM0p5, "N0.5:", "%.1f #/cm³"},
	{sen6x.FieldNumberPM1, "N1.0:", "%.1f #/cm³"},
	{sen6x.FieldNumberPM2p5, "N2.5:", "%.1f #/cm³"},
	{sen6x.FieldNumberPM4, "N4.0:", "%.1f #/cm³"},
	{sen6x.FieldNumberPM10, "N10:", "%.1f #/cm³"},
	{sen6x.FieldHumidity, "Humidity:", "%.2f %%RH"},
	{sen6x.FieldTemperature, "Temperature:", "%.2f °C"},
	{sen6x.FieldVOC, "VOC Index:", "%.0f"},
	{sen6x.FieldNOx, "NOx Index:", "%.0f"},
	{sen6x.FieldCO2, "CO2:", "%.0f ppm"},
	{sen6x.FieldHCHO, "HCHO:", "%.1f ppb"},
}

func (m model) renderValues() string {
	var c strings.Builder
	for _, row := range valueRows {
		if !m.last.Has(row.field) {
			continue
		}
		c.WriteString(fmt.Sprintf("%-13s %s\n",
			statsLabelStyle.Render(row.label),
			statsValueStyle.Render(fmt.Sprintf(row.format, m.last.Get(row.field))),
		))
	}
	return strings.TrimSuffix(c.String(), "\n")
}

func (m model) renderLog() string {
	logHeight := m.height - 25
	if logHeight < 5 {
		logHeight = 5
	}

	if len(m.errorLog) == 0 {
		return headerStyle.Render("  (no events yet)")
	}

	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	var c strings.Builder
	for _, entry := range m.errorLog[startIdx:] {
		timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
		if entry.isError {
			c.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			c.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
		}
	}
	return c.String()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := checkInterval("--interval", monitorInterval); err != nil {
		return err
	}

	s, err := OpenSession(cfg.Device)
	if err != nil {
		return err
	}
	defer s.Close()

	serial, err := s.Device.SerialNumber()
	if err != nil {
		return fmt.Errorf("failed to read serial number: %w", err)
	}

	// Log lines would corrupt the alternate screen
	logger.SetLevel(logrus.ErrorLevel)

	m := initialModel(s.Info, s.Device.Variant(), serial, monitorShowAll)
	p := tea.NewProgram(m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sample(ctx, s, p)
	}()

	_, err = p.Run()
	cancel()
	<-done

	if stopErr := s.Device.Stop(); stopErr != nil && err == nil {
		return stopErr
	}
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// sample polls the device and feeds the TUI until ctx is done or the
// transport is lost. The Device is only touched from this goroutine.
func sample(ctx context.Context, s *Session, p *tea.Program) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	var lastStatus, lastPing time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ready, err := s.Device.DataReady()
		if err == nil && ready {
			var v sen6x.Values
			v, err = s.Device.Values()
			if err == nil {
				p.Send(readingMsg{values: v, validationErrors: sen6x.ValidateValues(v)})
			}
		}
		if err != nil {
			if transportLost(err) {
				p.Send(connectionLostMsg{err: err})
				return
			}
			p.Send(readingMsg{readErr: err})
		}

		now := time.Now()
		if now.Sub(lastStatus) >= 10*time.Second {
			lastStatus = now
			if st, err := s.Device.PeekStatus(); err == nil || sen6x.CodeOf(err) == sen6x.CodeOutOfRange {
				p.Send(statusMsg{status: st})
			}
		}
		if s.Bridge != nil && now.Sub(lastPing) >= 30*time.Second {
			lastPing = now
			if uptime, err := s.Bridge.Ping(ctx); err == nil {
				p.Send(bridgeUptimeMsg{uptime: uptime})
			}
		}
	}
}
