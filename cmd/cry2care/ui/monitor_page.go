package ui

import (
	"fmt"
	"strings"

	"cry2care/internal/model"
	"cry2care/internal/triage"

	"github.com/charmbracelet/lipgloss"
)

// Bedside readings shown on the monitor. The classification backend does not
// stream vitals, so these are fixed display values.
const (
	StaticHeartRate = "142"
	StaticSpO2      = "98"
)

// MonitorPageModel renders the patient monitor: vitals tiles, the urgent
// alert list and the severity trend.
type MonitorPageModel struct {
	styles    Styles
	width     int
	height    int
	threshold float64
	history   []model.LogEntry
	result    *model.PredictionResult
}

// NewMonitorPageModel creates the monitor page.
func NewMonitorPageModel(styles Styles) MonitorPageModel {
	return MonitorPageModel{
		styles:    styles,
		width:     80,
		height:    20,
		threshold: triage.DefaultThreshold,
	}
}

// SetSize updates the page dimensions.
func (m *MonitorPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetStyles switches skin.
func (m *MonitorPageModel) SetStyles(s Styles) {
	m.styles = s
}

// SetData replaces the displayed records.
func (m *MonitorPageModel) SetData(history []model.LogEntry, result *model.PredictionResult, threshold float64) {
	m.history = history
	m.result = result
	if threshold > 0 {
		m.threshold = threshold
	}
}

// Alerts returns the entries currently listed as urgent.
func (m MonitorPageModel) Alerts() []model.LogEntry {
	return triage.Urgent(m.history, m.threshold, triage.AlertListLimit)
}

// View renders the page.
func (m MonitorPageModel) View() string {
	s := m.styles
	latest := triage.LatestSeverity(m.result, m.history)

	sevStyle := s.TileValue
	if triage.IsUrgent(latest, m.threshold) {
		sevStyle = s.Error
	}
	tiles := lipgloss.JoinHorizontal(lipgloss.Top,
		Tile(s, "Heart rate", StaticHeartRate, "bpm", s.TileValue),
		" ",
		Tile(s, "SpO₂", StaticSpO2, "%", s.TileValue),
		" ",
		Tile(s, "Distress", triage.FormatSeverity(latest), "/10", sevStyle),
		" ",
		Tile(s, "Events", fmt.Sprintf("%d", len(m.history)), "logged", s.TileValue),
	)

	layout := NewLayoutConfig(m.width, m.height)
	left, right := layout.Columns()

	alerts := NewSimpleTable("", []string{"Event", "Time", "Cause", "Severity"})
	alerts.Empty = "No high severity alerts"
	for _, e := range m.Alerts() {
		alerts.AddRow(e.ID.String(), e.Time, e.Cause, s.Error.Render(triage.FormatSeverity(e.Severity)))
	}
	alertTitle := fmt.Sprintf("Critical alerts (severity > %s)", triage.FormatSeverity(m.threshold))
	alertCard := Card(s, alertTitle, strings.TrimRight(alerts.View(s), "\n"), right)

	trend := TrendChart(triage.Trend(m.history, triage.TrendWindow), m.threshold, TrendChartHeight, s)
	trendCard := Card(s, "Severity trend", trend, left)

	var body string
	if layout.IsCompact {
		body = lipgloss.JoinVertical(lipgloss.Left, trendCard, alertCard)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, trendCard, " ", alertCard)
	}

	return lipgloss.JoinVertical(lipgloss.Left, tiles, "", body)
}
