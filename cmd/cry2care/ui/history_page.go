package ui

import (
	"fmt"

	"cry2care/internal/model"
	"cry2care/internal/triage"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EmptyHistoryText is shown when the backend has no records.
const EmptyHistoryText = "No records found. Run a diagnostic to populate the log."

// HistoryPageModel renders the data log table.
type HistoryPageModel struct {
	width     int
	height    int
	table     table.Model
	entries   []model.LogEntry
	threshold float64
	styles    Styles
}

// NewHistoryPageModel creates the history page.
func NewHistoryPageModel(styles Styles) HistoryPageModel {
	t := table.New(
		table.WithColumns(historyColumns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	m := HistoryPageModel{
		table:     t,
		threshold: triage.DefaultThreshold,
		styles:    styles,
	}
	m.applyTableStyles()
	return m
}

func historyColumns() []table.Column {
	return []table.Column{
		{Title: "Event ID", Width: 10},
		{Title: "Timestamp", Width: 20},
		{Title: "Cause", Width: 14},
		{Title: "Vitals (RMS/SC)", Width: 18},
		{Title: "Severity", Width: 9},
		{Title: "Confidence", Width: 10},
	}
}

func (m *HistoryPageModel) applyTableStyles() {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(m.styles.Theme.Border).
		BorderBottom(true).
		Foreground(m.styles.Theme.Primary).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("#ffffff")).
		Background(m.styles.Theme.Primary).
		Bold(false)
	m.table.SetStyles(ts)
}

// SetSize updates the table dimensions.
func (m *HistoryPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.table.SetWidth(w)
	m.table.SetHeight(TableContentHeight(h))
}

// SetStyles switches skin.
func (m *HistoryPageModel) SetStyles(s Styles) {
	m.styles = s
	m.applyTableStyles()
}

// SetEntries replaces the rows.
func (m *HistoryPageModel) SetEntries(entries []model.LogEntry, threshold float64) {
	m.entries = entries
	if threshold > 0 {
		m.threshold = threshold
	}
	m.table.SetRows(m.rows())
}

// Entries returns the displayed records.
func (m HistoryPageModel) Entries() []model.LogEntry {
	return m.entries
}

// Selected returns the highlighted record, if any.
func (m HistoryPageModel) Selected() (model.LogEntry, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.entries) {
		return model.LogEntry{}, false
	}
	return m.entries[i], true
}

func (m HistoryPageModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		stamp := e.Time
		if e.Date != "" {
			stamp = e.Date + " " + e.Time
		}
		sev := triage.FormatSeverity(e.Severity)
		if triage.IsUrgent(e.Severity, m.threshold) {
			sev = "● " + sev
		}
		rows = append(rows, table.Row{
			e.ID.String(),
			stamp,
			e.Cause,
			fmt.Sprintf("%.3f / %.0f", e.RMS, e.SC),
			sev,
			triage.FormatConfidence(e.Confidence, 0),
		})
	}
	return rows
}

// Update forwards navigation keys to the table.
func (m HistoryPageModel) Update(msg tea.Msg) (HistoryPageModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the page.
func (m HistoryPageModel) View() string {
	s := m.styles
	header := s.Title.Render("Clinical data logs") + "  " +
		s.Muted.Render(fmt.Sprintf("%d records", len(m.entries)))
	if len(m.entries) == 0 {
		return header + "\n" + s.Muted.Render(EmptyHistoryText) + "\n\n" + s.Muted.Render("r: refresh")
	}
	return header + "\n" + m.table.View() + "\n" +
		s.Muted.Render("↑/↓: navigate   r: refresh   e: export CSV")
}
