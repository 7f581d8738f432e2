package dashboard

import (
	"fmt"
	"strings"

	"cry2care/internal/triage"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard.
func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing…"
	}

	var body string
	switch {
	case m.showHelp:
		body = m.helpVP.View()
	case m.viewMode == FilePickerView:
		body = m.styles.Subtitle.Render("Choose a WAV file (esc to cancel)") + "\n\n" + m.filepicker.View()
	default:
		body = m.renderPage()
	}

	layout := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		m.styles.Content.Render(body),
	)
	// pin the footer to the bottom
	gap := m.height - lipgloss.Height(layout) - 1
	if gap > 0 {
		layout += strings.Repeat("\n", gap)
	}
	return layout + "\n" + m.renderFooter()
}

func (m Model) renderPage() string {
	switch m.viewMode {
	case AnalysisView:
		return m.analysis.View()
	case HistoryView:
		return m.history.View()
	case SettingsView:
		return m.settings.View()
	default:
		return m.monitor.View()
	}
}

func (m Model) renderHeader() string {
	s := m.styles
	title := s.Title.Render("cry2care") + s.Muted.Render(" │ ") + s.Bold.Render(m.viewMode.Title())

	bell := s.Muted.Render("🔔")
	if triage.AnyUrgent(m.session.History(), m.Threshold()) {
		bell = s.AlertBadge.Render("🔔 ALERT")
	}

	status := s.Badge.Render("IDLE")
	switch {
	case m.recording:
		status = s.AlertBadge.Render(fmt.Sprintf("REC %.0fs", m.elapsedRecording().Seconds()))
	case m.busy:
		status = m.spinner.View() + " " + s.Badge.Render("BUSY")
	}

	right := bell + "  " + status
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return s.Header.Render(title + strings.Repeat(" ", gap) + right)
}

func (m Model) renderTabs() string {
	s := m.styles
	parts := make([]string, 0, len(tabs))
	for i, v := range tabs {
		label := fmt.Sprintf("%d %s", i+1, v.Title())
		if v == m.viewMode {
			parts = append(parts, s.ActiveTab.Render(label))
		} else {
			parts = append(parts, s.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...) + "\n"
}

func (m Model) renderFooter() string {
	s := m.styles
	hints := "o open · space record · a analyze · r refresh · e export · s skin · ? help · q quit"
	line := s.Muted.Render(hints)
	if m.statusMessage != "" {
		line = s.Info.Render(m.statusMessage) + s.Muted.Render("  │  ") + line
	}
	return s.Footer.Render(line)
}
