package ui

import (
	"fmt"
	"strconv"
	"strings"

	"cry2care/internal/config"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Settings field indices.
const (
	FieldWardID = iota
	FieldClinician
	FieldRetention
	FieldSensitivity
	FieldThreshold
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Ward identification",
	"Primary clinician",
	"Data retention policy",
	"Auditory sensitivity (dB)",
	"Distress alert threshold (1-10)",
}

// SettingsSubmittedMsg carries validated settings out of the page. The
// dashboard persists them.
type SettingsSubmittedMsg struct {
	Ward       config.WardConfig
	Thresholds config.ThresholdsConfig
}

// Diagnostics summarizes backend and recorder readiness.
type Diagnostics struct {
	Uplink          string // backend /health message or error
	Online          bool
	Service         string // name and version from the service index
	Recorder        string
	RecorderPresent bool
}

// SettingsPageModel edits the ward and threshold settings.
type SettingsPageModel struct {
	styles  Styles
	width   int
	height  int
	inputs  []textinput.Model
	focus   int
	editing bool
	err     string
	notice  string
	diag    Diagnostics
}

// NewSettingsPageModel creates the settings page.
func NewSettingsPageModel(styles Styles) SettingsPageModel {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = "› "
		ti.CharLimit = 64
		ti.Width = 40
		inputs[i] = ti
	}
	inputs[FieldSensitivity].CharLimit = 6
	inputs[FieldThreshold].CharLimit = 4
	inputs[FieldThreshold].Placeholder = "7"

	return SettingsPageModel{
		styles: styles,
		width:  80,
		height: 20,
		inputs: inputs,
	}
}

// SetSize updates the page dimensions.
func (m *SettingsPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	iw := w - 40
	if iw < 20 {
		iw = 20
	}
	for i := range m.inputs {
		m.inputs[i].Width = iw
	}
}

// SetStyles switches skin.
func (m *SettingsPageModel) SetStyles(s Styles) {
	m.styles = s
}

// Load fills the inputs from cfg. Ignored while the user is editing so an
// external reload does not clobber typing.
func (m *SettingsPageModel) Load(cfg *config.Config) {
	if m.editing || cfg == nil {
		return
	}
	m.inputs[FieldWardID].SetValue(cfg.Ward.WardID)
	m.inputs[FieldClinician].SetValue(cfg.Ward.Clinician)
	m.inputs[FieldRetention].SetValue(cfg.Ward.RetentionPolicy)
	m.inputs[FieldSensitivity].SetValue(strconv.FormatFloat(cfg.Thresholds.SensitivityDB, 'f', -1, 64))
	m.inputs[FieldThreshold].SetValue(strconv.FormatFloat(cfg.Thresholds.DistressAlert, 'f', -1, 64))
}

// SetDiagnostics replaces the system diagnostics panel.
func (m *SettingsPageModel) SetDiagnostics(d Diagnostics) {
	m.diag = d
}

// SetNotice shows a one-line status such as "Configuration saved".
func (m *SettingsPageModel) SetNotice(s string) {
	m.notice = s
	m.err = ""
}

// SetError shows a save failure.
func (m *SettingsPageModel) SetError(s string) {
	m.err = s
	m.notice = ""
}

// Editing reports whether an input has focus; the dashboard routes all keys
// to the page while it does.
func (m SettingsPageModel) Editing() bool {
	return m.editing
}

// Value returns the current text of field i.
func (m SettingsPageModel) Value(i int) string {
	return m.inputs[i].Value()
}

// Focused returns the index of the focused field.
func (m SettingsPageModel) Focused() int {
	return m.focus
}

// StartEditing focuses the first field.
func (m *SettingsPageModel) StartEditing() tea.Cmd {
	m.editing = true
	m.focus = 0
	m.err = ""
	m.notice = ""
	return m.focusCurrent()
}

func (m *SettingsPageModel) stopEditing() {
	m.editing = false
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

func (m *SettingsPageModel) focusCurrent() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return cmd
}

// Update handles keys while editing.
func (m SettingsPageModel) Update(msg tea.Msg) (SettingsPageModel, tea.Cmd) {
	if !m.editing {
		if key, ok := msg.(tea.KeyMsg); ok && (key.String() == "enter" || key.String() == "i") {
			cmd := m.StartEditing()
			return m, cmd
		}
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.stopEditing()
			return m, nil
		case "up", "shift+tab":
			m.focus = (m.focus - 1 + fieldCount) % fieldCount
			cmd := m.focusCurrent()
			return m, cmd
		case "down", "tab":
			m.focus = (m.focus + 1) % fieldCount
			cmd := m.focusCurrent()
			return m, cmd
		case "enter":
			sub, err := m.validate()
			if err != nil {
				m.SetError(err.Error())
				return m, nil
			}
			m.stopEditing()
			m.err = ""
			return m, func() tea.Msg { return sub }
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m SettingsPageModel) validate() (SettingsSubmittedMsg, error) {
	var sub SettingsSubmittedMsg
	sub.Ward.WardID = strings.TrimSpace(m.inputs[FieldWardID].Value())
	sub.Ward.Clinician = strings.TrimSpace(m.inputs[FieldClinician].Value())
	sub.Ward.RetentionPolicy = strings.TrimSpace(m.inputs[FieldRetention].Value())
	if sub.Ward.WardID == "" {
		return sub, fmt.Errorf("ward identification is required")
	}

	db, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[FieldSensitivity].Value()), 64)
	if err != nil || db < 0 || db > 120 {
		return sub, fmt.Errorf("sensitivity must be a number of dB between 0 and 120")
	}
	sub.Thresholds.SensitivityDB = db

	t, err := strconv.ParseFloat(strings.TrimSpace(m.inputs[FieldThreshold].Value()), 64)
	if err != nil || t < 1 || t > 10 {
		return sub, fmt.Errorf("distress alert threshold must be between 1 and 10")
	}
	sub.Thresholds.DistressAlert = t
	return sub, nil
}

// View renders the page.
func (m SettingsPageModel) View() string {
	s := m.styles
	var sb strings.Builder

	var form strings.Builder
	for i, in := range m.inputs {
		label := fieldLabels[i]
		if m.editing && i == m.focus {
			form.WriteString(s.Info.Render(label))
		} else {
			form.WriteString(s.Muted.Render(label))
		}
		form.WriteString("\n")
		form.WriteString(in.View())
		form.WriteString("\n")
	}
	if m.err != "" {
		form.WriteString(s.Error.Render("✗ " + m.err))
		form.WriteString("\n")
	} else if m.notice != "" {
		form.WriteString(s.Success.Render("✓ " + m.notice))
		form.WriteString("\n")
	}
	if m.editing {
		form.WriteString(s.Muted.Render("↑/↓: field   enter: save   esc: cancel"))
	} else {
		form.WriteString(s.Muted.Render("enter: edit"))
	}
	sb.WriteString(Card(s, "Configuration", form.String(), m.width))
	sb.WriteString("\n")

	diag := NewSimpleTable("", []string{"Check", "Status", "Detail"})
	uplink := s.Error.Render("OFFLINE")
	if m.diag.Online {
		uplink = s.Success.Render("ONLINE")
	}
	diag.AddRow("Backend uplink", uplink, m.diag.Uplink)
	if m.diag.Service != "" {
		diag.AddRow("Service", s.Info.Render("INFO"), m.diag.Service)
	}
	rec := s.Warning.Render("MISSING")
	if m.diag.RecorderPresent {
		rec = s.Success.Render("READY")
	}
	diag.AddRow("Microphone recorder", rec, m.diag.Recorder)
	sb.WriteString(Card(s, "System diagnostics", strings.TrimRight(diag.View(s), "\n"), m.width))

	return sb.String()
}
