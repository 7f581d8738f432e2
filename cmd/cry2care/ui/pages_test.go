package ui

import (
	"strings"
	"testing"
	"time"

	"cry2care/internal/config"
	"cry2care/internal/model"
	"cry2care/internal/wav"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHistory() []model.LogEntry {
	return []model.LogEntry{
		{ID: "EVT-004", Time: "10:04:00", Date: "2026-10-17", Cause: "belly_pain", Severity: 8.6, Confidence: 0.91, RMS: 0.12, SC: 2400},
		{ID: "EVT-003", Time: "10:03:00", Date: "2026-10-17", Cause: "hungry", Severity: 7, Confidence: 0.8},
		{ID: "EVT-002", Time: "10:02:00", Date: "2026-10-17", Cause: "tired", Severity: 2.1, Confidence: 0.55},
		{ID: "EVT-001", Time: "10:01:00", Date: "2026-10-17", Cause: "discomfort", Severity: 7.4, Confidence: 0.7},
	}
}

func TestMonitorPage_AlertsUseStrictThreshold(t *testing.T) {
	m := NewMonitorPageModel(DefaultStyles())
	m.SetSize(140, 30)
	m.SetData(sampleHistory(), nil, 7)

	alerts := m.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, model.EventID("EVT-004"), alerts[0].ID)
	assert.Equal(t, model.EventID("EVT-001"), alerts[1].ID)

	view := m.View()
	assert.Contains(t, view, "EVT-004")
	assert.NotContains(t, view, "No high severity alerts")
	assert.Contains(t, view, StaticHeartRate)
}

func TestMonitorPage_Empty(t *testing.T) {
	m := NewMonitorPageModel(DefaultStyles())
	m.SetSize(80, 30)

	view := m.View()
	assert.Contains(t, view, "No high severity alerts")
	assert.Contains(t, view, "No trend data yet")
	// fallback severity with no result and no history
	assert.Contains(t, view, "3.4")
}

func TestMonitorPage_LatestSeverityPrefersResult(t *testing.T) {
	m := NewMonitorPageModel(DefaultStyles())
	m.SetSize(140, 30)
	res := model.PredictionResult{LogEntry: model.LogEntry{Cause: "hungry", Severity: 5.5}}
	m.SetData(sampleHistory(), &res, 7)

	assert.Contains(t, m.View(), "5.5")
}

func TestAnalysisPage_ResultCard(t *testing.T) {
	m := NewAnalysisPageModel(DefaultStyles(), config.RecordWindow)
	m.SetSize(120, 30)

	assert.Contains(t, m.View(), "No audio selected.")
	assert.Contains(t, m.View(), "Awaiting analysis.")

	res := model.PredictionResult{
		LogEntry: model.LogEntry{ID: "EVT-009", Cause: "belly_pain", Severity: 8.2, Confidence: 0.873, ZCR: 0.14, Status: model.StatusSuccess},
	}
	m.SetResult(&res, 7)
	view := m.View()
	assert.Contains(t, view, "belly_pain")
	assert.Contains(t, view, "87.3%")
	assert.Contains(t, view, "EVT-009")
}

func TestAnalysisPage_FailedResult(t *testing.T) {
	m := NewAnalysisPageModel(DefaultStyles(), config.RecordWindow)
	m.SetSize(120, 30)
	res := model.NoInput()
	m.SetResult(&res, 7)

	view := m.View()
	assert.Contains(t, view, model.MsgNoInput)
	assert.Contains(t, view, model.CauseNoInput)
}

func TestAnalysisPage_ClipAndRecording(t *testing.T) {
	m := NewAnalysisPageModel(DefaultStyles(), config.RecordWindow)
	m.SetSize(100, 30)

	pcm := make([]byte, 22050*2)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i+1] = byte(i % 64)
	}
	data, err := wav.Encode(pcm, 22050, 1)
	require.NoError(t, err)
	m.SetClip("cry.wav", data)
	view := m.View()
	assert.Contains(t, view, "cry.wav")
	assert.Contains(t, view, "1.0s")

	m.SetClip("broken.wav", []byte("nope"))
	assert.NotEmpty(t, m.clipErr)

	m.SetRecording(true, 2*time.Second)
	assert.Contains(t, m.View(), "3s remaining")

	m.SetRecording(false, 0)
	m.SetProgress(60, true)
	assert.Contains(t, m.View(), "60%")
}

func TestHistoryPage_Rows(t *testing.T) {
	m := NewHistoryPageModel(DefaultStyles())
	m.SetSize(120, 30)

	assert.Contains(t, m.View(), EmptyHistoryText)

	m.SetEntries(sampleHistory(), 7)
	rows := m.rows()
	require.Len(t, rows, 4)
	assert.Equal(t, "EVT-004", rows[0][0])
	assert.Equal(t, "2026-10-17 10:04:00", rows[0][1])
	assert.Equal(t, "● 8.6", rows[0][4])
	assert.Equal(t, "91%", rows[0][5])
	// exactly at the threshold is not urgent
	assert.Equal(t, "7", rows[1][4])

	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, model.EventID("EVT-004"), sel.ID)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	sel, _ = m.Selected()
	assert.Equal(t, model.EventID("EVT-003"), sel.ID)
}

func TestSettingsPage_EditAndSubmit(t *testing.T) {
	m := NewSettingsPageModel(DefaultStyles())
	m.SetSize(100, 30)
	m.Load(config.DefaultConfig())
	assert.Equal(t, "7", m.Value(FieldThreshold))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.Editing())
	assert.Equal(t, FieldWardID, m.Focused())

	for i := 0; i < FieldThreshold; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, FieldThreshold, m.Focused())

	m.inputs[FieldThreshold].SetValue("8.5")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.Editing())

	sub, ok := cmd().(SettingsSubmittedMsg)
	require.True(t, ok)
	assert.Equal(t, 8.5, sub.Thresholds.DistressAlert)
	assert.Equal(t, "NICU-West-Wing-04", sub.Ward.WardID)
}

func TestSettingsPage_Validation(t *testing.T) {
	tests := []struct {
		name  string
		field int
		value string
		want  string
	}{
		{"threshold too high", FieldThreshold, "11", "between 1 and 10"},
		{"threshold not a number", FieldThreshold, "high", "between 1 and 10"},
		{"sensitivity negative", FieldSensitivity, "-3", "sensitivity"},
		{"ward empty", FieldWardID, "  ", "ward identification"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSettingsPageModel(DefaultStyles())
			m.Load(config.DefaultConfig())
			m.StartEditing()
			m.inputs[tt.field].SetValue(tt.value)

			m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
			assert.Nil(t, cmd)
			assert.True(t, m.Editing())
			assert.Contains(t, m.View(), tt.want)
		})
	}
}

func TestSettingsPage_LoadIgnoredWhileEditing(t *testing.T) {
	m := NewSettingsPageModel(DefaultStyles())
	m.Load(config.DefaultConfig())
	m.StartEditing()
	m.inputs[FieldWardID].SetValue("typing")

	cfg := config.DefaultConfig()
	cfg.Ward.WardID = "from-disk"
	m.Load(cfg)
	assert.Equal(t, "typing", m.Value(FieldWardID))

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Editing())
}

func TestSettingsPage_Diagnostics(t *testing.T) {
	m := NewSettingsPageModel(DefaultStyles())
	m.SetSize(120, 30)
	m.SetDiagnostics(Diagnostics{Uplink: "Backend is running", Online: true, Recorder: "arecord", RecorderPresent: false})

	view := m.View()
	assert.Contains(t, view, "ONLINE")
	assert.Contains(t, view, "MISSING")
	assert.True(t, strings.Contains(view, "Backend is running"))
}

func TestRenderHelp(t *testing.T) {
	r, err := NewRenderer(false, 80)
	require.NoError(t, err)
	out := RenderHelp(r)
	assert.Contains(t, out, "Patient")
	assert.Equal(t, HelpMarkdown, RenderHelp(nil))

	report := RenderReport(nil, "Result", [][2]string{{"Cause", "a|b"}}, "note")
	assert.Contains(t, report, `a\|b`)
	assert.Contains(t, report, "> note")
}
