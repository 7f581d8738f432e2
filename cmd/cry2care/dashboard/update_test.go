package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cry2care/cmd/cry2care/ui"
	"cry2care/internal/api"
	"cry2care/internal/config"
	"cry2care/internal/model"
	"cry2care/internal/pipeline"
	"cry2care/internal/wav"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_WindowResize(t *testing.T) {
	m := New(Deps{Session: pipeline.NewSession(&fakeBackend{})})
	defer m.Shutdown()
	assert.Contains(t, m.View(), "Initializing")

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	updated := newModel.(Model)
	assert.Equal(t, 100, updated.width)
	assert.Equal(t, 40, updated.height)
	assert.Contains(t, updated.View(), "Patient Monitor")
}

func TestUpdate_ViewSwitching(t *testing.T) {
	m := NewTestModel(t, nil)

	tests := []struct {
		key  string
		want ViewMode
	}{
		{"2", AnalysisView},
		{"3", HistoryView},
		{"4", SettingsView},
		{"1", MonitorView},
		{"tab", AnalysisView},
	}
	for _, tt := range tests {
		m, _ = press(t, m, tt.key)
		assert.Equal(t, tt.want, m.ViewMode(), "after %q", tt.key)
		assert.Contains(t, m.View(), tt.want.Title())
	}
}

func TestUpdate_AnalyzeWithoutSelection(t *testing.T) {
	backend := &fakeBackend{}
	m := NewTestModel(t, backend)

	m, cmd := press(t, m, "a")
	assert.Equal(t, AnalysisView, m.ViewMode())
	assert.True(t, m.Busy())

	msgs := collect(t, cmd)
	done, ok := findMsg[analysisDoneMsg](msgs)
	require.True(t, ok)
	assert.ErrorIs(t, done.err, pipeline.ErrNoInput)

	m, cmds := apply(t, m, msgs)
	assert.Empty(t, backend.Uploads(), "no request without a selected clip")
	assert.Contains(t, m.View(), model.MsgNoInput)
	assert.Contains(t, m.StatusMessage(), "Select a WAV file")

	// BUSY lingers until the clear tick
	assert.True(t, m.Busy())
	var clear []tea.Msg
	for _, c := range cmds {
		clear = append(clear, collect(t, c)...)
	}
	m, _ = apply(t, m, clear)
	assert.False(t, m.Busy())
}

func TestUpdate_AnalyzeShowsResultAndAlert(t *testing.T) {
	backend := &fakeBackend{result: model.PredictionResult{LogEntry: model.LogEntry{
		ID: "EVT-001", Cause: "belly_pain", Severity: 8.5, Confidence: 0.92, Status: model.StatusSuccess,
	}}}
	m := NewTestModel(t, backend)
	clip := testClip(t)
	m.session.Select(&clip)

	m, cmd := press(t, m, "a")
	m, _ = apply(t, m, collect(t, cmd))

	uploads := backend.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "cry.wav", uploads[0].Filename)

	view := m.View()
	assert.Contains(t, view, "belly_pain")
	assert.Contains(t, view, "92.0%")
	assert.Contains(t, view, "🔔 ALERT")

	m, _ = press(t, m, "1")
	assert.Contains(t, m.View(), "EVT-001")
	assert.NotContains(t, m.View(), "No high severity alerts")
}

func TestUpdate_AtThresholdIsNotUrgent(t *testing.T) {
	backend := &fakeBackend{result: model.PredictionResult{LogEntry: model.LogEntry{
		ID: "EVT-001", Cause: "hungry", Severity: 7, Confidence: 0.5,
	}}}
	m := NewTestModel(t, backend)
	clip := testClip(t)
	m.session.Select(&clip)

	m, cmd := press(t, m, "a")
	m, _ = apply(t, m, collect(t, cmd))
	m, _ = press(t, m, "1")

	assert.NotContains(t, m.View(), "🔔 ALERT")
	assert.Contains(t, m.View(), "No high severity alerts")
}

func TestUpdate_OfflinePlaceholder(t *testing.T) {
	backend := &fakeBackend{predictErr: errBackendDown}
	m := NewTestModel(t, backend)
	clip := testClip(t)
	m.session.Select(&clip)

	m, cmd := press(t, m, "a")
	m, _ = apply(t, m, collect(t, cmd))
	assert.Contains(t, m.View(), model.CauseOffline)
}

func TestUpdate_RefreshFailure(t *testing.T) {
	m := NewTestModel(t, &fakeBackend{logsErr: errBackendDown})

	m, cmd := press(t, m, "r")
	m, _ = apply(t, m, collect(t, cmd))
	assert.Contains(t, m.StatusMessage(), "History unavailable")

	m, _ = press(t, m, "3")
	assert.Contains(t, m.View(), ui.EmptyHistoryText)
}

func TestUpdate_RecordManualStop(t *testing.T) {
	backend := &fakeBackend{result: model.PredictionResult{LogEntry: model.LogEntry{Cause: "tired", Severity: 2}}}
	m := NewTestModel(t, backend)

	m, cmd := press(t, m, " ")
	require.True(t, m.Recording())
	assert.Equal(t, AnalysisView, m.ViewMode())
	assert.Contains(t, m.View(), "REC")

	// second press stops early
	m, stopCmd := press(t, m, " ")
	assert.Nil(t, stopCmd)
	assert.Nil(t, m.stopRec)

	m, _ = apply(t, m, collect(t, cmd))
	assert.False(t, m.Recording())

	uploads := backend.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, pipeline.RecordingName, uploads[0].Filename)
	assert.True(t, wav.IsWAV(uploads[0].Data))
	assert.Contains(t, m.View(), "tired")
}

func TestUpdate_AnalyzeDuringRecordingKeepsCapture(t *testing.T) {
	backend := &fakeBackend{result: model.PredictionResult{LogEntry: model.LogEntry{Cause: "hungry", Severity: 3}}}
	m := NewTestModel(t, backend)
	clip := testClip(t)
	m.session.Select(&clip)

	m, recCmd := press(t, m, " ")
	require.True(t, m.Recording())
	recorded := make(chan []tea.Msg, 1)
	go func() { recorded <- expand(recCmd) }()

	// an overlapping analysis finishes first
	m, cmd := press(t, m, "a")
	m, _ = apply(t, m, collect(t, cmd))
	require.Len(t, backend.Uploads(), 1)
	assert.True(t, m.Recording(), "capture is still running")
	assert.NotNil(t, m.stopRec)
	assert.Contains(t, m.View(), "REC")
	assert.True(t, m.Busy())

	// space still stops the running capture
	m, stopCmd := press(t, m, " ")
	assert.Nil(t, stopCmd)
	assert.Equal(t, "Recording stopped", m.StatusMessage())

	var msgs []tea.Msg
	select {
	case msgs = <-recorded:
	case <-time.After(5 * time.Second):
		t.Fatal("recording did not stop")
	}
	m, _ = apply(t, m, msgs)
	assert.False(t, m.Recording())

	uploads := backend.Uploads()
	require.Len(t, uploads, 2)
	assert.Equal(t, pipeline.RecordingName, uploads[1].Filename)
}

func TestUpdate_RecordMicrophoneFailure(t *testing.T) {
	backend := &fakeBackend{}
	m := NewTestModel(t, backend, func(d *Deps) {
		d.Session = pipeline.NewSession(backend, pipeline.WithRecorder(fakeRecorder{err: os.ErrPermission}))
	})

	m, cmd := press(t, m, " ")
	m, _ = press(t, m, " ")
	m, _ = apply(t, m, collect(t, cmd))

	assert.Empty(t, backend.Uploads())
	assert.Contains(t, m.View(), model.MsgMicrophone)
}

func TestUpdate_SettingsEditingCapturesKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	m := NewTestModel(t, nil, func(d *Deps) { d.ConfigPath = path })

	m, _ = press(t, m, "4", "enter")
	require.True(t, m.settings.Editing())

	// q types into the field instead of quitting
	m, cmd := press(t, m, "q")
	if cmd != nil {
		_, isQuit := cmd().(tea.QuitMsg)
		assert.False(t, isQuit)
	}
	assert.Equal(t, SettingsView, m.ViewMode())
	assert.True(t, strings.HasSuffix(m.settings.Value(ui.FieldWardID), "q"))

	for i := 0; i < ui.FieldThreshold; i++ {
		m, _ = press(t, m, "down")
	}
	m, _ = press(t, m, "enter")
	require.False(t, m.settings.Editing())
}

func TestUpdate_SettingsSavedAndApplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	m := NewTestModel(t, nil, func(d *Deps) { d.ConfigPath = path })

	next, cmd := m.Update(ui.SettingsSubmittedMsg{
		Ward:       config.WardConfig{WardID: "NICU-East-01", Clinician: "Dr. K", RetentionPolicy: "7 days"},
		Thresholds: config.ThresholdsConfig{SensitivityDB: 40, DistressAlert: 5},
	})
	m = next.(Model)
	m, _ = apply(t, m, collect(t, cmd))

	assert.Equal(t, 5.0, m.Threshold())
	assert.Equal(t, "NICU-East-01", m.Config().Ward.WardID)
	assert.Contains(t, m.settings.View(), "Configuration saved")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "NICU-East-01", loaded.Ward.WardID)
	assert.Equal(t, 5.0, loaded.Thresholds.DistressAlert)
}

func TestUpdate_ConfigReload(t *testing.T) {
	updates := make(chan *config.Config, 1)
	m := NewTestModel(t, nil, func(d *Deps) { d.ConfigUpdates = updates })

	cfg := config.DefaultConfig()
	cfg.UI.Skin = config.SkinNight
	cfg.Thresholds.DistressAlert = 9

	next, cmd := m.Update(configMsg{cfg: cfg})
	m = next.(Model)
	assert.Equal(t, 9.0, m.Threshold())
	assert.Equal(t, config.SkinNight, m.styles.Theme.Name)
	assert.Equal(t, "Configuration reloaded", m.StatusMessage())

	// listener re-armed; a closed channel ends it
	require.NotNil(t, cmd)
	close(updates)
	assert.Nil(t, cmd())
}

func TestUpdate_FlagOverridesKeptOutOfConfigFile(t *testing.T) {
	t.Setenv("CRY2CARE_API_URL", "")
	t.Setenv("CRY2CARE_SKIN", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewTestModel(t, nil, func(d *Deps) {
		d.ConfigPath = path
		d.Overrides = config.Overrides{APIURL: "http://flag-host:9000/api", Skin: config.SkinNight}
	})
	assert.Equal(t, "http://flag-host:9000/api", m.Config().API.BaseURL)
	assert.Equal(t, config.SkinNight, m.Config().UI.Skin)

	// an external edit is reloaded with the flags still on top
	file := config.DefaultConfig()
	file.Thresholds.DistressAlert = 9
	next, _ := m.Update(configMsg{cfg: file})
	m = next.(Model)
	assert.Equal(t, 9.0, m.Threshold())
	assert.Equal(t, "http://flag-host:9000/api", m.Config().API.BaseURL)
	assert.Equal(t, config.SkinNight, m.Config().UI.Skin)

	// saved settings carry the file's values, not the flags
	next, cmd := m.Update(ui.SettingsSubmittedMsg{
		Ward:       config.WardConfig{WardID: "NICU-East-01"},
		Thresholds: config.ThresholdsConfig{SensitivityDB: 40, DistressAlert: 6},
	})
	m = next.(Model)
	m, _ = apply(t, m, collect(t, cmd))
	assert.Equal(t, "http://flag-host:9000/api", m.Config().API.BaseURL)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAPIURL, loaded.API.BaseURL)
	assert.Equal(t, config.SkinClinical, loaded.UI.Skin)
	assert.Equal(t, 6.0, loaded.Thresholds.DistressAlert)

	// an explicit toggle replaces the --skin override and is saved
	m, cmd = press(t, m, "s")
	assert.Equal(t, config.SkinClinical, m.Config().UI.Skin)
	m, _ = apply(t, m, collect(t, cmd))
	m, cmd = press(t, m, "s")
	assert.Equal(t, config.SkinNight, m.Config().UI.Skin)
	m, _ = apply(t, m, collect(t, cmd))
	assert.Equal(t, config.SkinNight, m.Config().UI.Skin)

	loaded, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.SkinNight, loaded.UI.Skin)
	assert.Equal(t, config.DefaultAPIURL, loaded.API.BaseURL)
}

func TestUpdate_SkinToggle(t *testing.T) {
	m := NewTestModel(t, nil)
	require.Equal(t, config.SkinClinical, m.Config().UI.Skin)

	m, cmd := press(t, m, "s")
	assert.Equal(t, config.SkinNight, m.Config().UI.Skin)
	assert.True(t, m.styles.Theme.IsDark)

	// no config path: save is a no-op that reports success
	saved, ok := findMsg[configSavedMsg](collect(t, cmd))
	require.True(t, ok)
	assert.NoError(t, saved.err)
}

func TestUpdate_Export(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{logs: []model.LogEntry{{ID: "EVT-001", Cause: "hungry", Severity: 4}}}
	m := NewTestModel(t, backend, func(d *Deps) { d.ExportDir = dir })

	m, cmd := press(t, m, "e")
	m, _ = apply(t, m, collect(t, cmd))
	assert.Contains(t, m.StatusMessage(), "Export failed")

	m, cmd = press(t, m, "r")
	m, _ = apply(t, m, collect(t, cmd))
	m, cmd = press(t, m, "e")
	m, _ = apply(t, m, collect(t, cmd))
	assert.Contains(t, m.StatusMessage(), "Exported cry2care_logs_")

	files, err := filepath.Glob(filepath.Join(dir, "cry2care_logs_*.csv"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestUpdate_Diagnostics(t *testing.T) {
	tests := []struct {
		name   string
		uplink fakeUplink
		online bool
		want   string
	}{
		{"online", fakeUplink{health: api.Health{Status: "healthy", Message: "Backend is running"}}, true, "Backend is running"},
		{"offline", fakeUplink{err: errBackendDown}, false, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTestModel(t, nil, func(d *Deps) { d.Uplink = tt.uplink })
			msg := m.diagnosticsCmd()()
			d, ok := msg.(diagnosticsMsg)
			require.True(t, ok)
			assert.Equal(t, tt.online, d.Online)

			m, _ = apply(t, m, []tea.Msg{msg})
			m, _ = press(t, m, "4")
			assert.Contains(t, m.View(), tt.want)
		})
	}
}

func TestUpdate_FilePicker(t *testing.T) {
	m := NewTestModel(t, nil)

	m, cmd := press(t, m, "o")
	assert.Equal(t, FilePickerView, m.ViewMode())
	assert.NotNil(t, cmd)

	m, _ = press(t, m, "esc")
	assert.Equal(t, MonitorView, m.ViewMode())

	dir := t.TempDir()
	good := filepath.Join(dir, "cry.wav")
	require.NoError(t, os.WriteFile(good, testClip(t).Data, 0644))
	bad := filepath.Join(dir, "notes.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not audio"), 0644))

	m = m.selectFile(bad)
	_, ok := m.session.Selected()
	assert.False(t, ok)
	assert.Contains(t, m.StatusMessage(), "notes.wav")

	m = m.selectFile(good)
	audio, ok := m.session.Selected()
	require.True(t, ok)
	assert.Equal(t, "cry.wav", audio.Filename)
	m, _ = press(t, m, "2")
	assert.Contains(t, m.View(), "cry.wav")
}

func TestUpdate_HelpToggle(t *testing.T) {
	m := NewTestModel(t, nil)

	m, _ = press(t, m, "?")
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Diagnostic")

	// view keys are swallowed while help is open
	m, _ = press(t, m, "3")
	assert.Equal(t, MonitorView, m.ViewMode())

	m, _ = press(t, m, "?")
	assert.False(t, m.showHelp)
}

func TestUpdate_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		m := NewTestModel(t, nil)
		_, cmd := press(t, m, k)
		require.NotNil(t, cmd, k)
		_, ok := cmd().(tea.QuitMsg)
		assert.True(t, ok, k)
	}
}
