package dashboard

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"cry2care/cmd/cry2care/ui"
	"cry2care/internal/capture"
	"cry2care/internal/config"
	"cry2care/internal/pipeline"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		if r, err := ui.NewRenderer(m.styles.Theme.IsDark, m.helpWidth()); err == nil {
			m.renderer = r
		}
		m.helpVP.SetContent(ui.RenderHelp(m.renderer))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case historyMsg:
		if msg.err != nil {
			m.logger.Warn("history refresh failed", zap.Error(msg.err))
			m.statusMessage = "History unavailable: backend offline"
		}
		m.syncPages()
		return m, nil

	case progressMsg:
		if msg.percent > m.progress {
			m.progress = msg.percent
		}
		m.syncPages()
		return m, waitForProgress(msg.ch)

	case analysisDoneMsg:
		return m.handleAnalysisDone(msg)

	case busyClearMsg:
		if msg.seq == m.busySeq && m.pending == 0 {
			m.busy = false
			m.progress = 0
			m.syncPages()
		}
		return m, nil

	case recordTickMsg:
		if !m.recording {
			return m, nil
		}
		m.syncPages()
		return m, recordTickCmd()

	case diagnosticsMsg:
		m.diag = ui.Diagnostics(msg)
		m.settings.SetDiagnostics(m.diag)
		return m, nil

	case configMsg:
		m.adoptFile(msg.cfg)
		m.statusMessage = "Configuration reloaded"
		return m, waitForConfig(m.updates)

	case configSavedMsg:
		if msg.err != nil {
			m.settings.SetError(fmt.Sprintf("save failed: %v", msg.err))
			return m, nil
		}
		m.adoptFile(msg.cfg)
		m.settings.SetNotice("Configuration saved")
		return m, nil

	case ui.SettingsSubmittedMsg:
		cfg := m.fileCfg.Clone()
		cfg.Ward = msg.Ward
		cfg.Thresholds = msg.Thresholds
		return m, m.saveConfigCmd(cfg)

	case exportedMsg:
		if msg.err != nil {
			m.statusMessage = "Export failed: " + msg.err.Error()
		} else {
			m.statusMessage = "Exported " + filepath.Base(msg.path)
		}
		return m, nil
	}

	if m.viewMode == FilePickerView {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKeyMsg processes keyboard input. Page-local modes (settings editing,
// file picker, help) take precedence over the global bindings.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.Shutdown()
		return m, tea.Quit
	}

	if m.viewMode == SettingsView && m.settings.Editing() {
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd
	}

	if m.viewMode == FilePickerView {
		if msg.String() == "esc" {
			m.viewMode = m.lastView
			return m, nil
		}
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)
		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m = m.selectFile(path)
			m.viewMode = AnalysisView
			m.filepicker = newFilePicker()
			return m, nil
		}
		if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
			m.statusMessage = fmt.Sprintf("%s is not a WAV file", filepath.Base(path))
		}
		return m, cmd
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
			return m, nil
		}
		var cmd tea.Cmd
		m.helpVP, cmd = m.helpVP.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.Shutdown()
		return m, tea.Quit
	case "?":
		m.showHelp = true
		m.helpVP.SetContent(ui.RenderHelp(m.renderer))
		m.helpVP.GotoTop()
		return m, nil
	case "1", "2", "3", "4":
		m.viewMode = tabs[int(msg.String()[0]-'1')]
		return m, nil
	case "tab":
		m.viewMode = tabs[(m.tabIndex()+1)%len(tabs)]
		return m, nil
	case "shift+tab":
		m.viewMode = tabs[(m.tabIndex()-1+len(tabs))%len(tabs)]
		return m, nil
	case "o":
		m.lastView = m.viewMode
		m.viewMode = FilePickerView
		return m, m.filepicker.Init()
	case "a":
		m.viewMode = AnalysisView
		return m.startSubmission(m.analyzeCmd())
	case " ":
		return m.toggleRecording()
	case "r":
		m.statusMessage = "Refreshing history…"
		return m, m.refreshCmd()
	case "e":
		return m, m.exportCmd()
	case "s":
		// an explicit toggle replaces a --skin override
		m.overrides.Skin = ""
		file := m.fileCfg.Clone()
		file.UI.Skin = ui.NextSkin(m.cfg.UI.Skin)
		m.adoptFile(file)
		return m, m.saveConfigCmd(file)
	}

	switch m.viewMode {
	case HistoryView:
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	case SettingsView:
		var cmd tea.Cmd
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) tabIndex() int {
	for i, v := range tabs {
		if v == m.viewMode {
			return i
		}
	}
	return 0
}

// selectFile loads path and makes it the clip to analyze.
func (m Model) selectFile(path string) Model {
	audio, err := pipeline.LoadFile(path)
	if err != nil {
		m.logger.Warn("file selection rejected", zap.String("path", path), zap.Error(err))
		m.statusMessage = err.Error()
		return m
	}
	m.session.Select(&audio)
	m.analysis.SetClip(audio.Filename, audio.Data)
	m.statusMessage = "Selected " + audio.Filename
	return m
}

func (m Model) startSubmission(cmd tea.Cmd) (Model, tea.Cmd) {
	m.pending++
	m.busy = true
	m.busySeq++
	m.progress = 0
	m.syncPages()
	return m, cmd
}

// toggleRecording starts a capture, or ends the running one early.
func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.recording {
		if m.stopRec != nil {
			close(m.stopRec)
			m.stopRec = nil
		}
		m.statusMessage = "Recording stopped"
		return m, nil
	}
	m.viewMode = AnalysisView
	m.recording = true
	m.recStart = m.recNow()
	stop := make(chan struct{})
	m.stopRec = stop
	m.statusMessage = fmt.Sprintf("Recording %.0fs window…", config.RecordWindow.Seconds())
	return m.startSubmission(m.recordCmd(stop))
}

func (m Model) handleAnalysisDone(msg analysisDoneMsg) (tea.Model, tea.Cmd) {
	if m.pending > 0 {
		m.pending--
	}
	if msg.fromRecording && m.recording {
		m.recording = false
		m.stopRec = nil
		if audio, ok := m.session.Selected(); ok {
			m.analysis.SetClip(audio.Filename, audio.Data)
		}
	}

	switch {
	case msg.err == nil:
		m.statusMessage = "Analysis complete"
	case errors.Is(msg.err, pipeline.ErrNoInput):
		m.statusMessage = "Select a WAV file first (o)"
	case errors.Is(msg.err, capture.ErrMicrophoneUnavailable), errors.Is(msg.err, capture.ErrAlreadyRecording):
		m.statusMessage = msg.err.Error()
	default:
		m.logger.Warn("analysis failed", zap.Error(msg.err))
		m.statusMessage = "Analysis failed"
	}

	m.progress = pipeline.ProgressDone
	m.syncPages()
	if m.pending > 0 {
		return m, nil
	}
	seq := m.busySeq
	return m, busyClearCmd(seq)
}

// adoptFile records cfg as the file contents and applies it with the per-run
// overrides on top.
func (m *Model) adoptFile(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.fileCfg = cfg
	m.applyConfig(m.overrides.Apply(cfg))
}

// applyConfig adopts cfg, restyling when the skin changed.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	skinChanged := cfg.UI.Skin != m.cfg.UI.Skin
	m.cfg = cfg
	m.settings.Load(cfg)
	if skinChanged {
		m.applyStyles()
	}
	m.syncPages()
}

// elapsedRecording returns the capture time so far.
func (m Model) elapsedRecording() time.Duration {
	if !m.recording {
		return 0
	}
	return m.recNow().Sub(m.recStart)
}
