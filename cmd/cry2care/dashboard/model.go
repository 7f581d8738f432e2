// Package dashboard implements the interactive cry2care terminal dashboard:
// patient monitor, diagnostic engine, data logs and system config views over
// one pipeline session.
package dashboard

import (
	"context"
	"os"
	"time"

	"cry2care/cmd/cry2care/ui"
	"cry2care/internal/api"
	"cry2care/internal/config"
	"cry2care/internal/pipeline"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

// busyLinger is how long BUSY stays lit after a submission completes.
const busyLinger = 500 * time.Millisecond

// recordTick drives the recording countdown.
const recordTick = 250 * time.Millisecond

// ViewMode determines which page is active.
type ViewMode int

const (
	MonitorView ViewMode = iota
	AnalysisView
	HistoryView
	SettingsView
	FilePickerView
)

// tabs are the views reachable with 1-4 and tab.
var tabs = []ViewMode{MonitorView, AnalysisView, HistoryView, SettingsView}

// Title returns the header title of a view.
func (v ViewMode) Title() string {
	switch v {
	case MonitorView:
		return "Patient Monitor"
	case AnalysisView:
		return "Diagnostic Engine"
	case HistoryView:
		return "Data Logs"
	case SettingsView:
		return "System Config"
	case FilePickerView:
		return "Select WAV"
	}
	return "Unknown"
}

// Uplink reports backend reachability for the diagnostics panel.
type Uplink interface {
	Health(ctx context.Context) (api.Health, error)
	Index(ctx context.Context) (api.ServiceInfo, error)
}

// Deps wires the dashboard to its collaborators.
type Deps struct {
	Session       *pipeline.Session     // required
	Uplink        Uplink                // optional
	Config        *config.Config        // as read from the file
	Overrides     config.Overrides      // per-run values, never saved
	ConfigPath    string                // "" disables saving
	ConfigUpdates <-chan *config.Config // optional, from config.Watch
	Recorder      string                // recorder tool name for diagnostics
	RecorderReady bool
	ExportDir     string
	Logger        *zap.Logger
}

// Model is the root bubbletea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	session   *pipeline.Session
	uplink    Uplink
	cfg       *config.Config // fileCfg with overrides applied
	fileCfg   *config.Config
	overrides config.Overrides
	cfgPath   string
	updates   <-chan *config.Config
	exportTo  string

	width    int
	height   int
	viewMode ViewMode
	lastView ViewMode
	ready    bool

	styles   ui.Styles
	renderer *glamour.TermRenderer

	monitor  ui.MonitorPageModel
	analysis ui.AnalysisPageModel
	history  ui.HistoryPageModel
	settings ui.SettingsPageModel

	filepicker filepicker.Model
	spinner    spinner.Model
	helpVP     viewport.Model
	showHelp   bool

	// submissions
	pending  int
	busy     bool
	busySeq  int
	progress int

	// recording
	recording bool
	stopRec   chan struct{}
	recStart  time.Time
	recNow    func() time.Time

	diag          ui.Diagnostics
	statusMessage string
	err           error
}

// New builds the dashboard.
func New(deps Deps) Model {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fileCfg := deps.Config
	if fileCfg == nil {
		fileCfg = config.DefaultConfig()
	}
	cfg := deps.Overrides.Apply(fileCfg)
	session := deps.Session
	exportTo := deps.ExportDir
	if exportTo == "" {
		if wd, err := os.Getwd(); err == nil {
			exportTo = wd
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	styles := ui.StylesFor(cfg.UI.Skin)
	renderer, _ := ui.NewRenderer(styles.Theme.IsDark, 80)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	settings := ui.NewSettingsPageModel(styles)
	settings.Load(cfg)

	m := Model{
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
		session:    session,
		uplink:     deps.Uplink,
		cfg:        cfg,
		fileCfg:    fileCfg,
		overrides:  deps.Overrides,
		cfgPath:    deps.ConfigPath,
		updates:    deps.ConfigUpdates,
		exportTo:   exportTo,
		width:      100,
		height:     30,
		viewMode:   MonitorView,
		styles:     styles,
		renderer:   renderer,
		monitor:    ui.NewMonitorPageModel(styles),
		analysis:   ui.NewAnalysisPageModel(styles, config.RecordWindow),
		history:    ui.NewHistoryPageModel(styles),
		settings:   settings,
		filepicker: newFilePicker(),
		spinner:    sp,
		helpVP:     viewport.New(80, 20),
		recNow:     time.Now,
		diag: ui.Diagnostics{
			Uplink:          "checking…",
			Recorder:        deps.Recorder,
			RecorderPresent: deps.RecorderReady,
		},
	}
	m.settings.SetDiagnostics(m.diag)
	m.syncPages()
	return m
}

func newFilePicker() filepicker.Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".wav", ".WAV"}
	if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}
	return fp
}

// Init starts the first history fetch, the uplink check and the config
// watch listener.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		m.refreshCmd(),
		m.diagnosticsCmd(),
	}
	if m.updates != nil {
		cmds = append(cmds, waitForConfig(m.updates))
	}
	return tea.Batch(cmds...)
}

// Shutdown ends a running capture and cancels in-flight work. Safe to call
// more than once.
func (m *Model) Shutdown() {
	if m.stopRec != nil {
		close(m.stopRec)
		m.stopRec = nil
	}
	m.cancel()
}

// ViewMode returns the active view.
func (m Model) ViewMode() ViewMode {
	return m.viewMode
}

// Busy reports whether the header shows BUSY.
func (m Model) Busy() bool {
	return m.busy
}

// Recording reports whether the microphone is capturing.
func (m Model) Recording() bool {
	return m.recording
}

// Config returns the configuration currently applied.
func (m Model) Config() *config.Config {
	return m.cfg
}

// Threshold returns the urgent severity threshold.
func (m Model) Threshold() float64 {
	if m.cfg.Thresholds.DistressAlert > 0 {
		return m.cfg.Thresholds.DistressAlert
	}
	return 7
}

// StatusMessage returns the footer status line.
func (m Model) StatusMessage() string {
	return m.statusMessage
}

// syncPages pushes session state into the page models.
func (m *Model) syncPages() {
	st := m.session.Snapshot()
	threshold := m.Threshold()
	m.monitor.SetData(st.History, st.Result, threshold)
	m.history.SetEntries(st.History, threshold)
	m.analysis.SetResult(st.Result, threshold)
	m.analysis.SetProgress(m.progress, m.busy)
	m.analysis.SetRecording(m.recording, m.elapsedRecording())
}

// applyStyles switches every page to the current skin.
func (m *Model) applyStyles() {
	m.styles = ui.StylesFor(m.cfg.UI.Skin)
	m.spinner.Style = m.styles.Spinner
	m.monitor.SetStyles(m.styles)
	m.analysis.SetStyles(m.styles)
	m.history.SetStyles(m.styles)
	m.settings.SetStyles(m.styles)
	if r, err := ui.NewRenderer(m.styles.Theme.IsDark, m.helpWidth()); err == nil {
		m.renderer = r
	}
	m.helpVP.SetContent(ui.RenderHelp(m.renderer))
}

func (m Model) helpWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	return w
}

// resize lays out every page for the current terminal size.
func (m *Model) resize() {
	layout := ui.NewLayoutConfig(m.width, m.height)
	w, h := layout.BodyWidth(), layout.BodyHeight()
	m.monitor.SetSize(w, h)
	m.analysis.SetSize(w, h)
	m.history.SetSize(w, h)
	m.settings.SetSize(w, h)
	m.filepicker.Height = h - 2
	m.helpVP.Width = w
	m.helpVP.Height = h
}
