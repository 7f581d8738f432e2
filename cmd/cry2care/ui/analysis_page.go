package ui

import (
	"fmt"
	"strings"
	"time"

	"cry2care/internal/model"
	"cry2care/internal/triage"
	"cry2care/internal/wav"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// AnalysisPageModel renders the diagnostic engine: the selected clip, the
// record/analyze controls, submission progress and the result card.
type AnalysisPageModel struct {
	styles   Styles
	width    int
	height   int
	progress progress.Model

	selected string
	envelope []float64
	duration float64
	clipErr  string

	percent   int
	busy      bool
	recording bool
	elapsed   time.Duration
	window    time.Duration

	result    *model.PredictionResult
	threshold float64
}

// NewAnalysisPageModel creates the analysis page.
func NewAnalysisPageModel(styles Styles, window time.Duration) AnalysisPageModel {
	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40
	return AnalysisPageModel{
		styles:    styles,
		width:     80,
		height:    20,
		progress:  p,
		window:    window,
		threshold: triage.DefaultThreshold,
	}
}

// SetSize updates the page dimensions.
func (m *AnalysisPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	pw := w - 20
	if pw > 60 {
		pw = 60
	}
	if pw < 10 {
		pw = 10
	}
	m.progress.Width = pw
}

// SetStyles switches skin.
func (m *AnalysisPageModel) SetStyles(s Styles) {
	m.styles = s
}

// SetClip shows the selected clip and its waveform. data may be nil.
func (m *AnalysisPageModel) SetClip(name string, data []byte) {
	m.selected = name
	m.envelope = nil
	m.duration = 0
	m.clipErr = ""
	if len(data) == 0 {
		return
	}
	samples, info, err := wav.Samples(data)
	if err != nil {
		m.clipErr = err.Error()
		return
	}
	m.duration = info.Duration()
	cols := m.width - 6
	if cols < 10 {
		cols = 10
	}
	m.envelope = wav.Envelope(samples, cols)
}

// SetProgress records the submission progress (0-100) and busy state.
func (m *AnalysisPageModel) SetProgress(percent int, busy bool) {
	m.percent = percent
	m.busy = busy
}

// SetRecording records microphone state and time captured so far.
func (m *AnalysisPageModel) SetRecording(recording bool, elapsed time.Duration) {
	m.recording = recording
	m.elapsed = elapsed
}

// SetResult replaces the result card. threshold colours the severity.
func (m *AnalysisPageModel) SetResult(r *model.PredictionResult, threshold float64) {
	m.result = r
	if threshold > 0 {
		m.threshold = threshold
	}
}

// View renders the page.
func (m AnalysisPageModel) View() string {
	s := m.styles
	var sb strings.Builder

	// Input
	var input strings.Builder
	switch {
	case m.recording:
		remaining := m.window - m.elapsed
		if remaining < 0 {
			remaining = 0
		}
		input.WriteString(s.Error.Render("● REC"))
		input.WriteString(fmt.Sprintf("  %.0fs remaining  ", remaining.Seconds()))
		input.WriteString(Meter(m.elapsed.Seconds(), m.window.Seconds(), 20, s.ChartAlert, s.Muted))
		input.WriteString("\n" + s.Muted.Render("space: stop now"))
	case m.selected != "":
		input.WriteString(s.Bold.Render(m.selected))
		if m.duration > 0 {
			input.WriteString(s.Muted.Render(fmt.Sprintf("  %.1fs", m.duration)))
		}
		if m.clipErr != "" {
			input.WriteString("\n" + s.Warning.Render(m.clipErr))
		}
		if len(m.envelope) > 0 {
			input.WriteString("\n" + Waveform(m.envelope, WaveformHeight, s.ChartBar))
		}
	default:
		input.WriteString(s.Muted.Render("No audio selected."))
	}
	input.WriteString("\n\n" + s.Muted.Render("o: open WAV   space: record 5s   a: analyze"))
	sb.WriteString(Card(s, "Audio input", input.String(), m.width))
	sb.WriteString("\n")

	if m.busy || m.percent > 0 {
		sb.WriteString(" " + m.progress.ViewAs(float64(m.percent)/100))
		sb.WriteString("\n")
	}

	sb.WriteString(m.resultCard())
	return sb.String()
}

func (m AnalysisPageModel) resultCard() string {
	s := m.styles
	r := m.result
	if r == nil {
		return Card(s, "Result", s.Muted.Render("Awaiting analysis."), m.width)
	}
	if r.Failed() {
		body := s.Error.Render("⚠ "+r.Error) + "\n" + s.Muted.Render("Cause: ") + s.Bold.Render(r.Cause)
		return Card(s, "Result", body, m.width)
	}

	e := r.Entry()
	sevStyle := s.TileValue
	if triage.IsUrgent(e.Severity, m.threshold) {
		sevStyle = s.Error
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		s.Muted.Render("Detected cause"),
		s.Title.Render(e.Cause),
		s.Muted.Render("Confidence ")+s.Bold.Render(triage.FormatConfidence(e.Confidence, 1)),
		Meter(triage.ConfidencePercent(e.Confidence), 100, 20, s.ProgressBar, s.Muted),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		s.Muted.Render("Severity"),
		sevStyle.Render(triage.FormatSeverity(e.Severity)+" / 10"),
		Meter(e.Severity, SeverityMax, 20, sevStyle, s.Muted),
		s.Muted.Render(fmt.Sprintf("RMS %.3f  ZCR %.3f  SC %.0f", e.RMS, e.ZCR, e.SC)),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
	if insight := triage.Insight(e.ZCR); insight != "" {
		body += "\n\n" + s.Info.Render(insight)
	}
	if e.ID != "" {
		body += "\n" + s.Muted.Render("Logged as "+e.ID.String())
	}
	return Card(s, "Result", body, m.width)
}
