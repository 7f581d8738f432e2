package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cry2care/cmd/cry2care/ui"
	"cry2care/internal/config"
	"cry2care/internal/export"
	"cry2care/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// diagnosticsTimeout bounds the startup uplink check.
const diagnosticsTimeout = 5 * time.Second

type (
	historyMsg struct {
		entries []model.LogEntry
		err     error
	}

	// progressMsg relays one submission step; ch is re-listened until closed.
	progressMsg struct {
		percent int
		ch      <-chan int
	}

	// analysisDoneMsg ends one submission. fromRecording marks the capture's
	// own submission; only that one ends the REC state.
	analysisDoneMsg struct {
		result        model.PredictionResult
		err           error
		fromRecording bool
	}

	busyClearMsg struct{ seq int }

	recordTickMsg time.Time

	diagnosticsMsg ui.Diagnostics

	configMsg struct{ cfg *config.Config }

	configSavedMsg struct {
		cfg *config.Config
		err error
	}

	exportedMsg struct {
		path string
		err  error
	}
)

func (m Model) refreshCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		entries, err := session.RefreshHistory(ctx)
		return historyMsg{entries: entries, err: err}
	}
}

// analyzeCmd submits the selected clip. Progress is reported through a
// buffered channel listened to by waitForProgress.
func (m Model) analyzeCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	ch := make(chan int, 4)
	run := func() tea.Msg {
		res, err := session.Analyze(ctx, sendProgress(ch))
		close(ch)
		return analysisDoneMsg{result: res, err: err}
	}
	return tea.Batch(waitForProgress(ch), run)
}

// recordCmd records until stop is closed or the window elapses, then submits.
func (m Model) recordCmd(stop <-chan struct{}) tea.Cmd {
	session, ctx := m.session, m.ctx
	ch := make(chan int, 4)
	run := func() tea.Msg {
		res, err := session.CaptureAndAnalyze(ctx, stop, sendProgress(ch))
		close(ch)
		return analysisDoneMsg{result: res, err: err, fromRecording: true}
	}
	return tea.Batch(waitForProgress(ch), run, recordTickCmd())
}

func sendProgress(ch chan<- int) func(int) {
	return func(p int) {
		select {
		case ch <- p:
		default:
		}
	}
}

func waitForProgress(ch <-chan int) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg{percent: p, ch: ch}
	}
}

func recordTickCmd() tea.Cmd {
	return tea.Tick(recordTick, func(t time.Time) tea.Msg {
		return recordTickMsg(t)
	})
}

func busyClearCmd(seq int) tea.Cmd {
	return tea.Tick(busyLinger, func(time.Time) tea.Msg {
		return busyClearMsg{seq: seq}
	})
}

// diagnosticsCmd queries /health and / concurrently.
func (m Model) diagnosticsCmd() tea.Cmd {
	if m.uplink == nil {
		return nil
	}
	uplink, parent, base := m.uplink, m.ctx, m.diag
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, diagnosticsTimeout)
		defer cancel()

		d := base
		var g errgroup.Group
		g.Go(func() error {
			h, err := uplink.Health(ctx)
			if err != nil {
				return err
			}
			d.Online = true
			d.Uplink = h.Message
			if d.Uplink == "" {
				d.Uplink = h.Status
			}
			return nil
		})
		var service string
		g.Go(func() error {
			info, err := uplink.Index(ctx)
			if err != nil {
				// informational only
				return nil
			}
			service = fmt.Sprintf("%s %s", info.Name, info.Version)
			return nil
		})
		if err := g.Wait(); err != nil {
			d.Online = false
			d.Uplink = err.Error()
		}
		d.Service = service
		return diagnosticsMsg(d)
	}
}

func waitForConfig(ch <-chan *config.Config) tea.Cmd {
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return configMsg{cfg: cfg}
	}
}

func (m Model) saveConfigCmd(cfg *config.Config) tea.Cmd {
	path, logger := m.cfgPath, m.logger
	return func() tea.Msg {
		if path == "" {
			return configSavedMsg{cfg: cfg}
		}
		if err := cfg.Save(path); err != nil {
			logger.Warn("config save failed", zap.String("path", path), zap.Error(err))
			return configSavedMsg{cfg: cfg, err: err}
		}
		return configSavedMsg{cfg: cfg}
	}
}

func (m Model) exportCmd() tea.Cmd {
	entries := m.session.History()
	dir, threshold := m.exportTo, m.Threshold()
	return func() tea.Msg {
		if len(entries) == 0 {
			return exportedMsg{err: errors.New("no records to export")}
		}
		path, err := export.SaveCSV(dir, entries, threshold, time.Now())
		return exportedMsg{path: path, err: err}
	}
}
