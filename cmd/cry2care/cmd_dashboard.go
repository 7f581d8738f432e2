package main

import (
	"context"
	"fmt"

	"cry2care/cmd/cry2care/dashboard"
	"cry2care/internal/config"
	"cry2care/internal/logging"
	"cry2care/internal/pipeline"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// runDashboard starts the interactive dashboard
func runDashboard() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newClient()
	recorder := newRecorder()
	session := pipeline.NewSession(client,
		pipeline.WithRecorder(recorder),
		pipeline.WithLogger(logging.Get(logging.CategoryPipeline)),
	)

	path := resolvedConfigPath()
	updates, err := config.Watch(ctx, path, logging.Get(logging.CategoryWatch))
	if err != nil {
		logger.Warn("config watch unavailable", zap.String("path", path), zap.Error(err))
		updates = nil
	}

	logger.Info("dashboard starting",
		zap.String("api", client.BaseURL()),
		zap.String("recorder", recorder.Tool),
		zap.Bool("recorder_available", recorder.Available()),
	)

	m := dashboard.New(dashboard.Deps{
		Session:       session,
		Uplink:        client,
		Config:        fileCfg,
		Overrides:     flagOverrides(),
		ConfigPath:    path,
		ConfigUpdates: updates,
		Recorder:      recorder.Tool,
		RecorderReady: recorder.Available(),
		Logger:        logging.Get(logging.CategoryUI),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(dashboard.Model); ok {
		fm.Shutdown()
	}
	if err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
