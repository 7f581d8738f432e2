package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cry2care/internal/config"
	"cry2care/internal/demo"
	"cry2care/internal/model"
	"cry2care/internal/wav"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupCLI points the globals at a demo backend and a throwaway config file.
func setupCLI(t *testing.T, seed int) *demo.Server {
	t.Helper()
	logger = zap.NewNop()

	backend := demo.New()
	if seed > 0 {
		backend.Seed(seed)
	}
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	configPath = filepath.Join(t.TempDir(), "config.yaml")
	apiURL = srv.URL + "/api"
	skin = ""
	predictJSON = false
	logsFormat = "table"
	logsLimit = 0
	logsUrgent = false
	t.Cleanup(func() {
		configPath, apiURL = "", ""
	})

	require.NoError(t, loadConfig())
	return backend
}

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cry.wav")
	pcm := make([]byte, 22050)
	for i := range pcm {
		pcm[i] = byte(i * 7)
	}
	data, err := wav.Encode(pcm, 22050, 1)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "missing.yaml")
	apiURL = "http://ward-7.local:5000/api"
	skin = config.SkinNight
	t.Cleanup(func() { configPath, apiURL, skin = "", "", "" })

	require.NoError(t, loadConfig())
	assert.Equal(t, "http://ward-7.local:5000/api", cfg.API.BaseURL)
	assert.Equal(t, config.SkinNight, cfg.UI.Skin)
	assert.Equal(t, 7.0, cfg.Thresholds.DistressAlert)

	skin = "neon"
	assert.Error(t, loadConfig())
}

func TestRunLogs_Formats(t *testing.T) {
	backend := setupCLI(t, 6)
	records := backend.Records()

	output := captureOutput(t, func() {
		require.NoError(t, runLogs(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "Event ID")
	assert.Contains(t, output, records[0].ID.String())

	logsFormat = "json"
	output = captureOutput(t, func() {
		require.NoError(t, runLogs(&cobra.Command{}, nil))
	})
	var decoded []model.LogEntry
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))
	assert.Len(t, decoded, len(records))

	logsFormat = "csv"
	logsLimit = 2
	output = captureOutput(t, func() {
		require.NoError(t, runLogs(&cobra.Command{}, nil))
	})
	rows, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "event_id", rows[0][0])
}

func TestRunLogs_Empty(t *testing.T) {
	setupCLI(t, 0)

	output := captureOutput(t, func() {
		require.NoError(t, runLogs(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "No records found")
}

func TestRunLogs_Urgent(t *testing.T) {
	backend := setupCLI(t, 20)
	logsFormat = "json"
	logsUrgent = true

	output := captureOutput(t, func() {
		require.NoError(t, runLogs(&cobra.Command{}, nil))
	})
	var decoded []model.LogEntry
	require.NoError(t, json.Unmarshal([]byte(output), &decoded))

	want := 0
	for _, r := range backend.Records() {
		if r.Severity > 7 {
			want++
		}
	}
	assert.Len(t, decoded, want)
	for _, e := range decoded {
		assert.Greater(t, e.Severity, 7.0)
	}
}

func TestWriteLogs_UnknownFormat(t *testing.T) {
	setupCLI(t, 0)
	logsFormat = "xml"
	err := writeLogs(io.Discard, nil, 7)
	assert.ErrorContains(t, err, "unknown format")
}

func TestRunPredict_JSON(t *testing.T) {
	backend := setupCLI(t, 0)
	predictJSON = true
	path := writeClip(t)

	output := captureOutput(t, func() {
		require.NoError(t, runPredict(&cobra.Command{}, []string{path}))
	})

	var res model.PredictionResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.False(t, res.Failed())
	assert.NotEmpty(t, res.Cause)
	require.Len(t, backend.Records(), 1)
	assert.Equal(t, backend.Records()[0].ID, res.ID)
}

func TestRunPredict_RejectsNonWAV(t *testing.T) {
	setupCLI(t, 0)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	err := runPredict(&cobra.Command{}, []string{path})
	assert.ErrorIs(t, err, wav.ErrNotWAV)
}

func TestRunPredict_Offline(t *testing.T) {
	setupCLI(t, 0)
	predictJSON = true
	// nothing listens on a closed test server
	dead := httptest.NewServer(nil)
	dead.Close()
	cfg.API.BaseURL = dead.URL + "/api"

	var err error
	output := captureOutput(t, func() {
		err = runPredict(&cobra.Command{}, []string{writeClip(t)})
	})
	assert.Error(t, err)
	assert.Contains(t, output, model.CauseOffline)
}

func TestShowStatus(t *testing.T) {
	setupCLI(t, 0)

	output := captureOutput(t, func() {
		require.NoError(t, showStatus(&cobra.Command{}, nil))
	})
	assert.Contains(t, output, "Backend is running")
	assert.Contains(t, output, demo.ServiceName)
}

func TestSubmitFile(t *testing.T) {
	backend := setupCLI(t, 0)
	submit := submitFile(newSession())

	output := captureOutput(t, func() {
		require.NoError(t, submit(context.Background(), writeClip(t)))
	})
	require.Len(t, backend.Records(), 1)
	assert.Contains(t, output, backend.Records()[0].ID.String())
	assert.Contains(t, output, "cry.wav")
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}
