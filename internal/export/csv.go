// Package export writes the history list in shareable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cry2care/internal/model"
	"cry2care/internal/triage"
)

// Header is the CSV column order.
var Header = []string{"event_id", "date", "time", "cause", "severity", "confidence_pct", "rms", "sc", "zcr", "status", "urgent"}

// WriteCSV writes entries as CSV with a header row. threshold marks the
// urgent column.
func WriteCSV(w io.Writer, entries []model.LogEntry, threshold float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.ID.String(),
			e.Date,
			e.Time,
			e.Cause,
			formatFloat(e.Severity),
			formatFloat(triage.ConfidencePercent(e.Confidence)),
			formatFloat(e.RMS),
			formatFloat(e.SC),
			formatFloat(e.ZCR),
			e.Status,
			strconv.FormatBool(triage.IsUrgent(e.Severity, threshold)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []model.LogEntry) error {
	if entries == nil {
		entries = []model.LogEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// SaveCSV writes entries to a timestamped file in dir and returns its path.
func SaveCSV(dir string, entries []model.LogEntry, threshold float64, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("cry2care_logs_%s.csv", now.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if err := WriteCSV(f, entries, threshold); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
