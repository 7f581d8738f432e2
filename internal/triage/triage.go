// Package triage derives the dashboard's display figures from backend records:
// the urgent list, the severity trend and the confidence percentage.
package triage

import (
	"fmt"
	"math"
	"strings"

	"cry2care/internal/model"
)

const (
	// DefaultThreshold is the severity above which an event is urgent.
	DefaultThreshold = 7.0

	// FallbackSeverity is shown before any result or history exists.
	FallbackSeverity = 3.4

	// AlertListLimit caps the urgent list on the monitor view.
	AlertListLimit = 5

	// TrendWindow is the number of newest entries plotted on the trend chart.
	TrendWindow = 8

	// HighFrequencyZCR marks a shrill cry pattern.
	HighFrequencyZCR = 0.1
)

// Level classifies an entry for badge colouring.
type Level string

const (
	LevelNormal Level = "normal"
	LevelAlert  Level = "alert"
	LevelWarn   Level = "warn"
	LevelInfo   Level = "info"
)

// IsUrgent reports whether severity exceeds the threshold. Equality is not urgent.
func IsUrgent(severity, threshold float64) bool {
	return severity > threshold
}

// Urgent returns entries above threshold in their original order, at most limit
// of them. A limit <= 0 returns all.
func Urgent(entries []model.LogEntry, threshold float64, limit int) []model.LogEntry {
	out := make([]model.LogEntry, 0)
	for _, e := range entries {
		if !IsUrgent(e.Severity, threshold) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// AnyUrgent reports whether at least one entry is urgent.
func AnyUrgent(entries []model.LogEntry, threshold float64) bool {
	for _, e := range entries {
		if IsUrgent(e.Severity, threshold) {
			return true
		}
	}
	return false
}

// Point is one sample on the severity trend chart.
type Point struct {
	Label    string
	Severity float64
}

// Trend takes the n newest entries of a newest-first list and returns them
// oldest first.
func Trend(entries []model.LogEntry, n int) []Point {
	if n > len(entries) {
		n = len(entries)
	}
	if n < 0 {
		n = 0
	}
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		e := entries[n-1-i]
		label := e.Time
		if label == "" {
			label = e.ID.String()
		}
		points[i] = Point{Label: label, Severity: e.Severity}
	}
	return points
}

// LatestSeverity picks the figure for the monitor's severity tile: the current
// result, else the newest history entry, else FallbackSeverity. A zero severity
// counts as missing.
func LatestSeverity(result *model.PredictionResult, history []model.LogEntry) float64 {
	if result != nil && !result.Failed() && result.Severity != 0 {
		return result.Severity
	}
	if len(history) > 0 && history[0].Severity != 0 {
		return history[0].Severity
	}
	return FallbackSeverity
}

// ConfidencePercent maps a 0-1 confidence to 0-100. Non-finite input is 0.
func ConfidencePercent(c float64) float64 {
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
		return 0
	}
	if c >= 1 {
		return 100
	}
	return c * 100
}

// FormatConfidence renders a confidence as "94.0%" with the given precision.
func FormatConfidence(c float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f%%", decimals, ConfidencePercent(c))
}

// FormatSeverity renders a severity with one decimal, trimming a trailing ".0".
func FormatSeverity(s float64) string {
	out := fmt.Sprintf("%.1f", s)
	return strings.TrimSuffix(out, ".0")
}

// LevelOf maps an entry to its badge level.
func LevelOf(e model.LogEntry, threshold float64) Level {
	if IsUrgent(e.Severity, threshold) {
		return LevelAlert
	}
	return LevelInfo
}

// Insight returns a one-line reading of the zero-crossing rate, or "" when the
// backend sent none.
func Insight(zcr float64) string {
	switch {
	case zcr <= 0:
		return ""
	case zcr > HighFrequencyZCR:
		return "High frequency detected. Possible distress/pain."
	default:
		return "Low frequency detected. Pattern looks like a standard cry."
	}
}
