// Package model holds the record shapes exchanged with the classification backend.
// The backend owns these records; the client only reads them and keeps the most
// recent list in memory.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Placeholder causes used for results the client produces itself.
const (
	CauseOffline = "OFFLINE"
	CauseNoInput = "NO INPUT"
	CauseSystem  = "SYSTEM"
)

// Status values reported by the backend.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusProcessed = "Processed"
)

// EventID is the backend's event identifier ("EVT-007"). Older backends send a
// bare integer, so both forms decode.
type EventID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *EventID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EventID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = EventID(n.String())
	return nil
}

// String returns the identifier as text.
func (id EventID) String() string { return string(id) }

// LogEntry is one classified acoustic event.
type LogEntry struct {
	ID         EventID `json:"id"`
	Time       string  `json:"time"`
	Date       string  `json:"date,omitempty"`
	Cause      string  `json:"cause"`
	Severity   float64 `json:"severity"`   // 0-10
	Confidence float64 `json:"confidence"` // 0-1
	RMS        float64 `json:"rms"`
	SC         float64 `json:"sc"`
	ZCR        float64 `json:"zcr"`
	Status     string  `json:"status,omitempty"`
}

// Vitals is the nested acoustic summary some backends attach to a prediction.
type Vitals struct {
	RMS float64 `json:"rms"`
	ZCR float64 `json:"zcr"`
	SC  float64 `json:"sc"`
}

// PredictionResult is the response to a single /predict call, or a placeholder
// produced locally when the call could not be made.
type PredictionResult struct {
	LogEntry
	Error  string  `json:"error,omitempty"`
	Vitals *Vitals `json:"vitals,omitempty"`
}

// Failed reports whether the result describes a failure rather than a classification.
func (r PredictionResult) Failed() bool {
	return r.Error != "" || strings.EqualFold(r.Status, StatusError)
}

// Entry flattens the result into a LogEntry, filling acoustic fields from the
// nested vitals when the top-level ones are absent.
func (r PredictionResult) Entry() LogEntry {
	e := r.LogEntry
	if r.Vitals != nil {
		if e.RMS == 0 {
			e.RMS = r.Vitals.RMS
		}
		if e.ZCR == 0 {
			e.ZCR = r.Vitals.ZCR
		}
		if e.SC == 0 {
			e.SC = r.Vitals.SC
		}
	}
	return e
}

// Placeholder builds a locally generated failure result.
func Placeholder(cause, message string) PredictionResult {
	return PredictionResult{
		LogEntry: LogEntry{Cause: cause, Status: StatusError},
		Error:    message,
	}
}

// Placeholder messages shown inline when an operation cannot complete.
const (
	MsgOffline    = "Backend Connection Failed. Ensure the backend is running."
	MsgNoInput    = "Please select a WAV file first"
	MsgMicrophone = "Microphone Access Denied"
)

// Offline is the static placeholder shown when the backend cannot be reached.
func Offline() PredictionResult { return Placeholder(CauseOffline, MsgOffline) }

// NoInput is shown when analysis is triggered without a selected file.
func NoInput() PredictionResult { return Placeholder(CauseNoInput, MsgNoInput) }

// MicrophoneDenied is shown when the recorder could not be started.
func MicrophoneDenied() PredictionResult { return Placeholder(CauseSystem, MsgMicrophone) }

// FormatEventNumber renders a numeric record id the way the backend does.
func FormatEventNumber(n int) EventID {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return EventID("EVT-" + s)
}
