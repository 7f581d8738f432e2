package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDAcceptsStringAndNumber(t *testing.T) {
	var entries []LogEntry
	body := `[{"id":"EVT-004","cause":"hungry"},{"id":12,"cause":"tired"},{"id":null}]`
	require.NoError(t, json.Unmarshal([]byte(body), &entries))
	require.Len(t, entries, 3)

	assert.Equal(t, EventID("EVT-004"), entries[0].ID)
	assert.Equal(t, EventID("12"), entries[1].ID)
	assert.Equal(t, EventID(""), entries[2].ID)
}

func TestPredictionResultDecodesBackendShape(t *testing.T) {
	body := `{"cause":"belly_pain","confidence":0.95,"severity":8.2,"status":"success",
		"id":"EVT-010","vitals":{"rms":0.12,"zcr":0.14,"sc":2150.5}}`

	var r PredictionResult
	require.NoError(t, json.Unmarshal([]byte(body), &r))

	assert.False(t, r.Failed())
	want := LogEntry{
		ID:         "EVT-010",
		Cause:      "belly_pain",
		Severity:   8.2,
		Confidence: 0.95,
		RMS:        0.12,
		ZCR:        0.14,
		SC:         2150.5,
		Status:     StatusSuccess,
	}
	if diff := cmp.Diff(want, r.Entry()); diff != "" {
		t.Errorf("Entry() mismatch (-want +got):\n%s", diff)
	}
}

func TestNullNumbersDecodeAsZero(t *testing.T) {
	var e LogEntry
	require.NoError(t, json.Unmarshal([]byte(`{"cause":"x","confidence":null,"severity":null}`), &e))
	assert.Zero(t, e.Confidence)
	assert.Zero(t, e.Severity)
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name  string
		got   PredictionResult
		cause string
	}{
		{"offline", Offline(), CauseOffline},
		{"no input", NoInput(), CauseNoInput},
		{"microphone", MicrophoneDenied(), CauseSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.got.Failed())
			assert.Equal(t, tt.cause, tt.got.Cause)
			assert.NotEmpty(t, tt.got.Error)
		})
	}
}

func TestBackendErrorBodyIsFailure(t *testing.T) {
	var r PredictionResult
	require.NoError(t, json.Unmarshal([]byte(`{"error":"Models not loaded correctly"}`), &r))
	assert.True(t, r.Failed())
}

func TestFormatEventNumber(t *testing.T) {
	assert.Equal(t, EventID("EVT-007"), FormatEventNumber(7))
	assert.Equal(t, EventID("EVT-1234"), FormatEventNumber(1234))
}
