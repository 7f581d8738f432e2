package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"testing"
	"time"

	"cry2care/internal/wav"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helperRecorder runs this test binary as the recorder, in the given mode.
func helperRecorder(t *testing.T, mode string) *ExecRecorder {
	t.Helper()
	r := NewExecRecorder("arecord", "", 8000, nil)
	r.lookPath = func(file string) (string, error) { return file, nil }
	r.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", mode, name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "CRY2CARE_WANT_HELPER_PROCESS=1")
		return cmd
	}
	return r
}

// TestHelperProcess is not a real test; it stands in for an audio recorder.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("CRY2CARE_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	mode := args[1]

	switch mode {
	case "stream":
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		// 4 samples of PCM16, repeated until interrupted.
		chunk := []byte{0x00, 0x40, 0x00, 0xC0, 0xFF, 0x7F, 0x00, 0x00}
		for {
			os.Stdout.Write(chunk)
			select {
			case <-sig:
				os.Exit(0)
			case <-time.After(10 * time.Millisecond):
			}
		}
	case "denied":
		fmt.Fprintln(os.Stderr, "arecord: main: audio open error: Device or resource busy")
		os.Exit(1)
	}
	os.Exit(2)
}

func TestRecordProducesWAV(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interrupt delivery differs on Windows")
	}
	r := helperRecorder(t, "stream")

	c, err := r.Start(context.Background())
	require.NoError(t, err)

	ec := c.(*execCapture)
	require.Eventually(t, func() bool { return ec.Len() >= 16 }, 5*time.Second, 10*time.Millisecond)

	data, err := c.Stop()
	require.NoError(t, err)

	info, err := wav.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 8000, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.GreaterOrEqual(t, info.DataSize, 16)

	again, err := c.Stop()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestRecordDeviceFailure(t *testing.T) {
	r := helperRecorder(t, "denied")

	c, err := r.Start(context.Background())
	require.NoError(t, err)

	_, err = c.Stop()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMicrophoneUnavailable))
	assert.Contains(t, err.Error(), "audio open error")
}

func TestRecordMissingTool(t *testing.T) {
	r := NewExecRecorder("sox", "", 0, nil)
	r.lookPath = func(file string) (string, error) { return "", exec.ErrNotFound }

	assert.False(t, r.Available())
	_, err := r.Start(context.Background())
	assert.ErrorIs(t, err, ErrMicrophoneUnavailable)
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name   string
		tool   string
		device string
		want   []string
	}{
		{
			name: "arecord default device",
			tool: "arecord",
			want: []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", "16000", "-"},
		},
		{
			name:   "arecord explicit device",
			tool:   "arecord",
			device: "hw:1,0",
			want:   []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", "16000", "-D", "hw:1,0", "-"},
		},
		{
			name: "sox default device",
			tool: "sox",
			want: []string{"-q", "-d", "-t", "raw", "-b", "16", "-e", "signed-integer", "-c", "1", "-r", "16000", "-"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewExecRecorder(tt.tool, tt.device, 16000, nil)
			got, err := r.Args()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("ffmpeg emits raw s16le", func(t *testing.T) {
		got, err := NewExecRecorder("ffmpeg", "", 16000, nil).Args()
		require.NoError(t, err)
		assert.Equal(t, []string{"-ac", "1", "-ar", "16000", "-f", "s16le", "-"}, got[len(got)-7:])
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := NewExecRecorder("parecord", "", 16000, nil).Args()
		assert.Error(t, err)
	})
}
