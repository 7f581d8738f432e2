// Package capture records microphone audio by driving an external command-line
// recorder (arecord, ffmpeg or sox) that streams raw PCM16 to stdout. The
// stream is framed as WAV when the capture stops.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"cry2care/internal/wav"

	"go.uber.org/zap"
)

// ErrMicrophoneUnavailable means no audio could be captured: the recorder is
// missing, failed to open the device, or produced no samples.
var ErrMicrophoneUnavailable = errors.New("microphone unavailable")

// ErrAlreadyRecording is returned when a capture is started while another is live.
var ErrAlreadyRecording = errors.New("a recording is already in progress")

// stopGrace is how long a recorder gets to flush after an interrupt before it is killed.
const stopGrace = 2 * time.Second

// maxStderr bounds the diagnostic text kept from the recorder.
const maxStderr = 4096

// Recorder starts microphone captures.
type Recorder interface {
	Start(ctx context.Context) (Capture, error)
}

// Capture is one live recording.
type Capture interface {
	// Stop ends the recording and returns it as a WAV file. It is safe to call
	// more than once; later calls return the first result.
	Stop() ([]byte, error)
}

// ExecRecorder runs an external recorder process per capture.
type ExecRecorder struct {
	Tool       string
	Device     string
	SampleRate int

	logger *zap.Logger

	// overridable for tests
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
	lookPath func(file string) (string, error)
}

// NewExecRecorder creates a recorder for tool ("arecord", "ffmpeg" or "sox").
func NewExecRecorder(tool, device string, sampleRate int, logger *zap.Logger) *ExecRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sampleRate <= 0 {
		sampleRate = 22050
	}
	return &ExecRecorder{
		Tool:       tool,
		Device:     device,
		SampleRate: sampleRate,
		logger:     logger,
		command:    exec.CommandContext,
		lookPath:   exec.LookPath,
	}
}

// Available reports whether the recorder binary is on PATH.
func (r *ExecRecorder) Available() bool {
	_, err := r.lookPath(r.Tool)
	return err == nil
}

// Args returns the command line used for the configured tool. Every variant
// writes mono signed 16-bit little-endian PCM to stdout.
func (r *ExecRecorder) Args() ([]string, error) {
	rate := strconv.Itoa(r.SampleRate)
	switch r.Tool {
	case "arecord", "":
		args := []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", rate}
		if r.Device != "" {
			args = append(args, "-D", r.Device)
		}
		return append(args, "-"), nil
	case "ffmpeg":
		inputFormat, device := ffmpegInput(r.Device)
		return []string{
			"-hide_banner", "-loglevel", "error", "-nostdin",
			"-f", inputFormat, "-i", device,
			"-ac", "1", "-ar", rate, "-f", "s16le", "-",
		}, nil
	case "sox":
		args := []string{"-q"}
		if r.Device != "" {
			args = append(args, "-t", soxDriver(), r.Device)
		} else {
			args = append(args, "-d")
		}
		return append(args, "-t", "raw", "-b", "16", "-e", "signed-integer", "-c", "1", "-r", rate, "-"), nil
	default:
		return nil, fmt.Errorf("unsupported recorder %q", r.Tool)
	}
}

func ffmpegInput(device string) (string, string) {
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return "avfoundation", device
	case "windows":
		if device == "" {
			device = "audio=default"
		}
		return "dshow", device
	default:
		if device == "" {
			device = "default"
		}
		return "alsa", device
	}
}

func soxDriver() string {
	switch runtime.GOOS {
	case "darwin":
		return "coreaudio"
	case "windows":
		return "waveaudio"
	default:
		return "alsa"
	}
}

// Start launches the recorder. The capture ends when Stop is called or ctx is done.
func (r *ExecRecorder) Start(ctx context.Context) (Capture, error) {
	tool := r.Tool
	if tool == "" {
		tool = "arecord"
	}
	args, err := r.Args()
	if err != nil {
		return nil, err
	}
	path, err := r.lookPath(tool)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrMicrophoneUnavailable, tool, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := r.command(runCtx, path, args...)
	c := &execCapture{
		cmd:        cmd,
		cancel:     cancel,
		sampleRate: r.SampleRate,
		logger:     r.logger,
		done:       make(chan struct{}),
	}
	cmd.Stdout = &c.pcm
	cmd.Stderr = &c.stderr
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = stopGrace

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}
	r.logger.Info("recording started", zap.String("tool", tool), zap.Strings("args", args))

	go func() {
		c.waitErr = cmd.Wait()
		close(c.done)
	}()
	return c, nil
}

type execCapture struct {
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	sampleRate int
	logger     *zap.Logger

	pcm    syncBuffer
	stderr syncBuffer

	done    chan struct{}
	waitErr error

	once   sync.Once
	result []byte
	err    error
}

// Len returns the number of PCM bytes received so far.
func (c *execCapture) Len() int {
	return c.pcm.Len()
}

func (c *execCapture) Stop() ([]byte, error) {
	c.once.Do(func() {
		c.cancel()
		<-c.done

		pcm := c.pcm.Bytes()
		if len(pcm) < 2 {
			msg := strings.TrimSpace(c.stderr.String())
			if msg == "" && c.waitErr != nil {
				msg = c.waitErr.Error()
			}
			c.logger.Warn("recording produced no audio", zap.String("stderr", msg))
			if msg == "" {
				c.err = ErrMicrophoneUnavailable
			} else {
				c.err = fmt.Errorf("%w: %s", ErrMicrophoneUnavailable, msg)
			}
			return
		}
		c.result, c.err = wav.Encode(pcm, c.sampleRate, 1)
		if c.err != nil {
			c.logger.Warn("framing recording failed", zap.Error(c.err))
			return
		}
		c.logger.Info("recording stopped", zap.Int("pcm_bytes", len(pcm)))
	})
	return c.result, c.err
}

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	if len(s) > maxStderr {
		s = s[:maxStderr]
	}
	return s
}
