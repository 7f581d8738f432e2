// Package pipeline implements the capture-and-classify workflow shared by the
// dashboard and the one-shot commands: select or record audio, submit it,
// display the newest result and refresh the history list.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cry2care/internal/api"
	"cry2care/internal/capture"
	"cry2care/internal/config"
	"cry2care/internal/model"
	"cry2care/internal/wav"

	"go.uber.org/zap"
)

// ErrNoInput is returned when analysis is requested with nothing selected.
var ErrNoInput = errors.New("no audio selected")

// RecordingName is the filename given to microphone captures.
const RecordingName = "recording.wav"

// Progress steps reported during a submission.
const (
	ProgressSent     = 10
	ProgressReceived = 60
	ProgressDone     = 100
)

// Backend is the subset of the API client the pipeline needs.
type Backend interface {
	FetchLogs(ctx context.Context) ([]model.LogEntry, error)
	Predict(ctx context.Context, audio api.Audio) (model.PredictionResult, error)
}

// State is a point-in-time copy of the session for rendering.
type State struct {
	Selected  string // filename of the selected clip, "" when none
	Result    *model.PredictionResult
	History   []model.LogEntry
	Busy      bool
	Recording bool
}

// Session holds the in-memory state of one dashboard (or command) run.
type Session struct {
	backend  Backend
	recorder capture.Recorder
	logger   *zap.Logger
	window   time.Duration
	after    func(time.Duration) <-chan time.Time

	mu        sync.Mutex
	selected  *api.Audio
	result    *model.PredictionResult
	resultSeq uint64
	nextSeq   uint64
	history   []model.LogEntry
	inflight  int
	recording bool
}

// Option configures a Session.
type Option func(*Session)

// WithRecorder sets the microphone recorder. Without one, Record fails with
// capture.ErrMicrophoneUnavailable.
func WithRecorder(r capture.Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session against backend.
func NewSession(backend Backend, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		logger:  zap.NewNop(),
		window:  config.RecordWindow,
		after:   time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadFile reads a WAV file from disk.
func LoadFile(path string) (api.Audio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.Audio{}, fmt.Errorf("failed to read audio: %w", err)
	}
	if !wav.IsWAV(data) {
		return api.Audio{}, fmt.Errorf("%s: %w", filepath.Base(path), wav.ErrNotWAV)
	}
	return api.Audio{Filename: filepath.Base(path), Data: data}, nil
}

// Select makes audio the clip Analyze submits. nil clears the selection.
func (s *Session) Select(audio *api.Audio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if audio == nil {
		s.selected = nil
		return
	}
	cp := *audio
	s.selected = &cp
}

// Selected returns the selected clip, if any.
func (s *Session) Selected() (api.Audio, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return api.Audio{}, false
	}
	return *s.selected, true
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Busy:      s.inflight > 0,
		Recording: s.recording,
		History:   append([]model.LogEntry(nil), s.history...),
	}
	if s.selected != nil {
		st.Selected = s.selected.Filename
	}
	if s.result != nil {
		r := *s.result
		st.Result = &r
	}
	return st
}

// History returns the cached history list, newest first.
func (s *Session) History() []model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.LogEntry(nil), s.history...)
}

// RefreshHistory re-fetches the event list. On failure the cached list is kept.
func (s *Session) RefreshHistory(ctx context.Context) ([]model.LogEntry, error) {
	entries, err := s.backend.FetchLogs(ctx)
	if err != nil {
		s.logger.Warn("history refresh failed", zap.Error(err))
		return s.History(), err
	}

	s.mu.Lock()
	s.history = entries
	s.mu.Unlock()
	s.logger.Debug("history refreshed", zap.Int("entries", len(entries)))
	return append([]model.LogEntry(nil), entries...), nil
}

// Analyze submits the selected clip. With nothing selected it displays the
// no-input placeholder and returns ErrNoInput without touching the network.
func (s *Session) Analyze(ctx context.Context, progress func(int)) (model.PredictionResult, error) {
	audio, ok := s.Selected()
	if !ok {
		res := model.NoInput()
		s.show(s.reserve(), res)
		return res, ErrNoInput
	}
	return s.Submit(ctx, audio, progress)
}

// Submit clears the displayed result, uploads audio, displays the result
// unless a newer submission has started since, and refreshes history whenever
// the backend answered. Transport failures display the offline placeholder.
func (s *Session) Submit(ctx context.Context, audio api.Audio, progress func(int)) (model.PredictionResult, error) {
	if progress == nil {
		progress = func(int) {}
	}

	seq := s.reserve()
	s.mu.Lock()
	s.inflight++
	s.result = nil
	s.resultSeq = seq
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	log := s.logger.With(zap.Uint64("seq", seq), zap.String("file", audio.Filename))
	log.Info("submitting audio", zap.Int("bytes", len(audio.Data)))
	progress(ProgressSent)

	res, err := s.backend.Predict(ctx, audio)
	progress(ProgressReceived)

	answered := true
	var apiErr *api.APIError
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		log.Info("submission abandoned", zap.Error(err))
		return model.PredictionResult{}, err
	case errors.As(err, &apiErr):
		log.Warn("backend rejected audio", zap.Int("status", apiErr.StatusCode))
		if apiErr.Result != nil {
			res = *apiErr.Result
		} else {
			res = model.Offline()
		}
	default:
		log.Warn("backend unreachable", zap.Error(err))
		res = model.Offline()
		answered = false
	}

	s.show(seq, res)
	progress(ProgressDone)

	if answered {
		if _, herr := s.RefreshHistory(ctx); herr != nil {
			log.Warn("history refresh after prediction failed", zap.Error(herr))
		}
	}
	return res, err
}

// Record captures from the microphone until stop is closed, ctx ends, or the
// fixed window elapses. The capture becomes the selected clip.
func (s *Session) Record(ctx context.Context, stop <-chan struct{}) (api.Audio, error) {
	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return api.Audio{}, capture.ErrAlreadyRecording
	}
	s.recording = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.recording = false
		s.mu.Unlock()
	}()

	if s.recorder == nil {
		s.show(s.reserve(), model.MicrophoneDenied())
		return api.Audio{}, capture.ErrMicrophoneUnavailable
	}

	c, err := s.recorder.Start(ctx)
	if err != nil {
		s.logger.Warn("recorder failed to start", zap.Error(err))
		s.show(s.reserve(), model.MicrophoneDenied())
		return api.Audio{}, err
	}

	reason := "window"
	select {
	case <-s.after(s.window):
	case <-stop:
		reason = "manual"
	case <-ctx.Done():
		reason = "cancelled"
	}

	data, err := c.Stop()
	if err != nil {
		s.logger.Warn("recording failed", zap.String("reason", reason), zap.Error(err))
		s.show(s.reserve(), model.MicrophoneDenied())
		return api.Audio{}, err
	}
	if ctx.Err() != nil {
		return api.Audio{}, ctx.Err()
	}

	s.logger.Info("recording complete", zap.String("reason", reason), zap.Int("bytes", len(data)))
	audio := api.Audio{Filename: RecordingName, Data: data}
	s.Select(&audio)
	return audio, nil
}

// CaptureAndAnalyze records and then submits the capture.
func (s *Session) CaptureAndAnalyze(ctx context.Context, stop <-chan struct{}, progress func(int)) (model.PredictionResult, error) {
	audio, err := s.Record(ctx, stop)
	if err != nil {
		s.mu.Lock()
		var res model.PredictionResult
		if s.result != nil {
			res = *s.result
		}
		s.mu.Unlock()
		return res, err
	}
	return s.Submit(ctx, audio, progress)
}

// reserve allocates the next display sequence number.
func (s *Session) reserve() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// show displays res unless a later submission has started or been shown.
func (s *Session) show(seq uint64, res model.PredictionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.resultSeq {
		s.logger.Debug("dropping stale result", zap.Uint64("seq", seq), zap.Uint64("shown", s.resultSeq))
		return false
	}
	s.resultSeq = seq
	r := res
	s.result = &r
	return true
}
