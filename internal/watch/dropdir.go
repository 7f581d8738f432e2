// Package watch submits WAV files that appear in a drop folder, so that a
// bedside recorder writing into a shared directory feeds the classifier.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Defaults for NewDropWatcher.
const (
	DefaultSettle      = 500 * time.Millisecond
	DefaultConcurrency = 2
)

// SubmitFunc handles one settled file.
type SubmitFunc func(ctx context.Context, path string) error

// Stats tracks watcher activity.
type Stats struct {
	FilesSeen     int
	Submitted     int
	Failed        int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// Options configures a DropWatcher.
type Options struct {
	Settle      time.Duration // quiet period before a file is considered complete
	Concurrency int64         // max submissions in flight
	Existing    bool          // also submit .wav files already in the folder
	Logger      *zap.Logger
}

// DropWatcher watches one directory for new or rewritten .wav files.
type DropWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	submit   SubmitFunc
	settle   time.Duration
	existing bool
	pending  map[string]time.Time
	sem      *semaphore.Weighted
	inflight sync.WaitGroup
	logger   *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	closed   sync.Once
	stats    Stats
}

// NewDropWatcher creates a watcher for dir. Nothing happens until Start.
func NewDropWatcher(dir string, submit SubmitFunc, opts Options) (*DropWatcher, error) {
	if submit == nil {
		return nil, errors.New("watch: submit func required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("watch: " + dir + " is not a directory")
	}

	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &DropWatcher{
		watcher:  w,
		dir:      dir,
		submit:   submit,
		settle:   opts.Settle,
		existing: opts.Existing,
		pending:  make(map[string]time.Time),
		sem:      semaphore.NewWeighted(opts.Concurrency),
		logger:   opts.Logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking.
func (dw *DropWatcher) Start(ctx context.Context) error {
	dw.mu.Lock()
	if dw.running {
		dw.mu.Unlock()
		return nil
	}
	dw.mu.Unlock()

	if err := dw.watcher.Add(dw.dir); err != nil {
		return err
	}

	var initial []string
	if dw.existing {
		entries, err := os.ReadDir(dw.dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.IsDir() && isCandidate(e.Name()) {
				initial = append(initial, filepath.Join(dw.dir, e.Name()))
			}
		}
	}

	dw.mu.Lock()
	now := time.Now()
	for _, path := range initial {
		dw.pending[path] = now
		dw.stats.FilesSeen++
	}
	dw.running = true
	dw.mu.Unlock()

	dw.logger.Info("watching drop folder", zap.String("dir", dw.dir), zap.Int("existing", len(initial)))
	go dw.run(ctx)
	return nil
}

// Stop ends the watch and waits for in-flight submissions. It also releases
// the watcher when Start was never called or failed.
func (dw *DropWatcher) Stop() {
	dw.mu.Lock()
	if !dw.running {
		dw.mu.Unlock()
		dw.closeWatcher()
		return
	}
	dw.running = false
	dw.mu.Unlock()

	close(dw.stopCh)
	<-dw.doneCh
	dw.inflight.Wait()

	dw.closeWatcher()
	dw.logger.Info("drop folder watch stopped")
}

func (dw *DropWatcher) closeWatcher() {
	dw.closed.Do(func() {
		if err := dw.watcher.Close(); err != nil {
			dw.logger.Warn("error closing watcher", zap.Error(err))
		}
	})
}

// Done is closed when the event loop exits.
func (dw *DropWatcher) Done() <-chan struct{} {
	return dw.doneCh
}

// Stats returns a copy of the activity counters.
func (dw *DropWatcher) Stats() Stats {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.stats
}

func (dw *DropWatcher) run(ctx context.Context) {
	defer close(dw.doneCh)

	tick := dw.settle / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-dw.stopCh:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handleEvent(event)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Warn("watcher error", zap.Error(err))
			dw.mu.Lock()
			dw.stats.Errors++
			dw.mu.Unlock()

		case <-ticker.C:
			dw.processSettled(ctx)
		}
	}
}

func (dw *DropWatcher) handleEvent(event fsnotify.Event) {
	if !isCandidate(filepath.Base(event.Name)) {
		return
	}

	dw.mu.Lock()
	defer dw.mu.Unlock()

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if _, seen := dw.pending[event.Name]; !seen {
			dw.stats.FilesSeen++
		}
		dw.pending[event.Name] = time.Now()
		dw.stats.LastEventTime = time.Now()
		dw.stats.LastEventPath = event.Name
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(dw.pending, event.Name)
	}
}

// processSettled submits files whose last event is older than the settle window.
func (dw *DropWatcher) processSettled(ctx context.Context) {
	dw.mu.Lock()
	now := time.Now()
	var ready []string
	for path, at := range dw.pending {
		if now.Sub(at) >= dw.settle {
			ready = append(ready, path)
			delete(dw.pending, path)
		}
	}
	dw.mu.Unlock()
	sort.Strings(ready)

	for _, path := range ready {
		if err := dw.sem.Acquire(ctx, 1); err != nil {
			return
		}
		dw.inflight.Add(1)
		go func(path string) {
			defer dw.inflight.Done()
			defer dw.sem.Release(1)
			dw.process(ctx, path)
		}(path)
	}
}

func (dw *DropWatcher) process(ctx context.Context, path string) {
	log := dw.logger.With(zap.String("path", path))
	if _, err := os.Stat(path); err != nil {
		log.Debug("file vanished before submission", zap.Error(err))
		return
	}

	log.Info("submitting dropped file")
	err := dw.submit(ctx, path)

	dw.mu.Lock()
	defer dw.mu.Unlock()
	if err != nil {
		dw.stats.Failed++
		log.Warn("submission failed", zap.Error(err))
		return
	}
	dw.stats.Submitted++
}

// isCandidate accepts visible .wav files; recorders often write to dot-prefixed temporaries.
func isCandidate(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".wav")
}
