package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cry2care/internal/logging"
	"cry2care/internal/pipeline"
	"cry2care/internal/triage"
	"cry2care/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchSettle      time.Duration
	watchConcurrency int64
	watchExisting    bool
)

// watchCmd classifies WAV files dropped into a folder
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Classify every WAV file written into a folder",
	Long: `Watches a directory and submits each new or rewritten .wav file once it
has stopped changing. Useful when a bedside recorder writes clips to a
shared folder. Stops on Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "Quiet period before a file is submitted")
	watchCmd.Flags().Int64Var(&watchConcurrency, "concurrency", watch.DefaultConcurrency, "Max submissions in flight")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Also submit files already in the folder")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	session := newSession()
	dw, err := watch.NewDropWatcher(args[0], submitFile(session), watch.Options{
		Settle:      watchSettle,
		Concurrency: watchConcurrency,
		Existing:    watchExisting,
		Logger:      logging.Get(logging.CategoryWatch),
	})
	if err != nil {
		return err
	}
	if err := dw.Start(ctx); err != nil {
		dw.Stop()
		return err
	}
	fmt.Printf("Watching %s for .wav files (Ctrl+C to stop)\n", args[0])

	select {
	case <-ctx.Done():
	case <-dw.Done():
	}
	dw.Stop()

	st := dw.Stats()
	fmt.Printf("Submitted %d, failed %d\n", st.Submitted, st.Failed)
	return nil
}

// submitFile classifies one dropped file and prints a result line.
func submitFile(session *pipeline.Session) watch.SubmitFunc {
	var mu sync.Mutex
	return func(ctx context.Context, path string) error {
		audio, err := pipeline.LoadFile(path)
		if err != nil {
			return err
		}
		res, err := session.Submit(ctx, audio, nil)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			logger.Warn("submission failed", zap.String("file", audio.Filename), zap.Error(err))
			fmt.Printf("✗ %s: %s\n", audio.Filename, res.Error)
			return err
		}
		if res.Failed() {
			fmt.Printf("✗ %s: %s\n", audio.Filename, res.Error)
			return fmt.Errorf("%s: %s", audio.Filename, res.Error)
		}
		e := res.Entry()
		mark := " "
		if triage.IsUrgent(e.Severity, cfg.Thresholds.DistressAlert) {
			mark = "●"
		}
		fmt.Printf("%s %-8s %-22s %-12s severity %-4s confidence %s\n",
			mark, e.ID, audio.Filename, e.Cause, triage.FormatSeverity(e.Severity), triage.FormatConfidence(e.Confidence, 0))
		return nil
	}
}
