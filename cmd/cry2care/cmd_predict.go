package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cry2care/cmd/cry2care/ui"
	"cry2care/internal/capture"
	"cry2care/internal/config"
	"cry2care/internal/logging"
	"cry2care/internal/model"
	"cry2care/internal/pipeline"
	"cry2care/internal/triage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	predictJSON bool
	recordOut   string
	recordOnly  bool
)

// predictCmd submits a WAV file for classification
var predictCmd = &cobra.Command{
	Use:   "predict [file.wav]",
	Short: "Classify a WAV file",
	Long: `Uploads a WAV file to the backend's /predict endpoint and prints the
detected cause, confidence and severity. The backend logs the event, so it
also appears in 'cry2care logs'.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

// recordCmd captures the microphone for the fixed window and classifies it
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a 5 second clip from the microphone and classify it",
	Long: `Records from the configured capture tool (arecord, ffmpeg or sox) for
5 seconds, or until Enter is pressed, then submits the clip like 'predict'.`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Print the raw result as JSON")
	recordCmd.Flags().BoolVar(&predictJSON, "json", false, "Print the raw result as JSON")
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "", "Also save the capture to this WAV file")
	recordCmd.Flags().BoolVar(&recordOnly, "no-submit", false, "Only record; requires --out")
}

func newSession() *pipeline.Session {
	return pipeline.NewSession(newClient(),
		pipeline.WithRecorder(newRecorder()),
		pipeline.WithLogger(logging.Get(logging.CategoryPipeline)),
	)
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	audio, err := pipeline.LoadFile(args[0])
	if err != nil {
		return err
	}
	logger.Debug("submitting", zap.String("file", audio.Filename), zap.Int("bytes", len(audio.Data)))

	res, err := newSession().Submit(ctx, audio, nil)
	if perr := printResult(res); perr != nil {
		return perr
	}
	return err
}

func runRecord(cmd *cobra.Command, args []string) error {
	if recordOnly && recordOut == "" {
		return errors.New("--no-submit requires --out")
	}
	ctx, cancel := signalContext()
	defer cancel()

	session := newSession()
	stop := make(chan struct{})
	go func() {
		// Enter ends the capture early
		if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err == nil {
			close(stop)
		}
	}()

	fmt.Printf("● Recording for %.0fs (press Enter to stop early)...\n", config.RecordWindow.Seconds())
	audio, err := session.Record(ctx, stop)
	if err != nil {
		if ctx.Err() == nil {
			_ = printResult(model.MicrophoneDenied())
		}
		if errors.Is(err, capture.ErrMicrophoneUnavailable) {
			return fmt.Errorf("%w (is %s installed?)", err, cfg.Capture.Tool)
		}
		return err
	}

	if recordOut != "" {
		if err := os.WriteFile(recordOut, audio.Data, 0644); err != nil {
			return fmt.Errorf("failed to save recording: %w", err)
		}
		fmt.Printf("Saved %s (%d bytes)\n", recordOut, len(audio.Data))
	}
	if recordOnly {
		return nil
	}

	res, err := session.Submit(ctx, audio, nil)
	if perr := printResult(res); perr != nil {
		return perr
	}
	return err
}

// printResult writes res as JSON or as a rendered report.
func printResult(res model.PredictionResult) error {
	if predictJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	renderer, _ := ui.NewRenderer(cfg.UI.Skin == config.SkinNight, 80)
	if res.Failed() {
		fmt.Print(ui.RenderReport(renderer, "Analysis failed", [][2]string{
			{"Cause", res.Cause},
			{"Error", res.Error},
		}))
		return nil
	}

	e := res.Entry()
	threshold := cfg.Thresholds.DistressAlert
	rows := [][2]string{
		{"Event", e.ID.String()},
		{"Cause", e.Cause},
		{"Confidence", triage.FormatConfidence(e.Confidence, 1)},
		{"Severity", triage.FormatSeverity(e.Severity) + " / 10"},
		{"Vitals (RMS/ZCR/SC)", fmt.Sprintf("%.3f / %.3f / %.0f", e.RMS, e.ZCR, e.SC)},
	}
	var notes []string
	if triage.IsUrgent(e.Severity, threshold) {
		notes = append(notes, fmt.Sprintf("ALERT: severity above %s", triage.FormatSeverity(threshold)))
	}
	if insight := triage.Insight(e.ZCR); insight != "" {
		notes = append(notes, insight)
	}
	fmt.Print(ui.RenderReport(renderer, "Analysis result", rows, notes...))
	return nil
}
