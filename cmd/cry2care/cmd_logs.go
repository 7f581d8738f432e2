package main

import (
	"fmt"
	"io"
	"os"

	"cry2care/cmd/cry2care/ui"
	"cry2care/internal/export"
	"cry2care/internal/model"
	"cry2care/internal/triage"

	"github.com/spf13/cobra"
)

var (
	logsFormat string
	logsLimit  int
	logsUrgent bool
)

// logsCmd prints the backend's event history
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the classified event history",
	Long: `Fetches GET /logs from the backend (newest first) and prints it as a
table, JSON or CSV. CSV output matches the dashboard's export.

Examples:
  cry2care logs
  cry2care logs --urgent
  cry2care logs --format csv > ward.csv`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVarP(&logsFormat, "format", "f", "table", "Output format: table, json, csv")
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "Show at most n entries (0 = all)")
	logsCmd.Flags().BoolVar(&logsUrgent, "urgent", false, "Only entries above the distress threshold")
}

func runLogs(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	entries, err := newClient().FetchLogs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch logs: %w", err)
	}

	threshold := cfg.Thresholds.DistressAlert
	if logsUrgent {
		entries = triage.Urgent(entries, threshold, 0)
	}
	if logsLimit > 0 && len(entries) > logsLimit {
		entries = entries[:logsLimit]
	}

	return writeLogs(os.Stdout, entries, threshold)
}

func writeLogs(w io.Writer, entries []model.LogEntry, threshold float64) error {
	switch logsFormat {
	case "json":
		return export.WriteJSON(w, entries)
	case "csv":
		return export.WriteCSV(w, entries, threshold)
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q (valid: table, json, csv)", logsFormat)
	}

	table := ui.NewSimpleTable("", []string{"Event ID", "Timestamp", "Cause", "Vitals (RMS/SC)", "Severity", "Confidence"})
	table.Empty = ui.EmptyHistoryText
	for _, e := range entries {
		stamp := e.Time
		if e.Date != "" {
			stamp = e.Date + " " + e.Time
		}
		sev := triage.FormatSeverity(e.Severity)
		if triage.IsUrgent(e.Severity, threshold) {
			sev = "● " + sev
		}
		table.AddRow(e.ID.String(), stamp, e.Cause,
			fmt.Sprintf("%.3f / %.0f", e.RMS, e.SC), sev, triage.FormatConfidence(e.Confidence, 0))
	}
	_, err := fmt.Fprint(w, table.View(ui.StylesFor(cfg.UI.Skin)))
	return err
}
