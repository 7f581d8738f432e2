package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// HelpMarkdown is the key reference shown by '?'.
const HelpMarkdown = `# cry2care

## Views

| Key | Action |
|-----|--------|
| 1 | Patient monitor |
| 2 | Diagnostic engine |
| 3 | Data logs |
| 4 | System config |
| tab / shift+tab | Next / previous view |

## Diagnostics

| Key | Action |
|-----|--------|
| o | Open a WAV file |
| space | Start recording (stops by itself after 5 s), press again to stop early |
| a | Analyze the selected clip |

## Logs and settings

| Key | Action |
|-----|--------|
| r | Refresh history from the backend |
| e | Export history to CSV |
| enter | Edit settings (on the config view) |
| s | Switch skin |
| ? | Toggle this help |
| q / ctrl+c | Quit |

Severity above the alert threshold lights the bell in the header.
`

// NewRenderer returns a markdown renderer for the given skin.
func NewRenderer(dark bool, width int) (*glamour.TermRenderer, error) {
	if width <= 0 {
		width = 80
	}
	style := glamour.WithStylePath("light")
	if dark {
		style = glamour.WithStylePath("dark")
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
}

// RenderHelp renders HelpMarkdown, falling back to the raw text if glamour fails.
func RenderHelp(r *glamour.TermRenderer) string {
	if r == nil {
		return HelpMarkdown
	}
	out, err := r.Render(HelpMarkdown)
	if err != nil {
		return HelpMarkdown
	}
	return strings.TrimRight(out, "\n")
}

// RenderReport renders a short markdown report, used by the predict command.
func RenderReport(r *glamour.TermRenderer, title string, rows [][2]string, notes ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n| Field | Value |\n|---|---|\n", title)
	for _, row := range rows {
		fmt.Fprintf(&sb, "| %s | %s |\n", row[0], strings.ReplaceAll(row[1], "|", "\\|"))
	}
	for _, n := range notes {
		fmt.Fprintf(&sb, "\n> %s\n", n)
	}
	md := sb.String()
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
