package ui

import (
	"fmt"
	"math"
	"strings"

	"cry2care/internal/triage"

	"github.com/charmbracelet/lipgloss"
)

// SeverityMax is the top of the severity scale.
const SeverityMax = 10.0

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// TrendChart draws severity bars, oldest on the left, with the urgent
// threshold as a dashed limit line. Bars above the threshold use the alert style.
func TrendChart(points []triage.Point, threshold float64, height int, styles Styles) string {
	if len(points) == 0 {
		return styles.Muted.Render("No trend data yet")
	}
	if height < 2 {
		height = 2
	}

	const barWidth = 3
	const axisWidth = 4

	var sb strings.Builder
	for r := 0; r < height; r++ {
		top := SeverityMax * float64(height-r) / float64(height)
		bottom := SeverityMax * float64(height-r-1) / float64(height)
		limitRow := threshold > bottom && threshold <= top

		switch {
		case r == 0:
			sb.WriteString(styles.Muted.Render(fmt.Sprintf("%*s ", axisWidth-1, "10")))
		case limitRow:
			sb.WriteString(styles.ChartLimit.Render(fmt.Sprintf("%*s ", axisWidth-1, triage.FormatSeverity(threshold))))
		default:
			sb.WriteString(strings.Repeat(" ", axisWidth))
		}

		for i, p := range points {
			style := styles.ChartBar
			if triage.IsUrgent(p.Severity, threshold) {
				style = styles.ChartAlert
			}
			var cell string
			switch {
			case p.Severity >= top:
				cell = style.Render(strings.Repeat("█", barWidth))
			case p.Severity > bottom:
				cell = style.Render(strings.Repeat("▄", barWidth))
			case limitRow:
				cell = styles.ChartLimit.Render(strings.Repeat("╌", barWidth))
			default:
				cell = strings.Repeat(" ", barWidth)
			}
			sb.WriteString(cell)
			if i < len(points)-1 {
				if limitRow {
					sb.WriteString(styles.ChartLimit.Render("╌"))
				} else {
					sb.WriteString(" ")
				}
			}
		}
		sb.WriteString("\n")
	}

	width := len(points)*(barWidth+1) - 1
	sb.WriteString(styles.Muted.Render(fmt.Sprintf("%*s ", axisWidth-1, "0")))
	sb.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	sb.WriteString("\n")

	first, last := points[0].Label, points[len(points)-1].Label
	labels := first
	if len(points) > 1 {
		gap := width - lipgloss.Width(first) - lipgloss.Width(last)
		if gap < 1 {
			gap = 1
		}
		labels = first + strings.Repeat(" ", gap) + last
	}
	sb.WriteString(strings.Repeat(" ", axisWidth))
	sb.WriteString(styles.Muted.Render(labels))
	return sb.String()
}

// Sparkline renders values on one line scaled to max.
func Sparkline(values []float64, max float64) string {
	if max <= 0 {
		max = 1
	}
	var sb strings.Builder
	for _, v := range values {
		if math.IsNaN(v) || v < 0 {
			v = 0
		}
		idx := int(v / max * float64(len(sparkRunes)-1))
		if idx >= len(sparkRunes) {
			idx = len(sparkRunes) - 1
		}
		sb.WriteRune(sparkRunes[idx])
	}
	return sb.String()
}

// Waveform draws a mirrored amplitude envelope (values in 0-1) over height rows.
func Waveform(envelope []float64, height int, style lipgloss.Style) string {
	if len(envelope) == 0 {
		return ""
	}
	if height < 2 {
		height = 2
	}
	half := float64(height) / 2

	rows := make([]string, height)
	for r := 0; r < height; r++ {
		// distance of this row's centre from the midline, in rows
		dist := math.Abs(float64(r) + 0.5 - half)
		var sb strings.Builder
		for _, v := range envelope {
			if v*half >= dist {
				sb.WriteRune('█')
			} else {
				sb.WriteRune(' ')
			}
		}
		rows[r] = style.Render(sb.String())
	}
	return strings.Join(rows, "\n")
}

// Meter draws a horizontal gauge of value within 0..max.
func Meter(value, max float64, width int, fill lipgloss.Style, empty lipgloss.Style) string {
	if width < 1 {
		width = 1
	}
	if max <= 0 || math.IsNaN(value) || value < 0 {
		value = 0
	}
	n := 0
	if max > 0 {
		n = int(math.Round(value / max * float64(width)))
	}
	if n > width {
		n = width
	}
	return fill.Render(strings.Repeat("█", n)) + empty.Render(strings.Repeat("░", width-n))
}

// Card frames body in a bordered box with a muted title line.
func Card(styles Styles, title, body string, width int) string {
	style := styles.Card
	if width > 0 {
		style = style.Width(width - PanelBorderWidth*2)
	}
	content := body
	if title != "" {
		content = styles.CardTitle.Render(strings.ToUpper(title)) + "\n" + body
	}
	return style.Render(content)
}

// Tile is a small bordered box with a label and a large value.
func Tile(styles Styles, label, value, unit string, valueStyle lipgloss.Style) string {
	v := valueStyle.Render(value)
	if unit != "" {
		v += " " + styles.Muted.Render(unit)
	}
	return styles.Tile.Render(styles.CardTitle.Render(label) + "\n" + v)
}
