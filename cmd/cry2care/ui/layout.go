// Package ui layout constants for consistent spacing and dimensions
package ui

// Layout constants for page sizing
const (
	// Frame
	HeaderHeight = 1
	TabBarHeight = 2
	FooterHeight = 2

	// Panel borders and spacing
	PanelBorderWidth = 1
	PanelPaddingH    = 1

	// Table dimensions
	TableHeaderHeight = 2
	ControlsHeight    = 3

	// Charts
	TrendChartHeight = 8
	WaveformHeight   = 4

	// Responsive breakpoints
	MinimumTerminalWidth  = 60
	MinimumTerminalHeight = 20
	CompactModeWidth      = 100
)

// LayoutConfig provides computed layout dimensions based on terminal size
type LayoutConfig struct {
	TerminalWidth  int
	TerminalHeight int
	IsCompact      bool
}

// NewLayoutConfig creates a layout configuration for the given terminal size
func NewLayoutConfig(width, height int) LayoutConfig {
	return LayoutConfig{
		TerminalWidth:  width,
		TerminalHeight: height,
		IsCompact:      width < CompactModeWidth,
	}
}

// BodyHeight returns the rows left for a page below the header and tabs and above the footer.
func (l LayoutConfig) BodyHeight() int {
	h := l.TerminalHeight - HeaderHeight - TabBarHeight - FooterHeight
	if h < 1 {
		return 1
	}
	return h
}

// BodyWidth returns the usable page width.
func (l LayoutConfig) BodyWidth() int {
	w := l.TerminalWidth - 2
	if w < 1 {
		return 1
	}
	return w
}

// Columns splits the body into two columns, or one when compact.
func (l LayoutConfig) Columns() (left, right int) {
	w := l.BodyWidth()
	if l.IsCompact {
		return w, w
	}
	left = w * 6 / 10
	right = w - left - 1
	return left, right
}

// PanelContentWidth returns the content width inside a bordered panel
func PanelContentWidth(panelWidth int) int {
	w := panelWidth - (PanelBorderWidth * 2) - (PanelPaddingH * 2)
	if w < 1 {
		return 1
	}
	return w
}

// TableContentHeight calculates available height for table rows
func TableContentHeight(totalHeight int) int {
	h := totalHeight - TableHeaderHeight - ControlsHeight
	if h < 3 {
		return 3
	}
	return h
}
