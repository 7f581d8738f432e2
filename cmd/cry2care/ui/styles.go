// Package ui provides the visual styling and page components for the cry2care
// dashboard. Two skins share every component: clinical (light) and night (dark).
package ui

import (
	"strings"

	"cry2care/internal/config"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Clinical skin (light)
	ClinicalBackground = lipgloss.Color("#f4f7fa")
	ClinicalForeground = lipgloss.Color("#0f2a3f")
	ClinicalPrimary    = lipgloss.Color("#0b6e99") // ward blue
	ClinicalAccent     = lipgloss.Color("#14b8a6") // teal
	ClinicalSecondary  = lipgloss.Color("#e2e8f0")
	ClinicalMuted      = lipgloss.Color("#64748b")
	ClinicalBorder     = lipgloss.Color("#cbd5e1")
	ClinicalCard       = lipgloss.Color("#ffffff")

	// Night skin (dark, low glare for night shifts)
	NightBackground = lipgloss.Color("#0b1120")
	NightForeground = lipgloss.Color("#e2e8f0")
	NightPrimary    = lipgloss.Color("#38bdf8")
	NightAccent     = lipgloss.Color("#22d3ee")
	NightSecondary  = lipgloss.Color("#1e293b")
	NightMuted      = lipgloss.Color("#94a3b8")
	NightBorder     = lipgloss.Color("#334155")
	NightCard       = lipgloss.Color("#111827")

	// Semantic colors (same in both skins)
	Critical = lipgloss.Color("#e11d48")
	Success  = lipgloss.Color("#16a34a")
	Warning  = lipgloss.Color("#f59e0b")
	Info     = lipgloss.Color("#3b82f6")
)

// Theme holds one skin's color scheme.
type Theme struct {
	Name       string
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// ClinicalTheme returns the light skin.
func ClinicalTheme() Theme {
	return Theme{
		Name:       config.SkinClinical,
		Background: ClinicalBackground,
		Foreground: ClinicalForeground,
		Primary:    ClinicalPrimary,
		Accent:     ClinicalAccent,
		Secondary:  ClinicalSecondary,
		Muted:      ClinicalMuted,
		Border:     ClinicalBorder,
		Card:       ClinicalCard,
	}
}

// NightTheme returns the dark skin.
func NightTheme() Theme {
	return Theme{
		Name:       config.SkinNight,
		Background: NightBackground,
		Foreground: NightForeground,
		Primary:    NightPrimary,
		Accent:     NightAccent,
		Secondary:  NightSecondary,
		Muted:      NightMuted,
		Border:     NightBorder,
		Card:       NightCard,
		IsDark:     true,
	}
}

// ThemeFor maps a skin name to its theme. Unknown names get the clinical skin.
func ThemeFor(skin string) Theme {
	if skin == config.SkinNight {
		return NightTheme()
	}
	return ClinicalTheme()
}

// NextSkin returns the other skin.
func NextSkin(skin string) string {
	if skin == config.SkinNight {
		return config.SkinClinical
	}
	return config.SkinNight
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	App     lipgloss.Style
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Card        lipgloss.Style
	CardTitle   lipgloss.Style
	Tile        lipgloss.Style
	TileValue   lipgloss.Style
	Tab         lipgloss.Style
	ActiveTab   lipgloss.Style
	Badge       lipgloss.Style
	AlertBadge  lipgloss.Style
	Spinner     lipgloss.Style
	ProgressBar lipgloss.Style
	Divider     lipgloss.Style
	ChartBar    lipgloss.Style
	ChartAlert  lipgloss.Style
	ChartLimit  lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		App: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Critical).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		CardTitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Bold(true),

		Tile: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 2).
			Align(lipgloss.Center),

		TileValue: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Tab: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		ActiveTab: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Underline(true).
			Padding(0, 2),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		AlertBadge: lipgloss.NewStyle().
			Background(Critical).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		ProgressBar: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		ChartBar: lipgloss.NewStyle().
			Foreground(theme.Accent),

		ChartAlert: lipgloss.NewStyle().
			Foreground(Critical),

		ChartLimit: lipgloss.NewStyle().
			Foreground(Warning),
	}
}

// StylesFor returns the styles of a skin.
func StylesFor(skin string) Styles {
	return NewStyles(ThemeFor(skin))
}

// DefaultStyles returns the clinical styles.
func DefaultStyles() Styles {
	return NewStyles(ClinicalTheme())
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
