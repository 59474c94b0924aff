package tui

import "github.com/charmbracelet/lipgloss"

// ─── Palette ──────────────────────────────────────────────────────────────────

var (
	colorText    = lipgloss.Color("#CDD6F4")
	colorSubtext = lipgloss.Color("#A6ADC8")
	colorDim     = lipgloss.Color("#585B70")
	colorAccent  = lipgloss.Color("#CBA6F7")
	colorBlue    = lipgloss.Color("#89B4FA")
	colorYellow  = lipgloss.Color("#F9E2AF")
	colorRed     = lipgloss.Color("#F38BA8")
	colorSurface = lipgloss.Color("#313244")
)

// ─── Styles ───────────────────────────────────────────────────────────────────

var (
	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	tabStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorSurface).
			Padding(0, 1)

	seriesStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	chartStyle = lipgloss.NewStyle().
			Foreground(colorText)

	tooltipStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)
