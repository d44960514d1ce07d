package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, checkmarks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, X marks
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
	LinkColor    = lipgloss.Color("#5FAFFF") // Blue - URLs
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	// BannerTitleStyle is for the banner title (e.g., "MODEL SERVER")
	BannerTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	// BannerSubtitleStyle is for the line under the title
	BannerSubtitleStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	// FieldKeyStyle is for banner field keys (e.g., "LAN:")
	FieldKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2).
			Width(14)

	// FieldValueStyle is for banner field values
	FieldValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// URLStyle is for URLs a user is expected to copy
	URLStyle = lipgloss.NewStyle().
			Foreground(LinkColor).
			Underline(true)

	// HintStyle is for the closing hint under the banner
	HintStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			PaddingLeft(2)

	// ProgressLabelStyle is for "Downloading gemma.task"
	ProgressLabelStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				PaddingLeft(2)

	// ProgressStatsStyle is for the byte counters beside the bar
	ProgressStatsStyle = lipgloss.NewStyle().
				Foreground(MutedColor)

	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningTitleStyle = lipgloss.NewStyle().
				Foreground(WarningColor).
				Bold(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// ResultKeyStyle is for result detail keys
	ResultKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(18)

	ResultValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	// HelpTitleStyle is for "Try:" headers under failures
	HelpTitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Bold(true)

	HelpItemStyle = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "!"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

func clampWidth(width int, err error) int {
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// BorderStyle returns a rounded box in the given color sized to width
func BorderStyle(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Width(width - 2) // Account for border characters
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int) string {
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", width))
}
