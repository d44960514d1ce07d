package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/plantmeet/modelserve/internal/artifact"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type    ResultType
	Title   string   // e.g., "Download complete"
	Details []Field  // Key-value details, in order
	Error   error    // Error (for failure results)
	Help    []string // Suggestions shown under a failure
	Width   int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Field) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, help ...string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Help: help, Width: GetTerminalWidth()}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details ...Field) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// PreflightResult summarizes an artifact check.
func PreflightResult(report *artifact.Report, err error) *Result {
	details := []Field{{Key: "Path", Value: report.Path}}
	if report.Exists {
		details = append(details, Field{
			Key:   "Size",
			Value: fmt.Sprintf("%s (%d bytes)", artifact.FormatSize(report.ActualSize), report.ActualSize),
		})
	}
	if report.SizeChecked() {
		details = append(details, Field{
			Key:   "Expected",
			Value: fmt.Sprintf("%s (%d bytes)", artifact.FormatSize(report.ExpectedSize), report.ExpectedSize),
		})
	}

	if err == nil {
		if !report.SizeChecked() {
			return NewWarningResult("Artifact ready, size not verified", details...)
		}
		return NewSuccessResult("Artifact ready", details...)
	}

	r := NewFailureResult("Artifact check failed", err)
	r.Details = details
	switch {
	case report.NotRegular:
		r.Help = []string{"Point --file at the model file itself, not a directory"}
	case !report.Exists:
		r.Help = []string{"Check the --file path", "Download the model with modelfetch"}
	case !report.SizeMatches():
		r.Help = []string{"The download is probably incomplete; resume it with modelfetch", "Or pass --expected-size 0 to skip the check"}
	}
	return r
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Field{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var color lipgloss.Color
	var title string
	switch r.Type {
	case ResultFailure:
		color = ErrorColor
		title = ErrorTitleStyle.Render(fmt.Sprintf(" %s  FAILED  ─  %s", FailureMarker, r.Title))
	case ResultWarning:
		color = WarningColor
		title = WarningTitleStyle.Render(fmt.Sprintf(" %s  WARNING  ─  %s", WarningMarker, r.Title))
	default:
		color = SuccessColor
		title = SuccessTitleStyle.Render(fmt.Sprintf(" %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
	}

	lines := []string{"", title, ""}

	for _, d := range r.Details {
		lines = append(lines, ResultKeyStyle.Render(" "+d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render(" Error: "+r.Error.Error()), "")
	}

	if len(r.Help) > 0 {
		lines = append(lines, HelpTitleStyle.Render(" Try:"))
		for _, tip := range r.Help {
			lines = append(lines, HelpItemStyle.Render("   • "+tip))
		}
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
