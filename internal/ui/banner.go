package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled line in a banner or result box.
type Field struct {
	Key   string
	Value string
	URL   bool // Render Value as a link
}

// Banner is the boxed summary printed when a command starts.
type Banner struct {
	Title    string  // e.g., "MODEL SERVER"
	Subtitle string  // e.g., "modelserve v1.0.0"
	Fields   []Field // Rendered in order
	Hint     string  // Optional line under the box
	Width    int
}

// NewBanner creates a banner sized to the terminal
func NewBanner(title, subtitle string, fields ...Field) *Banner {
	return &Banner{
		Title:    title,
		Subtitle: subtitle,
		Fields:   fields,
		Width:    GetTerminalWidth(),
	}
}

// Add appends a field
func (b *Banner) Add(key, value string) *Banner {
	b.Fields = append(b.Fields, Field{Key: key, Value: value})
	return b
}

// AddURL appends a field rendered as a link
func (b *Banner) AddURL(key, url string) *Banner {
	b.Fields = append(b.Fields, Field{Key: key, Value: url, URL: true})
	return b
}

// SetWidth sets the terminal width for responsive rendering
func (b *Banner) SetWidth(width int) *Banner {
	b.Width = width
	return b
}

// Render returns the styled banner as a string
func (b *Banner) Render() string {
	width := b.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	sections := []string{BannerTitleStyle.Render(strings.ToUpper(b.Title))}
	if b.Subtitle != "" {
		sections = append(sections, BannerSubtitleStyle.Render(b.Subtitle))
	}

	if len(b.Fields) > 0 {
		sections = append(sections, RenderHorizontalDivider(width-6))
		sections = append(sections, renderFields(b.Fields))
	}

	out := BorderStyle(width, PrimaryColor).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	if b.Hint != "" {
		out += "\n" + HintStyle.Render(b.Hint)
	}
	return out
}

// String implements fmt.Stringer
func (b *Banner) String() string {
	return b.Render()
}

func renderFields(fields []Field) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		value := FieldValueStyle.Render(f.Value)
		if f.URL {
			value = URLStyle.Render(f.Value)
		}
		lines = append(lines, FieldKeyStyle.Render(f.Key+":")+" "+value)
	}
	return strings.Join(lines, "\n")
}
