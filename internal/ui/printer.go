package ui

import (
	"fmt"
	"io"
	"os"
)

// Printer writes UI components to a writer. When the writer is not a
// terminal, components are replaced by plain text lines.
type Printer struct {
	out   io.Writer
	width int
	plain bool
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	plain := true
	if f, ok := w.(*os.File); ok {
		plain = !IsTerminal(f)
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
		plain: plain,
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Plain reports whether styled output is disabled
func (p *Printer) Plain() bool {
	return p.plain
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintBanner prints a banner box
func (p *Printer) PrintBanner(b *Banner) {
	if p.plain {
		p.Println(b.Title)
		for _, f := range b.Fields {
			p.Printf("  %s: %s\n", f.Key, f.Value)
		}
		if b.Hint != "" {
			p.Println(b.Hint)
		}
		return
	}
	p.Println(b.SetWidth(p.width).Render())
	p.Newline()
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) {
	if p.plain {
		status := "OK"
		switch r.Type {
		case ResultFailure:
			status = "FAILED"
		case ResultWarning:
			status = "WARNING"
		}
		p.Printf("%s: %s\n", status, r.Title)
		for _, d := range r.Details {
			p.Printf("  %s: %s\n", d.Key, d.Value)
		}
		if r.Error != nil {
			p.Printf("  Error: %v\n", r.Error)
		}
		for _, tip := range r.Help {
			p.Printf("  - %s\n", tip)
		}
		return
	}
	p.Println(r.SetWidth(p.width).Render())
}
