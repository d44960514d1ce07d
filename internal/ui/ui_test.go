package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/plantmeet/modelserve/internal/artifact"
)

func TestBanner_Render(t *testing.T) {
	b := NewBanner("Model server", "modelserve test").
		AddURL("Local", "http://localhost:8001").
		Add("Size", "4.10 GiB").
		SetWidth(80)

	out := b.Render()
	for _, want := range []string{"MODEL SERVER", "modelserve test", "Local:", "http://localhost:8001", "4.10 GiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Local:") > strings.Index(out, "Size:") {
		t.Error("fields rendered out of order")
	}
}

func TestPreflightResult(t *testing.T) {
	tests := []struct {
		name     string
		report   *artifact.Report
		err      error
		wantType ResultType
		wantHelp bool
	}{
		{
			name:     "verified",
			report:   &artifact.Report{Path: "/m", Exists: true, ActualSize: 10, ExpectedSize: 10},
			wantType: ResultSuccess,
		},
		{
			name:     "unchecked size",
			report:   &artifact.Report{Path: "/m", Exists: true, ActualSize: 10},
			wantType: ResultWarning,
		},
		{
			name:     "missing",
			report:   &artifact.Report{Path: "/m"},
			err:      errors.New("artifact not found"),
			wantType: ResultFailure,
			wantHelp: true,
		},
		{
			name:     "directory",
			report:   &artifact.Report{Path: "/m", NotRegular: true},
			err:      errors.New("artifact is not a regular file: /m"),
			wantType: ResultFailure,
			wantHelp: true,
		},
		{
			name:     "mismatch",
			report:   &artifact.Report{Path: "/m", Exists: true, ActualSize: 9, ExpectedSize: 10},
			err:      errors.New("size mismatch"),
			wantType: ResultFailure,
			wantHelp: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PreflightResult(tt.report, tt.err)
			if r.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", r.Type, tt.wantType)
			}
			if (len(r.Help) > 0) != tt.wantHelp {
				t.Errorf("Help = %v", r.Help)
			}
			if r.Details[0].Value != "/m" {
				t.Errorf("first detail = %+v, want the path", r.Details[0])
			}
			if out := r.SetWidth(80).Render(); !strings.Contains(out, r.Title) {
				t.Errorf("render lacks title:\n%s", out)
			}
		})
	}
}

func TestPrinter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if !p.Plain() {
		t.Fatal("a bytes.Buffer is not a terminal")
	}

	p.PrintBanner(NewBanner("Model server", "").AddURL("LAN", "http://10.0.0.2:8001/m"))
	p.PrintResult(NewFailureResult("Download failed", errors.New("boom"), "retry"))

	out := buf.String()
	for _, want := range []string{"Model server", "LAN: http://10.0.0.2:8001/m", "FAILED: Download failed", "Error: boom", "- retry"} {
		if !strings.Contains(out, want) {
			t.Errorf("plain output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "╭") {
		t.Error("plain output contains box drawing")
	}
}

func TestDownloadModel(t *testing.T) {
	m := NewDownloadModel("Downloading model.task")
	start := m.started
	m.now = func() time.Time { return start.Add(2 * time.Second) }

	if m.Percent() != 0 {
		t.Errorf("Percent() = %v before any progress", m.Percent())
	}

	next, _ := m.Update(ProgressMsg{Done: 1024, Total: 4096})
	m = next.(DownloadModel)
	next, _ = m.Update(ProgressMsg{Done: 3072, Total: 4096})
	m = next.(DownloadModel)

	if m.Percent() != 0.75 {
		t.Errorf("Percent() = %v, want 0.75", m.Percent())
	}
	// 2048 bytes in this session over 2 seconds.
	if m.Rate() != 1024 {
		t.Errorf("Rate() = %v, want 1024", m.Rate())
	}
	if !strings.Contains(m.Stats(), "3.00 KiB / 4.00 KiB") {
		t.Errorf("Stats() = %q", m.Stats())
	}
	if !strings.Contains(m.View(), "Downloading model.task") {
		t.Error("View() lacks label")
	}

	next, cmd := m.Update(FinishedMsg{})
	m = next.(DownloadModel)
	if !m.finished || cmd == nil {
		t.Error("FinishedMsg should quit")
	}

	next, cmd = NewDownloadModel("x").Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !next.(DownloadModel).Interrupted() || cmd == nil {
		t.Error("Ctrl+C should interrupt and quit")
	}
}

func TestDownloadModel_OverrunCapped(t *testing.T) {
	next, _ := NewDownloadModel("x").Update(ProgressMsg{Done: 20, Total: 10})
	if p := next.(DownloadModel).Percent(); p != 1 {
		t.Errorf("Percent() = %v, want 1", p)
	}
}

func TestBarWidth(t *testing.T) {
	for termWidth, want := range map[int]int{40: 20, 80: 40, 200: 60} {
		if got := barWidth(termWidth); got != want {
			t.Errorf("barWidth(%d) = %d, want %d", termWidth, got, want)
		}
	}
}

func TestClampWidth(t *testing.T) {
	if clampWidth(0, errors.New("not a tty")) != MinTerminalWidth {
		t.Error("error should fall back to the minimum width")
	}
	if clampWidth(500, nil) != MaxContentWidth {
		t.Error("wide terminals should be capped")
	}
	if clampWidth(80, nil) != 80 {
		t.Error("normal widths should pass through")
	}
}
