package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", p, err)
	}
	return p
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "gemma.task", 10)

	tests := []struct {
		name     string
		path     string
		urlName  string
		wantPath string
		wantErr  bool
	}{
		{name: "name from file", path: p, wantPath: "/gemma.task"},
		{name: "explicit name", path: p, urlName: "model.bin", wantPath: "/model.bin"},
		{name: "leading slash trimmed", path: p, urlName: "/model.bin", wantPath: "/model.bin"},
		{name: "nested name rejected", path: p, urlName: "a/b", wantErr: true},
		{name: "dot dot rejected", path: p, urlName: "..", wantErr: true},
		{name: "empty path rejected", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.path, tt.urlName)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if a.URLPath() != tt.wantPath {
				t.Errorf("URLPath() = %q, want %q", a.URLPath(), tt.wantPath)
			}
			if !filepath.IsAbs(a.Path) {
				t.Errorf("Path %q is not absolute", a.Path)
			}
		})
	}
}

func TestArtifact_Matches(t *testing.T) {
	a := &Artifact{Name: "gemma.task", Path: "/tmp/gemma.task"}

	tests := map[string]bool{
		"/gemma.task":       true,
		"/gemma.task/":      false,
		"/gemma.task.extra": false,
		"/":                 false,
		"/other":            false,
		"gemma.task":        false,
	}
	for p, want := range tests {
		if got := a.Matches(p); got != want {
			t.Errorf("Matches(%q) = %v, want %v", p, got, want)
		}
	}

	if got := a.URL("http://10.0.0.5:8001/"); got != "http://10.0.0.5:8001/gemma.task" {
		t.Errorf("URL() = %q", got)
	}
}

func TestArtifact_OpenAndStat(t *testing.T) {
	dir := t.TempDir()
	a, err := New(writeFile(t, dir, "a.bin", 1234), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	size, err := a.Stat()
	if err != nil || size != 1234 {
		t.Fatalf("Stat() = %d, %v; want 1234", size, err)
	}

	f, size, err := a.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	if size != 1234 {
		t.Errorf("Open() size = %d, want 1234", size)
	}

	if err := os.Remove(a.Path); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.Open(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() after removal error = %v, want ErrNotExist", err)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.bin", 1000)
	empty := writeFile(t, dir, "empty.bin", 0)

	tests := []struct {
		name     string
		path     string
		expected int64
		wantErr  bool
		contains string
	}{
		{name: "matching size", path: good, expected: 1000, contains: "artifact ok"},
		{name: "no size check", path: good, expected: 0, contains: "artifact ok"},
		{name: "size mismatch is fatal", path: good, expected: 4405655031, wantErr: true, contains: "size mismatch"},
		{name: "missing file", path: filepath.Join(dir, "nope.bin"), wantErr: true, contains: "not found"},
		{name: "empty file", path: empty, wantErr: true, contains: "empty"},
		{name: "directory", path: dir, wantErr: true, contains: "not a regular file"},
	}

	if report, _ := Validate(dir, 0); !report.NotRegular || strings.Contains(report.Summary(), "not found") {
		t.Errorf("directory report = %+v, summary %q", report, report.Summary())
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Validate(tt.path, tt.expected)
			if report == nil {
				t.Fatal("Validate() returned a nil report")
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if report.OK() == tt.wantErr {
				t.Errorf("report.OK() = %v with wantErr %v", report.OK(), tt.wantErr)
			}

			msg := report.Summary()
			if err != nil {
				msg = err.Error()
				if !errors.Is(err, ErrPreflightFailed) {
					t.Errorf("error %v does not match ErrPreflightFailed", err)
				}
			}
			if !strings.Contains(msg, tt.contains) {
				t.Errorf("message %q does not contain %q", msg, tt.contains)
			}
			if !strings.Contains(report.Summary(), tt.contains) {
				t.Errorf("Summary() = %q does not contain %q", report.Summary(), tt.contains)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.50 KiB"},
		{10 << 20, "10.00 MiB"},
		{4405655031, "4.10 GiB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
