package fetch

import (
	"bytes"
	"strings"
	"testing"
)

func TestLineReporter(t *testing.T) {
	var buf bytes.Buffer
	report := LineReporter(&buf, 100)

	for _, done := range []int64{0, 50, 99, 100, 150, 250, 300, 300} {
		report(done, 300)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"downloaded 33.3% (100 B / 300 B)",
		"downloaded 83.3% (250 B / 300 B)",
		"downloaded 100.0% (300 B / 300 B)",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestLineReporter_Resume(t *testing.T) {
	var buf bytes.Buffer
	report := LineReporter(&buf, 100)

	report(130, 0)
	report(180, 0)
	report(200, 0)

	out := buf.String()
	if !strings.HasPrefix(out, "resuming at 130 B\n") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "downloaded 200 B") || strings.Contains(out, "downloaded 180 B") {
		t.Errorf("output = %q", out)
	}
}
