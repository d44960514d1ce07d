package artifact

import (
	"errors"
	"fmt"
	"os"
)

// ErrPreflightFailed is matched by every error Validate returns.
var ErrPreflightFailed = errors.New("preflight failed")

// Report is the outcome of a preflight check.
type Report struct {
	Path         string
	Exists       bool
	NotRegular   bool // The path exists but is a directory or special file
	ActualSize   int64
	ExpectedSize int64 // 0 means no size check was requested
}

// SizeChecked reports whether an expected size was configured.
func (r *Report) SizeChecked() bool {
	return r.ExpectedSize > 0
}

// SizeMatches reports whether the file has the expected length. It is true
// when no expected size was configured.
func (r *Report) SizeMatches() bool {
	return !r.SizeChecked() || r.ActualSize == r.ExpectedSize
}

// OK reports whether the server may start.
func (r *Report) OK() bool {
	return r.Exists && r.ActualSize > 0 && r.SizeMatches()
}

// Summary renders a one-line human readable result.
func (r *Report) Summary() string {
	switch {
	case r.NotRegular:
		return fmt.Sprintf("artifact is not a regular file: %s", r.Path)
	case !r.Exists:
		return fmt.Sprintf("artifact not found: %s", r.Path)
	case r.ActualSize == 0:
		return fmt.Sprintf("artifact is empty: %s", r.Path)
	case !r.SizeMatches():
		return fmt.Sprintf("artifact size mismatch: actual %s (%d bytes), expected %s (%d bytes)",
			FormatSize(r.ActualSize), r.ActualSize, FormatSize(r.ExpectedSize), r.ExpectedSize)
	default:
		return fmt.Sprintf("artifact ok: %s (%d bytes)", FormatSize(r.ActualSize), r.ActualSize)
	}
}

// PreflightError carries the report that caused startup to be refused.
type PreflightError struct {
	Report *Report
	Err    error // Underlying stat error, if any
}

func (e *PreflightError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, os.ErrNotExist) {
		return fmt.Sprintf("%s: %v", e.Report.Summary(), e.Err)
	}
	return e.Report.Summary()
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPreflightFailed) succeed.
func (e *PreflightError) Is(target error) bool {
	return target == ErrPreflightFailed
}

// Validate checks that path exists, is a regular non-empty file and, when
// expectedSize is positive, has exactly that length. A size mismatch is fatal.
// The report is returned in every case so callers can show it.
func Validate(path string, expectedSize int64) (*Report, error) {
	report := &Report{Path: path, ExpectedSize: expectedSize}

	info, err := os.Stat(path)
	if err != nil {
		return report, &PreflightError{Report: report, Err: err}
	}
	if !info.Mode().IsRegular() {
		report.NotRegular = true
		return report, &PreflightError{Report: report}
	}

	report.Exists = true
	report.ActualSize = info.Size()

	if !report.OK() {
		return report, &PreflightError{Report: report}
	}
	return report, nil
}

// FormatSize renders a byte count with a binary unit, e.g. "4.10 GiB".
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 4; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTP"[exp])
}
