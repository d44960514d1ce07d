package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RangeUnit is the only range unit the server understands.
const RangeUnit = "bytes"

// ErrMalformedRange is matched by every error ParseRange returns.
var ErrMalformedRange = errors.New("malformed range")

// RangeError describes why a Range header value was rejected.
type RangeError struct {
	Header string // Raw header value
	Reason string // What was wrong with it
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("malformed range %q: %s", e.Header, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedRange) succeed for any RangeError.
func (e *RangeError) Is(target error) bool {
	return target == ErrMalformedRange
}

// ByteRange is a closed interval [Start, End] of artifact offsets.
//
// For a non-empty artifact of length L, 0 <= Start <= End <= L-1 always holds.
// The full range of an empty artifact is {0, -1} so that Length() is zero.
type ByteRange struct {
	Start int64
	End   int64
}

// FullRange returns the interval covering the whole artifact.
func FullRange(size int64) ByteRange {
	return ByteRange{Start: 0, End: size - 1}
}

// Length returns the number of bytes in the interval.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the interval as a Content-Range header value.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("%s %d-%d/%d", RangeUnit, r.Start, r.End, size)
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// UnsatisfiedContentRange is the Content-Range value sent with a 416 reply.
func UnsatisfiedContentRange(size int64) string {
	return fmt.Sprintf("%s */%d", RangeUnit, size)
}

// ParseRange resolves a Range header value against an artifact of the given
// size. An empty header selects the full artifact.
//
// Accepted forms:
//
//	bytes=N-M   bytes N through M inclusive
//	bytes=N-    byte N through the end
//	bytes=-M    the final M bytes (suffix range)
//
// Bounds are clamped into the artifact: start = max(0, min(start, size-1)) and
// end = max(start, min(end, size-1)). A start past the end of the artifact
// therefore selects the final byte rather than failing. Multiple ranges,
// other units, non-numeric bounds, bytes=- and bytes=-0 are rejected with a
// *RangeError, as is any range against an empty artifact.
func ParseRange(header string, size int64) (ByteRange, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return FullRange(size), nil
	}

	unit, set, ok := strings.Cut(header, "=")
	if !ok || strings.TrimSpace(unit) != RangeUnit {
		return ByteRange{}, &RangeError{Header: header, Reason: "expected bytes= unit"}
	}
	set = strings.TrimSpace(set)

	if strings.Contains(set, ",") {
		return ByteRange{}, &RangeError{Header: header, Reason: "multiple ranges are not supported"}
	}

	fields := strings.Split(set, "-")
	if len(fields) != 2 {
		return ByteRange{}, &RangeError{Header: header, Reason: "expected exactly one '-' separator"}
	}
	startField := strings.TrimSpace(fields[0])
	endField := strings.TrimSpace(fields[1])

	if startField == "" && endField == "" {
		return ByteRange{}, &RangeError{Header: header, Reason: "both bounds are empty"}
	}

	if size < 1 {
		return ByteRange{}, &RangeError{Header: header, Reason: "artifact is empty"}
	}

	if startField == "" {
		suffix, err := parseBound(endField)
		if err != nil {
			return ByteRange{}, &RangeError{Header: header, Reason: err.Error()}
		}
		if suffix == 0 {
			return ByteRange{}, &RangeError{Header: header, Reason: "zero-length suffix range"}
		}
		start := size - suffix
		if start < 0 {
			start = 0
		}
		return ByteRange{Start: start, End: size - 1}, nil
	}

	start, err := parseBound(startField)
	if err != nil {
		return ByteRange{}, &RangeError{Header: header, Reason: err.Error()}
	}

	end := size - 1
	if endField != "" {
		end, err = parseBound(endField)
		if err != nil {
			return ByteRange{}, &RangeError{Header: header, Reason: err.Error()}
		}
	}

	return clamp(start, end, size), nil
}

func clamp(start, end, size int64) ByteRange {
	last := size - 1
	start = max(0, min(start, last))
	end = max(start, min(end, last))
	return ByteRange{Start: start, End: end}
}

// parseBound accepts only plain decimal digits; signs and spaces inside the
// number are rejected. Values too large for int64 saturate to math.MaxInt64
// and are clamped like any other bound past the end.
func parseBound(s string) (int64, error) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("bound %q is not a non-negative integer", s)
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt64, nil
	}
	if err != nil {
		return 0, fmt.Errorf("bound %q is not a non-negative integer", s)
	}
	return v, nil
}
