package protocol

import (
	"net/http"
	"testing"
)

func TestNewFrame(t *testing.T) {
	tests := []struct {
		name           string
		rng            ByteRange
		rangeRequested bool
		size           int64
		wantStatus     int
		wantLength     string
		wantRange      string
	}{
		{
			name:       "full artifact",
			rng:        FullRange(1000),
			size:       1000,
			wantStatus: http.StatusOK,
			wantLength: "1000",
		},
		{
			name:           "partial content",
			rng:            ByteRange{100, 199},
			rangeRequested: true,
			size:           1000,
			wantStatus:     http.StatusPartialContent,
			wantLength:     "100",
			wantRange:      "bytes 100-199/1000",
		},
		{
			name:           "range covering everything is still 206",
			rng:            ByteRange{0, 999},
			rangeRequested: true,
			size:           1000,
			wantStatus:     http.StatusPartialContent,
			wantLength:     "1000",
			wantRange:      "bytes 0-999/1000",
		},
		{
			name:       "full mode ignores a stray range",
			rng:        ByteRange{5, 6},
			size:       1000,
			wantStatus: http.StatusOK,
			wantLength: "1000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(tt.rng, tt.rangeRequested, tt.size)

			if f.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", f.Status, tt.wantStatus)
			}
			if got := f.Header.Get("Content-Length"); got != tt.wantLength {
				t.Errorf("Content-Length = %q, want %q", got, tt.wantLength)
			}
			if got := f.Header.Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
			if got := f.Header.Get("Accept-Ranges"); got != "bytes" {
				t.Errorf("Accept-Ranges = %q, want bytes", got)
			}
			if got := f.Header.Get("Content-Type"); got != ContentType {
				t.Errorf("Content-Type = %q, want %q", got, ContentType)
			}
			if f.Partial() != tt.rangeRequested {
				t.Errorf("Partial() = %v, want %v", f.Partial(), tt.rangeRequested)
			}
		})
	}
}

func TestFrameApply(t *testing.T) {
	f := NewFrame(ByteRange{0, 9}, true, 10)
	dst := http.Header{}
	dst.Set("Content-Length", "stale")
	SetCORS(dst)

	f.Apply(dst)

	if dst.Get("Content-Length") != "10" {
		t.Errorf("Content-Length = %q, want 10", dst.Get("Content-Length"))
	}
	if dst.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Apply() should keep headers it does not own")
	}

	// Mutating the destination must not leak into the frame.
	dst["Content-Range"][0] = "changed"
	if f.Header.Get("Content-Range") != "bytes 0-9/10" {
		t.Error("Apply() shares slices with the frame header")
	}
}

func TestSetCORS(t *testing.T) {
	h := http.Header{}
	SetCORS(h)

	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, HEAD, OPTIONS",
		"Access-Control-Allow-Headers": "Range, Authorization, User-Agent",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}
