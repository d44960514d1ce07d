package protocol

import (
	"net/http"
	"strconv"
)

// Header values shared by every artifact response.
const (
	ContentType   = "application/octet-stream"
	AcceptRanges  = RangeUnit
	AllowOrigin   = "*"
	AllowMethods  = "GET, HEAD, OPTIONS"
	AllowHeaders  = "Range, Authorization, User-Agent"
	ExposeHeaders = "Content-Length, Content-Range, Accept-Ranges"
)

// Frame is the status line and header set for one artifact response.
type Frame struct {
	Status int       // 200 or 206
	Range  ByteRange // Bytes the body will carry
	Size   int64     // Total artifact length
	Header http.Header
}

// NewFrame builds the response frame for a resolved range. rangeRequested
// reports whether the request carried a Range header; only then is the reply
// 206 with a Content-Range.
func NewFrame(r ByteRange, rangeRequested bool, size int64) *Frame {
	h := make(http.Header)
	h.Set("Accept-Ranges", AcceptRanges)
	h.Set("Content-Type", ContentType)

	status := http.StatusOK
	if rangeRequested {
		status = http.StatusPartialContent
		h.Set("Content-Range", r.ContentRange(size))
		h.Set("Content-Length", strconv.FormatInt(r.Length(), 10))
	} else {
		r = FullRange(size)
		h.Set("Content-Length", strconv.FormatInt(size, 10))
	}

	return &Frame{
		Status: status,
		Range:  r,
		Size:   size,
		Header: h,
	}
}

// Apply copies the frame headers into dst, replacing existing values.
func (f *Frame) Apply(dst http.Header) {
	for k, v := range f.Header {
		dst[k] = append([]string(nil), v...)
	}
}

// Partial reports whether the frame answers a range request.
func (f *Frame) Partial() bool {
	return f.Status == http.StatusPartialContent
}

// SetCORS attaches the permissive CORS policy used for local development.
// It is applied to every response, errors included.
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
	h.Set("Access-Control-Expose-Headers", ExposeHeaders)
}
