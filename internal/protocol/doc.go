// Package protocol implements the HTTP byte-range contract for the served
// artifact.
//
// It has two halves: ParseRange turns a Range header into a concrete
// ByteRange against the artifact length, and NewFrame turns that range into a
// status code plus header set. Neither touches the network or the file system.
//
// # Range Syntax
//
// Only single ranges in the bytes unit are accepted:
//
//	bytes=100-199   -> [100, 199]
//	bytes=100-      -> [100, L-1]
//	bytes=-100      -> [L-100, L-1]   (last 100 bytes)
//
// Bounds past the end are clamped, so bytes=5000- against a 1000 byte artifact
// selects [999, 999]. Anything else is a *RangeError, which the server answers
// with 416 and "Content-Range: bytes */L".
//
// # Response Frames
//
//	no Range header  -> 200, Content-Length: L
//	Range header     -> 206, Content-Length: end-start+1, Content-Range: bytes start-end/L
//
// Both carry Accept-Ranges: bytes and Content-Type: application/octet-stream.
// SetCORS adds the permissive CORS headers that every response carries.
package protocol
