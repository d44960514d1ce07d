package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
)

// ErrorType represents the category of a serving or startup failure
type ErrorType int

const (
	// ErrTypeMalformedRange indicates an unparseable or unsatisfiable Range header (416)
	ErrTypeMalformedRange ErrorType = iota
	// ErrTypeNotFound indicates a request for anything but the artifact (404)
	ErrTypeNotFound
	// ErrTypePeerDisconnected indicates the client went away mid-transfer
	ErrTypePeerDisconnected
	// ErrTypeServing indicates a local I/O fault while answering a request
	ErrTypeServing
	// ErrTypePortInUse indicates the listen address is held by another socket
	ErrTypePortInUse
	// ErrTypePreflight indicates the artifact failed validation before startup
	ErrTypePreflight
	// ErrTypeBind indicates any other listen failure
	ErrTypeBind
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeMalformedRange:
		return "Malformed Range"
	case ErrTypeNotFound:
		return "Resource Not Found"
	case ErrTypePeerDisconnected:
		return "Peer Disconnected"
	case ErrTypeServing:
		return "Serving Error"
	case ErrTypePortInUse:
		return "Port In Use"
	case ErrTypePreflight:
		return "Preflight Failed"
	case ErrTypeBind:
		return "Bind Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// StatusCode returns the HTTP status a request-scoped error maps to, or 0 when
// the error never reaches the client.
func (et ErrorType) StatusCode() int {
	switch et {
	case ErrTypeMalformedRange:
		return http.StatusRequestedRangeNotSatisfiable
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeServing:
		return http.StatusInternalServerError
	default:
		return 0
	}
}

// ServeError is the error type returned by the server package
type ServeError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *ServeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ServeError) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a *ServeError of the given type.
func IsType(err error, t ErrorType) bool {
	var se *ServeError
	return errors.As(err, &se) && se.Type == t
}

// NewPortInUseError reports an occupied listen port and suggests the next one.
func NewPortInUseError(port int, err error) *ServeError {
	return &ServeError{
		Type:    ErrTypePortInUse,
		Message: fmt.Sprintf("port %d is already in use, try --port %d", port, port+1),
		Err:     err,
	}
}

// IsPeerDisconnect reports whether err is the client going away: EOF, a closed
// connection, broken pipe, connection reset, an expired write deadline or a
// cancelled request context.
func IsPeerDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	if errors.Is(err, http.ErrHandlerTimeout) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET || errno == syscall.ECONNABORTED
	}
	return false
}

// ClassifyWriteError maps a failed response write to PeerDisconnected or
// Serving. ctx is the request context; a cancelled context means the client
// is gone no matter what the write returned.
func ClassifyWriteError(ctx context.Context, err error) *ServeError {
	if err == nil {
		return nil
	}
	if IsPeerDisconnect(err) || (ctx != nil && ctx.Err() != nil) {
		return &ServeError{
			Type:    ErrTypePeerDisconnected,
			Message: "client closed the connection",
			Err:     err,
		}
	}
	return &ServeError{
		Type:    ErrTypeServing,
		Message: "failed to write response",
		Err:     err,
	}
}

// isAddrInUse reports whether a listen error is EADDRINUSE.
func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
