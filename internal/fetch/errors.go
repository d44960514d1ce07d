package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of a download failure
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (reset, unexpected EOF, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request or read timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening at the URL
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeAuth indicates the server rejected the token (401/403)
	ErrTypeAuth
	// ErrTypeHTTP indicates any other unexpected status code
	ErrTypeHTTP
	// ErrTypeRange indicates the server answered a different range than requested
	ErrTypeRange
	// ErrTypeSize indicates the file does not have the expected length
	ErrTypeSize
	// ErrTypeIO indicates a local file system error
	ErrTypeIO
	// ErrTypeCancelled indicates the caller cancelled the download
	ErrTypeCancelled
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeRange:
		return "Range Error"
	case ErrTypeSize:
		return "Size Mismatch"
	case ErrTypeIO:
		return "File Error"
	case ErrTypeCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// FetchError is the error type returned by the fetch package
type FetchError struct {
	Type       ErrorType
	Message    string
	StatusCode int   // HTTP status code (if applicable)
	Err        error // Underlying error (if any)
	Retryable  bool  // Whether another attempt may succeed
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a more specific
// error type.
func ClassifyNetworkError(message string, err error) *FetchError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &FetchError{Type: ErrTypeCancelled, Message: message, Err: err}
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("%s: cannot resolve %s", message, dnsErr.Name),
			Err:       err,
			Retryable: dnsErr.IsTemporary,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &FetchError{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(message, urlErr.Err)
	}

	return &FetchError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// NewHTTPError creates an error for an unexpected status code
func NewHTTPError(statusCode int) *FetchError {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &FetchError{
			Type:       ErrTypeAuth,
			Message:    fmt.Sprintf("server returned %d (check the token)", statusCode),
			StatusCode: statusCode,
		}
	}
	return &FetchError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
		// Server errors and throttling are retryable
		Retryable: statusCode >= 500 || statusCode == http.StatusTooManyRequests,
	}
}

// NewIOError wraps a local file system error
func NewIOError(message string, err error) *FetchError {
	return &FetchError{Type: ErrTypeIO, Message: message, Err: err}
}

// newBodyError classifies a failure while reading the response body. A body
// cut short is the typical transient failure a resume recovers from.
func newBodyError(err error) *FetchError {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &FetchError{Type: ErrTypeNetwork, Message: "connection closed mid-transfer", Err: err, Retryable: true}
	}
	return ClassifyNetworkError("failed to read response body", err)
}

// IsType reports whether err is a *FetchError of the given type.
func IsType(err error, t ErrorType) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == t
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// Hints returns troubleshooting suggestions for an error
func Hints(err error) []string {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return nil
	}

	switch fe.Type {
	case ErrTypeConnectionRefused:
		return []string{
			"Check that modelserve is running on the other machine",
			"Verify the port (default 8001)",
			"Try modelfetch --discover to find servers on the LAN",
		}
	case ErrTypeTimeout, ErrTypeNetwork:
		return []string{
			"Run the same command again; the download resumes where it stopped",
			"Check the Wi-Fi connection",
		}
	case ErrTypeDNS:
		return []string{"Use the server's IP address instead of its hostname"}
	case ErrTypeAuth:
		return []string{
			"Set HF_TOKEN or pass --token",
			"Accept the model license on the hosting site",
		}
	case ErrTypeSize:
		return []string{
			"Delete the partial file and download again",
			"Check --expected-size matches the published model",
		}
	case ErrTypeIO:
		return []string{"Check free disk space and write permission for the output directory"}
	default:
		return nil
	}
}
