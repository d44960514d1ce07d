package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plantmeet/modelserve/internal/logging"
	"github.com/plantmeet/modelserve/internal/version"
)

const (
	// DefaultTimeout bounds connecting and waiting for response headers. The
	// body itself may take as long as it needs.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the initial delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultBufferSize is the copy buffer for response bodies (1 MiB)
	DefaultBufferSize = 1 << 20
)

// ProgressFunc receives the bytes on disk and the total size (0 if unknown).
type ProgressFunc func(done, total int64)

// Client downloads a single file with resume support
type Client struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Token is sent as a Bearer token when set
	Token string

	// UserAgent is sent with every request
	UserAgent string

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// BufferSize is the read size for the response body
	BufferSize int
}

// NewClient creates a download client with default settings
func NewClient() *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = DefaultTimeout

	return &Client{
		HTTPClient:    &http.Client{Transport: transport},
		UserAgent:     version.UserAgent("modelfetch"),
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		BufferSize:    DefaultBufferSize,
	}
}

// Request describes one download
type Request struct {
	URL    string
	Output string
	// ExpectedSize is checked against the remote size and the finished file;
	// 0 disables the check.
	ExpectedSize int64
}

// RemoteInfo is what a HEAD request reveals about the file
type RemoteInfo struct {
	Size         int64 // 0 when the server sent no Content-Length
	AcceptRanges bool
}

// Result describes a finished download
type Result struct {
	Path        string
	Size        int64
	ResumedFrom int64 // Bytes already on disk when the download started
	Skipped     bool  // The local file was already complete
	Restarted   bool  // The server ignored a Range request; the file was rewritten
	Attempts    int
	Duration    time.Duration
}

// Probe issues a HEAD request for url.
func (c *Client) Probe(ctx context.Context, url string) (*RemoteInfo, error) {
	var info *RemoteInfo
	err := c.retry(ctx, func(attempt int) error {
		var err error
		info, err = c.probeAttempt(ctx, url)
		return err
	})
	return info, err
}

func (c *Client) probeAttempt(ctx context.Context, url string) (*RemoteInfo, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError("HEAD request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode)
	}

	info := &RemoteInfo{
		AcceptRanges: strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes"),
	}
	if resp.ContentLength > 0 {
		info.Size = resp.ContentLength
	}
	return info, nil
}

// Download fetches req.URL into req.Output. An existing partial file is
// resumed with a Range request; a complete one is left alone. Transient
// failures are retried with exponential backoff, each retry resuming from
// the bytes already written.
func (c *Client) Download(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	started := time.Now()
	if onProgress == nil {
		onProgress = func(int64, int64) {}
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), 0755); err != nil {
		return nil, NewIOError("failed to create output directory", err)
	}

	info, err := c.Probe(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	total := info.Size
	if req.ExpectedSize > 0 {
		if total > 0 && total != req.ExpectedSize {
			return nil, &FetchError{
				Type:    ErrTypeSize,
				Message: fmt.Sprintf("remote file is %d bytes, expected %d", total, req.ExpectedSize),
			}
		}
		total = req.ExpectedSize
	}

	result := &Result{Path: req.Output}

	existing, err := localSize(req.Output)
	if err != nil {
		return nil, err
	}
	result.ResumedFrom = existing

	logging.Info("Starting download",
		zap.String("url", req.URL),
		zap.String("output", req.Output),
		zap.Int64("remote_size", total),
		zap.Int64("local_size", existing),
	)

	switch {
	case total > 0 && existing == total:
		result.Skipped = true
		onProgress(existing, total)
	case total > 0 && existing > total:
		logging.Warn("Local file is larger than the remote one, starting over",
			zap.Int64("local_size", existing),
			zap.Int64("remote_size", total),
		)
		if err := os.Truncate(req.Output, 0); err != nil {
			return nil, NewIOError("failed to truncate oversized file", err)
		}
		result.ResumedFrom = 0
		result.Restarted = true
		fallthrough
	default:
		err = c.retry(ctx, func(attempt int) error {
			result.Attempts = attempt
			return c.downloadAttempt(ctx, req.URL, req.Output, total, result, onProgress)
		})
		if err != nil {
			return result, err
		}
	}

	size, err := localSize(req.Output)
	if err != nil {
		return result, err
	}
	result.Size = size
	result.Duration = time.Since(started)

	if total > 0 && size != total {
		return result, &FetchError{
			Type:    ErrTypeSize,
			Message: fmt.Sprintf("downloaded file is %d bytes, expected %d", size, total),
		}
	}

	logging.Info("Download complete",
		zap.String("output", req.Output),
		zap.Int64("size", size),
		zap.Int("attempts", result.Attempts),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// downloadAttempt performs a single GET, resuming from the current file size
func (c *Client) downloadAttempt(ctx context.Context, url, output string, total int64, result *Result, onProgress ProgressFunc) error {
	offset, err := localSize(output)
	if err != nil {
		return err
	}
	if total > 0 && offset >= total {
		return nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ClassifyNetworkError("GET request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, err := parseContentRangeStart(resp.Header.Get("Content-Range"))
		if err != nil || start != offset {
			return &FetchError{
				Type:    ErrTypeRange,
				Message: fmt.Sprintf("asked for bytes from %d, server sent %q", offset, resp.Header.Get("Content-Range")),
				Err:     err,
			}
		}
		flags |= os.O_APPEND
	case http.StatusOK:
		if offset > 0 {
			logging.Warn("Server ignored the range request, restarting from zero",
				zap.Int64("offset", offset),
			)
			result.Restarted = true
			offset = 0
		}
		flags |= os.O_TRUNC
	case http.StatusRequestedRangeNotSatisfiable:
		// Nothing left to send: the file on disk is already complete.
		if offset > 0 && total <= 0 {
			return nil
		}
		return NewHTTPError(resp.StatusCode)
	default:
		return NewHTTPError(resp.StatusCode)
	}

	if total <= 0 && resp.ContentLength > 0 {
		total = offset + resp.ContentLength
	}

	f, err := os.OpenFile(output, flags, 0644)
	if err != nil {
		return NewIOError("failed to open output file", err)
	}
	defer func() { _ = f.Close() }()

	return c.copyBody(f, resp.Body, offset, total, onProgress)
}

// copyBody streams body to f, reporting progress after each write
func (c *Client) copyBody(f *os.File, body io.Reader, offset, total int64, onProgress ProgressFunc) error {
	size := c.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	buf := make([]byte, size)
	done := offset
	onProgress(done, total)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return NewIOError("failed to write output file", err)
			}
			done += int64(n)
			onProgress(done, total)
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			logging.Warn("Transfer interrupted",
				zap.Int64("bytes_on_disk", done),
				zap.Error(readErr),
			)
			return newBodyError(readErr)
		}
	}
}

// retry runs op until it succeeds, fails with a non-retryable error or the
// retry budget is spent. attempt is 1-based.
func (c *Client) retry(ctx context.Context, op func(attempt int) error) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Info("Retrying download",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", currentDelay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ClassifyNetworkError("download cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			// Exponential backoff
			currentDelay *= 2
			if c.MaxRetryDelay > 0 && currentDelay > c.MaxRetryDelay {
				currentDelay = c.MaxRetryDelay
			}
		}

		err := op(attempt + 1)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ClassifyNetworkError("download cancelled", ctx.Err())
		}
		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, &FetchError{Type: ErrTypeHTTP, Message: "invalid URL", Err: err}
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

// localSize returns the size of path, 0 if it does not exist
func localSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, NewIOError("failed to stat output file", err)
	}
	if !info.Mode().IsRegular() {
		return 0, NewIOError(fmt.Sprintf("%s is not a regular file", path), nil)
	}
	return info.Size(), nil
}

// parseContentRangeStart extracts N from "bytes N-M/L".
func parseContentRangeStart(v string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(v), "bytes ")
	if !ok {
		return 0, fmt.Errorf("unsupported Content-Range %q", v)
	}
	startStr, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, fmt.Errorf("malformed Content-Range %q", v)
	}
	return strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
}
