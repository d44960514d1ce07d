package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/plantmeet/modelserve/internal/artifact"
	"github.com/plantmeet/modelserve/internal/logging"
	"github.com/plantmeet/modelserve/internal/protocol"
)

// Router answers GET, HEAD and OPTIONS for exactly one artifact. Every other
// path is 404 and every other method on the artifact path is 405.
type Router struct {
	artifact *artifact.Artifact
	tx       *Transmitter

	// open returns a read handle on the artifact and its current length.
	open func() (source, int64, error)
}

// source is the artifact content backing one GET.
type source interface {
	io.ReaderAt
	io.Closer
}

// NewRouter creates a Router serving a through tx. A nil tx uses the
// default chunk size.
func NewRouter(a *artifact.Artifact, tx *Transmitter) *Router {
	if tx == nil {
		tx = NewTransmitter(DefaultChunkSize)
	}
	rt := &Router{artifact: a, tx: tx}
	rt.open = rt.openArtifact
	return rt
}

func (rt *Router) openArtifact() (source, int64, error) {
	f, size, err := rt.artifact.Open()
	if err != nil {
		return nil, 0, err
	}
	return f, size, nil
}

// Artifact returns the artifact this router serves.
func (rt *Router) Artifact() *artifact.Artifact {
	return rt.artifact
}

// ServeHTTP implements http.Handler
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	rec := &responseRecorder{ResponseWriter: w}

	defer func() {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, r.Header.Get("Range"),
			rec.Status(), rec.bytes, time.Since(started))
	}()

	protocol.SetCORS(rec.Header())

	switch r.Method {
	case http.MethodGet:
		rt.serveGet(rec, r)
	case http.MethodHead:
		rt.serveHead(rec, r)
	case http.MethodOptions:
		rec.Header().Set("Content-Length", "0")
		rec.WriteHeader(http.StatusOK)
	default:
		if !rt.artifact.Matches(r.URL.Path) {
			rt.writeError(rec, &ServeError{Type: ErrTypeNotFound, Message: "File not found"})
			return
		}
		rec.Header().Set("Allow", protocol.AllowMethods)
		http.Error(rec, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (rt *Router) serveHead(w http.ResponseWriter, r *http.Request) {
	if !rt.artifact.Matches(r.URL.Path) {
		rt.writeError(w, &ServeError{Type: ErrTypeNotFound, Message: "File not found"})
		return
	}

	size, err := rt.artifact.Stat()
	if err != nil {
		rt.writeOpenError(w, err)
		return
	}

	frame := protocol.NewFrame(protocol.FullRange(size), false, size)
	frame.Apply(w.Header())
	w.WriteHeader(frame.Status)
}

func (rt *Router) serveGet(w http.ResponseWriter, r *http.Request) {
	if !rt.artifact.Matches(r.URL.Path) {
		rt.writeError(w, &ServeError{Type: ErrTypeNotFound, Message: "File not found"})
		return
	}

	src, size, err := rt.open()
	if err != nil {
		rt.writeOpenError(w, err)
		return
	}
	defer func() { _ = src.Close() }()

	rangeHeader := strings.TrimSpace(r.Header.Get("Range"))
	rng, err := protocol.ParseRange(rangeHeader, size)
	if err != nil {
		logging.Debug("Rejected range request",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		w.Header().Set("Content-Range", protocol.UnsatisfiedContentRange(size))
		rt.writeError(w, &ServeError{Type: ErrTypeMalformedRange, Message: "Requested range not satisfiable", Err: err})
		return
	}

	frame := protocol.NewFrame(rng, rangeHeader != "", size)
	tr, err := rt.tx.Send(r.Context(), w, src, frame)
	if err == nil {
		logging.LogTransfer(r.RemoteAddr, tr.Range.Start, tr.Range.End, tr.Sent, tr.ShortRead)
		return
	}

	if IsType(err, ErrTypePeerDisconnected) {
		logging.LogDisconnect(r.RemoteAddr, tr.Sent, tr.Expected, err)
		return
	}

	logging.Error("Failed to serve artifact",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("range", tr.Range.String()),
		zap.Int64("sent", tr.Sent),
		zap.Bool("headers_sent", tr.Committed),
		zap.Error(err),
	)
	if !tr.Committed {
		rt.writeError(w, &ServeError{Type: ErrTypeServing, Message: "Internal server error", Err: err})
		return
	}
	// The status line is already out; dropping the connection is the only
	// way left to tell the client the body is incomplete.
	panic(http.ErrAbortHandler)
}

// writeOpenError answers a failure to stat or open the backing file.
func (rt *Router) writeOpenError(w http.ResponseWriter, err error) {
	if errors.Is(err, os.ErrNotExist) {
		logging.Warn("Artifact missing from disk", zap.String("path", rt.artifact.Path))
		rt.writeError(w, &ServeError{Type: ErrTypeNotFound, Message: "Model file not found", Err: err})
		return
	}
	logging.Error("Failed to open artifact", zap.String("path", rt.artifact.Path), zap.Error(err))
	rt.writeError(w, &ServeError{Type: ErrTypeServing, Message: "Internal server error", Err: err})
}

// writeError sends a plain-text error reply. Internal causes are logged, not
// returned to the client.
func (rt *Router) writeError(w http.ResponseWriter, se *ServeError) {
	status := se.Type.StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	http.Error(w, se.Message, status)
}

// responseRecorder captures the status and body size for request logging.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

// Status returns the status written so far, 200 if none was set explicitly.
func (r *responseRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
