package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/plantmeet/modelserve/internal/protocol"
)

// DefaultChunkSize is the read/write unit for body transfers (64 KiB)
const DefaultChunkSize = 64 * 1024

// Transmitter streams a byte range from the artifact to a response in
// bounded chunks.
type Transmitter struct {
	ChunkSize int
}

// NewTransmitter creates a Transmitter; chunkSize <= 0 selects DefaultChunkSize.
func NewTransmitter(chunkSize int) *Transmitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Transmitter{ChunkSize: chunkSize}
}

// Transfer records what happened to one response body.
type Transfer struct {
	Range     protocol.ByteRange
	Expected  int64 // Bytes promised by Content-Length
	Sent      int64 // Bytes accepted by the response writer
	Committed bool  // Status line and headers were written
	ShortRead bool  // The file ran out before Expected bytes were read
}

// Send writes frame's status and headers followed by the bytes of frame.Range
// read from src.
//
// Headers are committed only once the first chunk has been read, so a read
// failure up front leaves the response untouched and the caller can still
// answer 500. The returned error is a *ServeError of type
// ErrTypePeerDisconnected or ErrTypeServing; the Transfer is always non-nil.
func (t *Transmitter) Send(ctx context.Context, w http.ResponseWriter, src io.ReaderAt, frame *protocol.Frame) (*Transfer, error) {
	tr := &Transfer{
		Range:    frame.Range,
		Expected: frame.Range.Length(),
	}

	commit := func() {
		if tr.Committed {
			return
		}
		frame.Apply(w.Header())
		w.WriteHeader(frame.Status)
		tr.Committed = true
	}

	if tr.Expected <= 0 {
		commit()
		return tr, nil
	}

	chunkSize := t.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, min(int64(chunkSize), tr.Expected))

	section := io.NewSectionReader(src, frame.Range.Start, tr.Expected)
	remaining := tr.Expected

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return tr, &ServeError{
				Type:    ErrTypePeerDisconnected,
				Message: "request cancelled before transfer finished",
				Err:     err,
			}
		}

		n, readErr := section.Read(buf[:min(int64(len(buf)), remaining)])
		if n > 0 {
			commit()
			written, writeErr := w.Write(buf[:n])
			tr.Sent += int64(written)
			remaining -= int64(written)
			if writeErr != nil {
				return tr, ClassifyWriteError(ctx, writeErr)
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return tr, &ServeError{
				Type:    ErrTypeServing,
				Message: "failed to read artifact",
				Err:     readErr,
			}
		}
		if n == 0 {
			// A reader returning (0, nil) makes no progress; treat it like EOF.
			break
		}
	}

	if remaining > 0 {
		tr.ShortRead = true
		if !tr.Committed {
			return tr, &ServeError{
				Type:    ErrTypeServing,
				Message: "artifact ended before the requested range",
				Err:     io.ErrUnexpectedEOF,
			}
		}
	}
	return tr, nil
}
