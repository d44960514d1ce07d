package server

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/plantmeet/modelserve/internal/artifact"
)

// writeArtifact writes size deterministic pseudo-random bytes to a temp file
// and returns the artifact and its content.
func writeArtifact(t *testing.T, name string, size int) (*artifact.Artifact, []byte) {
	t.Helper()

	data := make([]byte, size)
	rand.New(rand.NewSource(int64(size))).Read(data)

	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	a, err := artifact.New(p, "")
	if err != nil {
		t.Fatalf("artifact.New() error = %v", err)
	}
	return a, data
}

// readCloser adapts a ReaderAt into a router source.
type readCloser struct {
	io.ReaderAt
	close func()
}

func (r readCloser) Close() error {
	if r.close != nil {
		r.close()
	}
	return nil
}

// failAfter serves reads below limit from r and fails every read at or past it.
type failAfter struct {
	r     io.ReaderAt
	limit int64
	err   error
}

func (f failAfter) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.limit {
		return 0, f.err
	}
	if rest := f.limit - off; int64(len(p)) > rest {
		n, err := f.r.ReadAt(p[:rest], off)
		if err == nil {
			err = f.err
		}
		return n, err
	}
	return f.r.ReadAt(p, off)
}
