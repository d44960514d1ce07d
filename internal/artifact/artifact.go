package artifact

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Artifact is the single file the server publishes.
type Artifact struct {
	// Name is the URL name; the artifact is served at "/" + Name.
	Name string

	// Path is the absolute file system location.
	Path string
}

// New builds an Artifact for the file at filePath. When name is empty the
// file's base name is used.
func New(filePath, name string) (*Artifact, error) {
	if filePath == "" {
		return nil, fmt.Errorf("artifact path is required")
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact path: %w", err)
	}

	if name == "" {
		name = filepath.Base(abs)
	}
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid artifact name %q: must be a single path segment", name)
	}

	return &Artifact{Name: name, Path: abs}, nil
}

// URLPath returns the request path the artifact answers on.
func (a *Artifact) URLPath() string {
	return path.Join("/", a.Name)
}

// Matches reports whether a request path addresses this artifact.
func (a *Artifact) Matches(requestPath string) bool {
	return requestPath == a.URLPath()
}

// Stat returns the current length of the backing file.
func (a *Artifact) Stat() (int64, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", a.Path)
	}
	return info.Size(), nil
}

// Open opens the backing file read-only together with its current length.
// Each request gets its own handle.
func (a *Artifact) Open() (*os.File, int64, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%s is a directory", a.Path)
	}
	return f, info.Size(), nil
}

// URL returns the artifact URL on the given base (e.g. "http://10.0.0.5:8001").
func (a *Artifact) URL(base string) string {
	return strings.TrimSuffix(base, "/") + a.URLPath()
}

func (a *Artifact) String() string {
	return fmt.Sprintf("%s (%s)", a.URLPath(), a.Path)
}
