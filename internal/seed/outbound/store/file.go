package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
)

// DefaultFilePath is where the file driver keeps the seed unless configured.
const DefaultFilePath = "/data/seed.txt"

// File stores the seed as a text file. Writes go to a temporary file in the
// same directory that is then renamed over the target, so readers see either
// the old or the new seed and never a partial one.
type File struct {
	path string
}

// NewFile returns a file store for path, or DefaultFilePath when path is empty.
func NewFile(path string) *File {
	if path == "" {
		path = DefaultFilePath
	}
	return &File{path: path}
}

// Path returns the seed file location.
func (f *File) Path() string {
	return f.path
}

// Write implements Store.
func (f *File) Write(ctx context.Context, seed string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: create dir: %w", ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, ".seed-*")
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", ErrStorage, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.WriteString(seed); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write: %w", ErrStorage, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: chmod: %w", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrStorage, err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrStorage, err)
	}

	return nil
}

// Read implements Store.
func (f *File) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", goerror.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: read: %w", ErrStorage, err)
	}

	return normalize(string(data))
}

// Close implements io.Closer.
func (*File) Close() error {
	return nil
}
