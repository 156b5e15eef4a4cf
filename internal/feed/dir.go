package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// DirSource reads feeds exported as <feed>.csv files in a directory.
type DirSource struct {
	Dir string
}

// NewDirSource creates a source reading from dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// Path returns the file feed f is read from.
func (s *DirSource) Path(f Feed) string {
	return filepath.Join(s.Dir, f.FileName())
}

// Available checks that the directory exists.
func (s *DirSource) Available(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fi, err := os.Stat(s.Dir)
	if err != nil {
		return fmt.Errorf("failed to stat export directory: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", s.Dir)
	}
	return nil
}

// Open opens the export of feed f. A missing file is a 404 StatusError.
func (s *DirSource) Open(ctx context.Context, f Feed) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.Path(f))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &StatusError{Feed: f, Code: http.StatusNotFound, Status: "404 Not Found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f, err)
	}
	return file, nil
}
