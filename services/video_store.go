package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// VideoStore serves stored motion clips as opaque byte streams keyed by the
// object key recorded on the MotionVideo row.
type VideoStore interface {
	Open(objectKey string) (io.ReadCloser, int64, error)
}

// FileVideoStore serves clips from a directory on local disk.
type FileVideoStore struct {
	root string
}

func NewFileVideoStore(root string) *FileVideoStore {
	return &FileVideoStore{root: root}
}

func (s *FileVideoStore) Open(objectKey string) (io.ReadCloser, int64, error) {
	// Clean against the root so a crafted key cannot escape the directory.
	path := filepath.Join(s.root, filepath.Clean("/"+objectKey))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("open video %q: %w", objectKey, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat video %q: %w", objectKey, err)
	}
	return f, stat.Size(), nil
}
