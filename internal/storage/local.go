package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// UploadsPath is the URL prefix local blobs are served under.
const UploadsPath = "/uploads"

// LocalBlobStore writes blobs into a directory served by the HTTP boundary.
type LocalBlobStore struct {
	dir        string
	publicBase string
}

// NewLocalBlobStore creates dir if needed.
func NewLocalBlobStore(dir, publicBase string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &LocalBlobStore{
		dir:        dir,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Dir returns the directory blobs are written to.
func (s *LocalBlobStore) Dir() string {
	return s.dir
}

func (s *LocalBlobStore) Put(_ context.Context, name, _ string, body io.Reader, _ int64) (string, error) {
	name = filepath.Base(name)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create blob %s: %w", name, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close blob %s: %w", name, err)
	}
	return s.publicBase + UploadsPath + "/" + name, nil
}
