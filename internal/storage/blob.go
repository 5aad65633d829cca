// Package storage persists uploaded avatar images and returns the public
// URL each one is served from.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// defaultExt is used for uploads whose file name has no extension.
const defaultExt = ".png"

// BlobStore stores a blob under name and returns its public URL.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error)
}

// ObjectName derives a collision-free object name from an uploaded file
// name, keeping only its extension.
func ObjectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || ext == "." {
		ext = defaultExt
	}
	return uuid.NewString() + ext
}
