package storage

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrFileNotFound means no stored file matches the given ID.
var ErrFileNotFound = errors.New("file not found")

// FileInfo describes a stored upload.
type FileInfo struct {
	ID       string // unique file identifier
	Name     string // original file name
	Size     int64  // size in bytes
	MimeType string // best-effort MIME type from the extension
	Path     string // backend-internal path
}

// Storage keeps uploaded source documents so they can be re-read at
// ingest time. Backends: local filesystem and MinIO object storage.
type Storage interface {
	// Save stores the stream and returns the file's info.
	Save(reader io.Reader, filename string) (FileInfo, error)

	// Get opens a stored file by ID.
	Get(id string) (io.ReadCloser, error)

	// Stat returns a stored file's info by ID.
	Stat(id string) (FileInfo, error)

	// Delete removes a stored file.
	Delete(id string) error

	// List returns info for every stored file.
	List() ([]FileInfo, error)
}

// MimeType guesses a MIME type from a file name's extension.
func MimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", ".text":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
