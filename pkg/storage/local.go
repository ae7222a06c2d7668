package storage

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage keeps uploads on the local filesystem, organized into
// year/month/day directories.
type LocalStorage struct {
	basePath string
}

// LocalConfig configures local storage.
type LocalConfig struct {
	Path string // root directory for stored files
}

// NewLocalStorage creates a local storage rooted at the config path.
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving storage path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: absPath}, nil
}

// Save writes the stream under a generated ID, keeping the original
// extension so format detection works on the stored copy.
func (s *LocalStorage) Save(reader io.Reader, filename string) (FileInfo, error) {
	id := uuid.New().String()
	ext := filepath.Ext(filename)

	now := time.Now()
	datePath := filepath.Join(
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	dirPath := filepath.Join(s.basePath, datePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return FileInfo{}, fmt.Errorf("creating directory: %w", err)
	}

	filePath := filepath.Join(dirPath, id+ext)
	file, err := os.Create(filePath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		return FileInfo{}, fmt.Errorf("writing file: %w", err)
	}

	return FileInfo{
		ID:       id,
		Name:     filename,
		Size:     size,
		MimeType: MimeType(filename),
		Path:     filepath.Join(datePath, id+ext),
	}, nil
}

// Get opens a stored file by ID.
func (s *LocalStorage) Get(id string) (io.ReadCloser, error) {
	info, err := s.Stat(id)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.basePath, info.Path))
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return file, nil
}

// Stat returns a stored file's info by ID.
func (s *LocalStorage) Stat(id string) (FileInfo, error) {
	var found FileInfo
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := d.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) != id {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		found = FileInfo{
			ID:       id,
			Name:     name,
			Size:     info.Size(),
			MimeType: MimeType(name),
			Path:     relPath,
		}
		return fs.SkipAll
	})
	if err != nil {
		return FileInfo{}, fmt.Errorf("searching for file: %w", err)
	}
	if found.ID == "" {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return found, nil
}

// Delete removes a stored file.
func (s *LocalStorage) Delete(id string) error {
	info, err := s.Stat(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, info.Path)); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// List returns info for every stored file.
func (s *LocalStorage) List() ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		name := d.Name()
		files = append(files, FileInfo{
			ID:       strings.TrimSuffix(name, filepath.Ext(name)),
			Name:     name,
			Size:     info.Size(),
			MimeType: MimeType(name),
			Path:     relPath,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return files, nil
}
