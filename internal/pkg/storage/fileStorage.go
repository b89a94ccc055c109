package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("path escapes storage root")

type FileStorage interface {
	Save(path string, data io.Reader) error
	Get(path string) (io.ReadCloser, error)
	Delete(path string) error
	Exists(path string) bool
}

type fileStorage struct {
	basePath string
}

func NewFileStorage(basePath string) FileStorage {
	return &fileStorage{basePath: basePath}
}

func (s *fileStorage) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if strings.Contains(path, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.basePath, clean), nil
}

// Save writes to a temporary file first and renames it into place, so readers
// never observe a partially written artifact.
func (s *fileStorage) Save(path string, data io.Reader) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	// Создаем директорию если нужно
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fullPath)
}

func (s *fileStorage) Get(path string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(fullPath)
}

// Delete removes a file or a whole directory tree.
func (s *fileStorage) Delete(path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullPath); err != nil {
		return err
	}
	return os.RemoveAll(fullPath)
}

func (s *fileStorage) Exists(path string) bool {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return !os.IsNotExist(err)
}
