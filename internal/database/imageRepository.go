package database

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ds124wfegd/imgenhance/internal/pkg/storage"
)

const (
	originalDir = "original"
	resultDir   = "enhanced"
)

type fileImageRepository struct {
	storage storage.FileStorage
}

func NewImageRepository(storage storage.FileStorage) ImageRepository {
	return &fileImageRepository{storage: storage}
}

func (r *fileImageRepository) SaveOriginal(id string, data io.Reader) error {
	return r.storage.Save(filepath.Join(originalDir, id), data)
}

func (r *fileImageRepository) Original(id string) (io.ReadCloser, error) {
	return r.storage.Get(filepath.Join(originalDir, id))
}

func (r *fileImageRepository) SaveResult(id string, data io.Reader) error {
	return r.storage.Save(filepath.Join(resultDir, id+".png"), data)
}

func (r *fileImageRepository) Result(id string) (io.ReadCloser, error) {
	return r.storage.Get(filepath.Join(resultDir, id+".png"))
}

func (r *fileImageRepository) Delete(id string) error {
	if err := r.storage.Delete(filepath.Join(originalDir, id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := r.storage.Delete(filepath.Join(resultDir, id+".png")); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
