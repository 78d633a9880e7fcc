package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	basePath string
}

var _ BlobStorage = (*LocalStorage)(nil)

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

// getPathFromID fans blobs out into one directory level per character.
func (ls *LocalStorage) getPathFromID(ref string) string {
	pathParts := strings.Split(ref, "")
	return filepath.Join(ls.basePath, filepath.Join(pathParts...))
}

func (ls *LocalStorage) Save(ctx context.Context, ref string, data io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := ls.getPathFromID(ref)
	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return err
	}

	if _, err := io.Copy(file, data); err != nil {
		file.Close()
		os.Remove(filePath)
		return err
	}
	return file.Close()
}

func (ls *LocalStorage) Get(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(ls.getPathFromID(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", ref, ErrNotFound)
		}
		return nil, err
	}

	return file, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, ref string) error {
	err := os.Remove(ls.getPathFromID(ref))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
