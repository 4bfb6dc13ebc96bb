package repository

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// File stores each key as a JSON file under a directory
type File struct {
	dir string
}

// NewFile creates the directory if needed
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, goerr.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to create data directory", goerr.V("dir", dir))
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
	// keys may contain '/' (namespaces); keep them as a single file name
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, goerr.Wrap(ErrNotFound, "file not found", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read file", goerr.V("key", key))
	}
	return data, nil
}

// Put writes to a temporary file and renames it, so a crash never leaves a torn value
func (f *File) Put(ctx context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".pollen-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file", goerr.V("key", key))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to write temp file", goerr.V("key", key))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temp file", goerr.V("key", key))
	}

	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return goerr.Wrap(err, "failed to rename file", goerr.V("key", key))
	}
	return nil
}

func (f *File) Delete(ctx context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to remove file", goerr.V("key", key))
	}
	return nil
}
