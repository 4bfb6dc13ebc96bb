package repository

import (
	"context"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/adapter"
)

// GCS stores each key as an object in a Cloud Storage bucket
type GCS struct {
	storage adapter.Storage
	prefix  string
}

// NewGCS wraps a storage adapter. prefix is prepended to every object name.
func NewGCS(storage adapter.Storage, prefix string) *GCS {
	return &GCS{storage: storage, prefix: prefix}
}

func (g *GCS) object(key string) string {
	return g.prefix + key + ".json"
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := g.storage.Get(ctx, g.object(key))
	if errors.Is(err, adapter.ErrObjectNotFound) {
		return nil, goerr.Wrap(ErrNotFound, "object not found", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get object", goerr.V("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("key", key))
	}
	return data, nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte) error {
	writer, err := g.storage.Put(ctx, g.object(key))
	if err != nil {
		return goerr.Wrap(err, "failed to create object writer", goerr.V("key", key))
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V("key", key))
	}

	// the object is committed on Close
	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close object writer", goerr.V("key", key))
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := g.storage.Delete(ctx, g.object(key)); err != nil && !errors.Is(err, adapter.ErrObjectNotFound) {
		return goerr.Wrap(err, "failed to delete object", goerr.V("key", key))
	}
	return nil
}
