package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrNotFound is returned by Get when no value is stored under the key
	ErrNotFound = goerr.New("key not found")
)

// Repository is a key-value store of opaque blobs used to persist studio state
type Repository interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data under key, overwriting any previous value
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
