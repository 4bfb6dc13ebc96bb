package repository

import (
	"context"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores each key as one document of a collection
type Firestore struct {
	client     *firestore.Client
	collection string
}

type kvDocument struct {
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewFirestore creates a Firestore repository
func NewFirestore(ctx context.Context, projectID, databaseID, collection string, opts ...option.ClientOption) (*Firestore, error) {
	if projectID == "" {
		return nil, goerr.New("project ID is required for firestore")
	}
	if collection == "" {
		return nil, goerr.New("collection is required for firestore")
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	return &Firestore{
		client:     client,
		collection: collection,
	}, nil
}

func (f *Firestore) doc(key string) *firestore.DocumentRef {
	// document IDs must not contain '/'
	return f.client.Collection(f.collection).Doc(url.PathEscape(key))
}

func (f *Firestore) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := f.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, goerr.Wrap(ErrNotFound, "document not found", goerr.V("key", key))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("key", key))
	}

	var doc kvDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode document", goerr.V("key", key))
	}
	return doc.Value, nil
}

func (f *Firestore) Put(ctx context.Context, key string, data []byte) error {
	doc := kvDocument{
		Value:     data,
		UpdatedAt: time.Now(),
	}
	if _, err := f.doc(key).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to set document", goerr.V("key", key))
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, key string) error {
	if _, err := f.doc(key).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return goerr.Wrap(err, "failed to delete document", goerr.V("key", key))
	}
	return nil
}

// Close closes the firestore client
func (f *Firestore) Close() error {
	return f.client.Close()
}
