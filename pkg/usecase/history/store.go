package history

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/repository"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
)

var (
	// ErrUnsupportedVersion is returned when the stored envelope was written by a newer schema
	ErrUnsupportedVersion = goerr.New("unsupported history schema version")
	// ErrCorrupted is returned when stored data can not be decoded
	ErrCorrupted = goerr.New("corrupted history data")
)

// Schema identifies where and in which layout history is persisted
type Schema struct {
	Key     string
	Version int
}

// CurrentSchema is the layout written by Save
var CurrentSchema = Schema{Key: "history", Version: 2}

type envelope struct {
	Version int           `json:"version"`
	Records model.History `json:"records"`
}

// Store persists the bounded history list through a key-value repository
type Store struct {
	repo   repository.Repository
	schema Schema
}

// New creates a history store on top of repo
func New(repo repository.Repository) *Store {
	return &Store{
		repo:   repo,
		schema: CurrentSchema,
	}
}

// Load returns the persisted history. It never fails: missing, unreadable or
// unsupported data yields an empty list and a warning.
func (s *Store) Load(ctx context.Context) model.History {
	logger := logging.From(ctx)

	h, err := s.load(ctx)
	if err != nil {
		logger.Warn("failed to load history, starting empty", "error", err)
		return model.History{}
	}

	return h
}

func (s *Store) load(ctx context.Context) (model.History, error) {
	data, err := s.repo.Get(ctx, s.schema.Key)
	if errors.Is(err, repository.ErrNotFound) {
		return s.loadLegacy(ctx)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read history", goerr.V("key", s.schema.Key))
	}

	return decodeEnvelope(data, s.schema.Version)
}

func (s *Store) loadLegacy(ctx context.Context) (model.History, error) {
	data, err := s.repo.Get(ctx, LegacyKey)
	if errors.Is(err, repository.ErrNotFound) {
		return model.History{}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read legacy history", goerr.V("key", LegacyKey))
	}

	h, err := migrateLegacy(data)
	if err != nil {
		return nil, err
	}

	logging.From(ctx).Info("migrated legacy history", "records", len(h))
	return h, nil
}

func decodeEnvelope(data []byte, supported int) (model.History, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, goerr.Wrap(ErrCorrupted, "failed to decode history", goerr.V("cause", err.Error()))
	}
	if env.Version < 1 {
		return nil, goerr.Wrap(ErrCorrupted, "history envelope has no version")
	}
	if env.Version > supported {
		return nil, goerr.Wrap(ErrUnsupportedVersion, "history written by a newer schema",
			goerr.V("version", env.Version),
			goerr.V("supported", supported),
		)
	}

	return sanitize(env.Records), nil
}

// sanitize drops entries that can not be shown and enforces the invariants of model.History
func sanitize(records model.History) model.History {
	h := make(model.History, 0, len(records))
	seen := make(map[model.RecordID]struct{}, len(records))

	for _, r := range records {
		if r == nil || r.ID == "" || r.Kind.Validate() != nil {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		h = append(h, r)
		if len(h) == model.MaxHistory {
			break
		}
	}

	return h
}

// Save persists the full list, replacing whatever was stored before
func (s *Store) Save(ctx context.Context, h model.History) error {
	if h == nil {
		h = model.History{}
	}

	data, err := json.Marshal(envelope{
		Version: s.schema.Version,
		Records: h,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to encode history")
	}

	if err := s.repo.Put(ctx, s.schema.Key, data); err != nil {
		return goerr.Wrap(err, "failed to write history", goerr.V("key", s.schema.Key))
	}

	return nil
}

// Insert prepends r and truncates to model.MaxHistory. h is not modified.
func Insert(r *model.Record, h model.History) model.History {
	return h.Insert(r)
}

// Clear removes persisted history, including data left by the legacy layout
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{s.schema.Key, LegacyKey} {
		if err := s.repo.Delete(ctx, key); err != nil {
			return goerr.Wrap(err, "failed to clear history", goerr.V("key", key))
		}
	}
	return nil
}
