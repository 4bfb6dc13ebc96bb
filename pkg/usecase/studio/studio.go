package studio

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/adapter"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/repository"
	"github.com/m-mizutani/pollen/pkg/request"
	"github.com/m-mizutani/pollen/pkg/usecase/history"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
)

// TabKey is the repository key of the persisted tab
const TabKey = "tab"

var (
	ErrRecordNotFound     = goerr.New("record not found")
	ErrEmptyMessage       = goerr.New("message is empty")
	ErrImageUnavailable   = goerr.New("image is not reachable")
	ErrTextGeneratorUnset = goerr.New("text generator is not configured")
	ErrPromptDenied       = goerr.New("prompt denied by policy")
)

// NewInput holds the collaborators of UseCase
type NewInput struct {
	Repo   repository.Repository
	Text   adapter.TextGenerator
	Prober adapter.ImageProber
}

// UseCase provides the studio operations on top of an explicit State
type UseCase struct {
	repo   repository.Repository
	store  *history.Store
	text   adapter.TextGenerator
	prober adapter.ImageProber
	policy Policy

	textModel     string
	imageEndpoint string
	pruneFailed   bool
	audio         []model.AudioItem

	mu    sync.Mutex
	state State
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithTextModel sets the model used when a caller does not name one
func WithTextModel(name string) Option {
	return func(uc *UseCase) {
		uc.textModel = name
	}
}

// WithImageEndpoint sets the base URL of generated images
func WithImageEndpoint(endpoint string) Option {
	return func(uc *UseCase) {
		uc.imageEndpoint = endpoint
	}
}

// WithPruneFailedImages removes an image record again when its probe fails
func WithPruneFailedImages(prune bool) Option {
	return func(uc *UseCase) {
		uc.pruneFailed = prune
	}
}

// WithAudioLibrary replaces the built-in demo audio list
func WithAudioLibrary(items []model.AudioItem) Option {
	return func(uc *UseCase) {
		uc.audio = items
	}
}

// New creates a studio UseCase and restores the persisted history and tab
func New(ctx context.Context, input NewInput, opts ...Option) (*UseCase, error) {
	if input.Repo == nil {
		return nil, goerr.New("repository is required")
	}

	uc := &UseCase{
		repo:          input.Repo,
		store:         history.New(input.Repo),
		text:          input.Text,
		prober:        input.Prober,
		imageEndpoint: request.DefaultImageEndpoint,
		audio:         DefaultAudioLibrary,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.state = State{
		Tab:     uc.loadTab(ctx),
		History: uc.store.Load(ctx),
	}

	return uc, nil
}

func (uc *UseCase) loadTab(ctx context.Context) model.Kind {
	data, err := uc.repo.Get(ctx, TabKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logging.From(ctx).Warn("failed to load tab", "error", err)
		}
		return model.KindText
	}

	kind := model.Kind(strings.TrimSpace(string(data)))
	if err := kind.Validate(); err != nil {
		logging.From(ctx).Warn("ignoring stored tab", "error", err)
		return model.KindText
	}

	return kind
}

// resolveModel picks the explicit name, then WithTextModel, then the provider default
func (uc *UseCase) resolveModel(name string) string {
	if name != "" {
		return name
	}
	if uc.textModel != "" {
		return uc.textModel
	}
	if uc.text != nil {
		return uc.text.DefaultModel()
	}
	return ""
}

// persist saves the current history. Callers hold uc.mu.
func (uc *UseCase) persist(ctx context.Context) {
	if err := uc.store.Save(ctx, uc.state.History); err != nil {
		logging.From(ctx).Warn("failed to save history", "error", err)
	}
}

// Tab returns the active tab
func (uc *UseCase) Tab() model.Kind {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.state.Tab
}

// SetTab switches and persists the active tab
func (uc *UseCase) SetTab(ctx context.Context, kind model.Kind) error {
	if err := kind.Validate(); err != nil {
		return err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.setTab(ctx, kind)
}

func (uc *UseCase) setTab(ctx context.Context, kind model.Kind) error {
	uc.state.SetTab(kind)
	if err := uc.repo.Put(ctx, TabKey, []byte(kind)); err != nil {
		return goerr.Wrap(err, "failed to save tab", goerr.V("tab", kind))
	}
	return nil
}

// History returns a snapshot of the history, newest first
func (uc *UseCase) History() model.History {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return append(model.History{}, uc.state.History...)
}

// Messages returns a snapshot of the conversation
func (uc *UseCase) Messages() []model.Message {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return append([]model.Message{}, uc.state.Messages...)
}

// Stats returns the number of records per kind
func (uc *UseCase) Stats() map[model.Kind]int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.state.History.Counts()
}
