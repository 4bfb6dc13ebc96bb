package studio

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
)

// savedPromptLength is how much of a saved reply becomes its prompt
const savedPromptLength = 80

// SaveMessage stores an assistant reply as a text record
func (uc *UseCase) SaveMessage(ctx context.Context, content, modelName string) (*model.Record, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	modelName = uc.resolveModel(modelName)

	prompt := content
	if runes := []rune(content); len(runes) > savedPromptLength {
		prompt = string(runes[:savedPromptLength])
	}

	rec := model.NewRecord(model.KindText, prompt, content, modelName)

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.state.InsertRecord(rec)
	uc.persist(ctx)

	return rec, nil
}

// Find returns a record of the history
func (uc *UseCase) Find(id model.RecordID) (*model.Record, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	rec, ok := uc.state.History.Find(id)
	if !ok {
		return nil, goerr.Wrap(ErrRecordNotFound, "no such record", goerr.V("id", id))
	}
	return rec, nil
}

// Reopen switches to the tab of the record and returns it so its prompt can be reused
func (uc *UseCase) Reopen(ctx context.Context, id model.RecordID) (*model.Record, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	rec, ok := uc.state.History.Find(id)
	if !ok {
		return nil, goerr.Wrap(ErrRecordNotFound, "no such record", goerr.V("id", id))
	}

	if err := uc.setTab(ctx, rec.Kind); err != nil {
		return nil, err
	}

	return rec, nil
}

// ClearHistory empties the history in memory and in the repository
func (uc *UseCase) ClearHistory(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.state.ClearHistory()
	return uc.store.Clear(ctx)
}
