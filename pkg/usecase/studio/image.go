package studio

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/policy"
	"github.com/m-mizutani/pollen/pkg/request"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
)

// ImageInput describes one image generation
type ImageInput struct {
	Prompt    string
	Width     int
	Height    int
	Seed      string
	SkipProbe bool
}

// GenerateImage records the image URL right away and then checks that it loads.
// A failed check is only logged unless WithPruneFailedImages is set, in which case the
// record is removed again, anything it pushed out of the history is put back, and
// ErrImageUnavailable is returned with it.
func (uc *UseCase) GenerateImage(ctx context.Context, input ImageInput) (*model.Record, error) {
	params := request.ImageParams{
		Prompt: strings.TrimSpace(input.Prompt),
		Width:  input.Width,
		Height: input.Height,
		Seed:   input.Seed,
	}.Normalize()
	if params.Prompt == "" {
		return nil, goerr.Wrap(request.ErrEmptyPrompt, "nothing to draw")
	}

	in, err := uc.applyPolicy(ctx, policy.Input{
		Kind:   model.KindImage,
		Prompt: params.Prompt,
		Width:  params.Width,
		Height: params.Height,
		Seed:   params.Seed,
	})
	if err != nil {
		return nil, err
	}
	params.Prompt = in.Prompt

	rec := model.NewRecord(model.KindImage, params.Prompt, request.ImageURL(uc.imageEndpoint, params), request.ImageModel)
	rec.Width = params.Width
	rec.Height = params.Height
	rec.Seed = params.Seed

	uc.mu.Lock()
	evicted := uc.state.InsertRecord(rec)
	uc.persist(ctx)
	uc.mu.Unlock()

	if input.SkipProbe || uc.prober == nil {
		return rec, nil
	}

	logger := logging.From(ctx)
	if err := uc.prober.ProbeImage(ctx, rec.Result); err != nil {
		if !uc.pruneFailed {
			logger.Warn("image probe failed", "error", err, "record_id", rec.ID)
			return rec, nil
		}

		uc.mu.Lock()
		uc.state.RemoveRecord(rec.ID)
		uc.state.RestoreRecords(evicted)
		uc.persist(ctx)
		uc.mu.Unlock()

		return rec, goerr.Wrap(ErrImageUnavailable, "removed image record",
			goerr.V("record_id", rec.ID),
			goerr.V("cause", err.Error()))
	}

	return rec, nil
}
