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

// GenerateText sends prompt to the text generator and records the reply.
// On failure the conversation gets an "Error: ..." reply, history is left as is,
// and that reply is returned together with the error.
func (uc *UseCase) GenerateText(ctx context.Context, prompt, modelName string) (*model.Message, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, goerr.Wrap(request.ErrEmptyPrompt, "nothing to send")
	}
	if uc.text == nil {
		return nil, ErrTextGeneratorUnset
	}

	in, err := uc.applyPolicy(ctx, policy.Input{Kind: model.KindText, Prompt: prompt, Model: modelName})
	if err != nil {
		return nil, err
	}
	prompt, modelName = in.Prompt, uc.resolveModel(in.Model)

	uc.mu.Lock()
	uc.state.AppendMessage(model.NewMessage(model.RoleUser, prompt))
	uc.mu.Unlock()

	logger := logging.From(ctx)
	logger.Debug("generating text", "model", modelName, "prompt_len", len(prompt))

	reply, err := uc.text.GenerateText(ctx, prompt, modelName)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err != nil {
		msg := model.NewMessage(model.RoleAssistant, "Error: "+err.Error())
		uc.state.AppendMessage(msg)
		return &msg, goerr.Wrap(err, "failed to generate text", goerr.V("model", modelName))
	}

	uc.state.InsertRecord(model.NewRecord(model.KindText, prompt, reply, modelName))
	uc.persist(ctx)

	msg := model.NewMessage(model.RoleAssistant, reply)
	uc.state.AppendMessage(msg)
	return &msg, nil
}
