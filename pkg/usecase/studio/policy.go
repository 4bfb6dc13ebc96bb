package studio

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/policy"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
)

// Policy decides whether a prompt may be sent and may rewrite it
type Policy interface {
	Evaluate(ctx context.Context, input policy.Input) (*policy.Decision, error)
}

// WithPolicy checks every prompt against p before it is sent
func WithPolicy(p Policy) Option {
	return func(uc *UseCase) {
		uc.policy = p
	}
}

// applyPolicy returns input as amended by the policy, or ErrPromptDenied
func (uc *UseCase) applyPolicy(ctx context.Context, input policy.Input) (policy.Input, error) {
	if uc.policy == nil {
		return input, nil
	}

	d, err := uc.policy.Evaluate(ctx, input)
	if err != nil {
		return input, err
	}
	if !d.Allowed() {
		return input, goerr.Wrap(ErrPromptDenied, strings.Join(d.Deny, "; "),
			goerr.V("kind", input.Kind),
			goerr.V("reasons", d.Deny))
	}

	if d.Prompt != "" && d.Prompt != input.Prompt {
		logging.From(ctx).Debug("prompt rewritten by policy", "kind", input.Kind)
		input.Prompt = d.Prompt
	}
	if d.Model != "" {
		input.Model = d.Model
	}

	return input, nil
}
