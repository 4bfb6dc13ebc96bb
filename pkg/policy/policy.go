package policy

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

// Input is what a policy sees as `input`
type Input struct {
	Kind   model.Kind `json:"kind"`
	Prompt string     `json:"prompt"`
	Model  string     `json:"model,omitempty"`
	Width  int        `json:"width,omitempty"`
	Height int        `json:"height,omitempty"`
	Seed   string     `json:"seed,omitempty"`
}

// Decision is the outcome of package prompt.
//
//	deny contains msg if { ... }   reject the prompt with msg
//	prompt := "..."                replace the prompt
//	model := "..."                 replace the model
type Decision struct {
	Deny   []string
	Prompt string
	Model  string
}

// Allowed reports whether no rule denied the prompt
func (d *Decision) Allowed() bool {
	return len(d.Deny) == 0
}

type printHook struct {
	ctx context.Context
}

func (h *printHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// Engine evaluates prompt policies written in Rego
type Engine struct {
	query *rego.PreparedEvalQuery
}

// New loads *.rego from policyDir. An empty policyDir, or a directory without policy
// files, allows everything. A policyDir that does not exist is ErrPolicyDir.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	if policyDir == "" {
		return &Engine{}, nil
	}

	modules, err := loadModules(policyDir)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		logging.From(ctx).Warn("no policy files found", "dir", policyDir)
		return &Engine{}, nil
	}

	query, err := prepareQuery(ctx, modules, Query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare prompt policy", goerr.V("dir", policyDir))
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy against input
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Decision, error) {
	if e.query == nil {
		return &Decision{}, nil
	}

	rs, err := e.query.Eval(ctx,
		rego.EvalInput(input),
		rego.EvalPrintHook(&printHook{ctx: ctx}),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate prompt policy")
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return &Decision{}, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return nil, goerr.New("invalid policy result: not an object",
			goerr.V("value", rs[0].Expressions[0].Value))
	}

	d := &Decision{
		Prompt: getString(data, "prompt"),
		Model:  getString(data, "model"),
	}

	if raw, ok := data["deny"]; ok {
		reasons, ok := raw.([]any)
		if !ok {
			return nil, goerr.New("invalid policy result: deny is not a set", goerr.V("deny", raw))
		}
		for _, r := range reasons {
			s, ok := r.(string)
			if !ok {
				return nil, goerr.New("invalid policy result: deny message is not a string", goerr.V("message", r))
			}
			d.Deny = append(d.Deny, s)
		}
	}

	return d, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
