package policy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/policy"
)

const promptPolicy = `package prompt

deny contains "prompt is too long" if {
	count(input.prompt) > 20
}

deny contains msg if {
	input.kind == "image"
	input.width > 2048
	msg := sprintf("width %d exceeds 2048", [input.width])
}

model := "mistral" if {
	input.kind == "text"
	not input.model
}

prompt := concat(" ", [input.prompt, "in watercolor"]) if {
	input.kind == "image"
	startswith(input.prompt, "paint")
}
`

func writePolicy(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		gt.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.New(ctx, writePolicy(t, map[string]string{"prompt.rego": promptPolicy}))
	gt.NoError(t, err)

	testCases := []struct {
		name    string
		input   policy.Input
		allowed bool
		deny    []string
		prompt  string
		model   string
	}{
		{
			name:    "plain text",
			input:   policy.Input{Kind: model.KindText, Prompt: "hello"},
			allowed: true,
			model:   "mistral",
		},
		{
			name:    "text with model",
			input:   policy.Input{Kind: model.KindText, Prompt: "hello", Model: "openai"},
			allowed: true,
		},
		{
			name:    "too long",
			input:   policy.Input{Kind: model.KindText, Prompt: "this prompt is longer than twenty", Model: "openai"},
			allowed: false,
			deny:    []string{"prompt is too long"},
		},
		{
			name:    "wide image",
			input:   policy.Input{Kind: model.KindImage, Prompt: "fox", Width: 4096},
			allowed: false,
			deny:    []string{"width 4096 exceeds 2048"},
		},
		{
			name:    "rewritten image prompt",
			input:   policy.Input{Kind: model.KindImage, Prompt: "paint a fox", Width: 768},
			allowed: true,
			prompt:  "paint a fox in watercolor",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := engine.Evaluate(ctx, tc.input)
			gt.NoError(t, err)
			gt.Equal(t, d.Allowed(), tc.allowed)
			gt.Equal(t, len(d.Deny), len(tc.deny))
			for i := range tc.deny {
				gt.Equal(t, d.Deny[i], tc.deny[i])
			}
			gt.Equal(t, d.Prompt, tc.prompt)
			gt.Equal(t, d.Model, tc.model)
		})
	}
}

func TestNoPolicyFiles(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.New(ctx, t.TempDir())
	gt.NoError(t, err)

	d, err := engine.Evaluate(ctx, policy.Input{Kind: model.KindText, Prompt: "anything"})
	gt.NoError(t, err)
	gt.True(t, d.Allowed())
}

func TestOtherPackagesOnly(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.New(ctx, writePolicy(t, map[string]string{
		"other.rego": "package other\n\nx := 1\n",
	}))
	gt.NoError(t, err)

	d, err := engine.Evaluate(ctx, policy.Input{Kind: model.KindText, Prompt: "hi"})
	gt.NoError(t, err)
	gt.True(t, d.Allowed())
}

func TestInvalidPolicy(t *testing.T) {
	_, err := policy.New(context.Background(), writePolicy(t, map[string]string{
		"broken.rego": "package prompt\n\ndeny contains if {\n",
	}))
	gt.Error(t, err)
}

func TestInvalidDenyType(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.New(ctx, writePolicy(t, map[string]string{
		"prompt.rego": "package prompt\n\ndeny := \"nope\"\n",
	}))
	gt.NoError(t, err)

	_, err = engine.Evaluate(ctx, policy.Input{Kind: model.KindText, Prompt: "hi"})
	gt.Error(t, err)
}

func TestEmptyPolicyDir(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.New(ctx, "")
	gt.NoError(t, err)

	d, err := engine.Evaluate(ctx, policy.Input{Kind: model.KindImage, Prompt: "anything"})
	gt.NoError(t, err)
	gt.True(t, d.Allowed())
}

func TestPolicyDirMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "typo")
	_, err := policy.New(context.Background(), dir)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, policy.ErrPolicyDir))
}

func TestPolicyDirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.rego")
	gt.NoError(t, os.WriteFile(path, []byte("package prompt\n"), 0o600))

	_, err := policy.New(context.Background(), path)
	gt.True(t, errors.Is(err, policy.ErrPolicyDir))
}
