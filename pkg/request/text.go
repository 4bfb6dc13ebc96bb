package request

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultTextEndpoint = "https://text.pollinations.ai/generate"
	DefaultTextModel    = "openai"
)

var ErrEmptyPrompt = goerr.New("prompt is empty")

// TextRequest is the shape of a text generation call, built without performing it
type TextRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type textBody struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// NewText builds a POST request carrying {model, prompt} as JSON. Only emptiness is
// checked: a blank prompt is rejected and an empty model falls back to DefaultTextModel.
func NewText(endpoint, prompt, model string) (*TextRequest, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if model == "" {
		model = DefaultTextModel
	}
	if endpoint == "" {
		endpoint = DefaultTextEndpoint
	}

	body, err := json.Marshal(textBody{Model: model, Prompt: prompt})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal text request")
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	return &TextRequest{
		Method: http.MethodPost,
		URL:    endpoint,
		Header: header,
		Body:   body,
	}, nil
}

// HTTPRequest converts the built request into an *http.Request bound to ctx
func (r *TextRequest) HTTPRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create http request", goerr.V("url", r.URL))
	}
	req.Header = r.Header.Clone()
	return req, nil
}
