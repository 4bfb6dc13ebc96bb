package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/request"
	"github.com/tidwall/gjson"
)

// TextGenerator produces text for a prompt. An empty model means DefaultModel.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt, model string) (string, error)
	DefaultModel() string
}

// ImageProber checks that an image URL is reachable
type ImageProber interface {
	ProbeImage(ctx context.Context, url string) error
}

var (
	ErrAPIStatus       = goerr.New("API error")
	ErrInvalidResponse = goerr.New("invalid response")
)

// Pollinations is the HTTP client of the Pollinations text and image endpoints
type Pollinations struct {
	client       *http.Client
	textEndpoint string
}

type PollinationsOption func(*Pollinations)

func WithHTTPClient(client *http.Client) PollinationsOption {
	return func(p *Pollinations) {
		p.client = client
	}
}

func WithTextEndpoint(endpoint string) PollinationsOption {
	return func(p *Pollinations) {
		p.textEndpoint = endpoint
	}
}

func NewPollinations(opts ...PollinationsOption) *Pollinations {
	p := &Pollinations{
		client:       &http.Client{Timeout: 120 * time.Second},
		textEndpoint: request.DefaultTextEndpoint,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DefaultModel is the model used when none is given
func (p *Pollinations) DefaultModel() string {
	return request.DefaultTextModel
}

func (p *Pollinations) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	req, err := request.NewText(p.textEndpoint, prompt, model)
	if err != nil {
		return "", err
	}

	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", goerr.Wrap(err, "failed to call text API", goerr.V("url", req.URL))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", goerr.Wrap(ErrAPIStatus, fmt.Sprintf("text API returned status %d", resp.StatusCode),
			goerr.V("status", resp.StatusCode),
			goerr.V("url", req.URL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read text API response")
	}

	return ExtractText(body)
}

// ExtractText picks the generated text out of a response body. Providers answer in
// different shapes: a JSON string, {"text": ...}, {"output": ...}. Anything else is
// returned as its raw JSON. A body that is not JSON is an error.
func ExtractText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", goerr.Wrap(ErrInvalidResponse, "response is not JSON",
			goerr.V("body", truncate(string(body), 256)))
	}

	result := gjson.ParseBytes(body)
	if result.Type == gjson.String {
		return result.String(), nil
	}

	if result.IsObject() {
		for _, key := range []string{"text", "output"} {
			v := result.Get(key)
			if !v.Exists() || v.Type == gjson.Null {
				continue
			}
			if v.Type == gjson.String {
				return v.String(), nil
			}
			return v.Raw, nil
		}
	}

	return result.Raw, nil
}

// ProbeImage issues a HEAD request to the image URL
func (p *Pollinations) ProbeImage(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to create probe request", goerr.V("url", url))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to probe image", goerr.V("url", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return goerr.Wrap(ErrAPIStatus, fmt.Sprintf("image probe returned status %d", resp.StatusCode),
			goerr.V("status", resp.StatusCode),
			goerr.V("url", url))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
