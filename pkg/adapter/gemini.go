package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used unless WithGenerativeModel says otherwise
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient generates text with Gemini on Vertex AI
type GeminiClient struct {
	client          *genai.Client
	generativeModel string
}

var _ TextGenerator = (*GeminiClient)(nil)

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	if projectID == "" {
		return nil, goerr.New("gemini project is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: DefaultGeminiModel,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// DefaultModel is the model used when none is given
func (g *GeminiClient) DefaultModel() string {
	return g.generativeModel
}

// GenerateContent calls the model with contents. An empty model uses the client's default.
func (g *GeminiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if model == "" {
		model = g.generativeModel
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", model))
	}
	return resp, nil
}

// GenerateText sends a single user prompt
func (g *GeminiClient) GenerateText(ctx context.Context, prompt, model string) (string, error) {
	resp, err := g.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", goerr.Wrap(ErrInvalidResponse, "gemini returned no text", goerr.V("model", model))
	}
	return text, nil
}
