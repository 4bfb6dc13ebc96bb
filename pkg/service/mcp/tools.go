package mcp

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/usecase/history"
	"github.com/m-mizutani/pollen/pkg/usecase/studio"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type generateTextParams struct {
	Prompt string `json:"prompt" jsonschema:"Prompt sent to the text model"`
	Model  string `json:"model,omitempty" jsonschema:"Model name. The configured default is used when omitted"`
}

type generateImageParams struct {
	Prompt    string `json:"prompt" jsonschema:"Description of the image"`
	Width     int    `json:"width,omitempty" jsonschema:"Width in pixels (default 768)"`
	Height    int    `json:"height,omitempty" jsonschema:"Height in pixels (default 512)"`
	Seed      string `json:"seed,omitempty" jsonschema:"Seed for reproducible output"`
	SkipProbe bool   `json:"skip_probe,omitempty" jsonschema:"Do not check that the image URL loads"`
}

type listHistoryParams struct {
	Kind   string `json:"kind,omitempty" jsonschema:"Only records of this kind"`
	Offset int    `json:"offset,omitempty" jsonschema:"Number of newest records to skip"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of records"`
}

type getRecordParams struct {
	ID string `json:"id" jsonschema:"Record ID"`
}

type clearHistoryParams struct {
	Confirm bool `json:"confirm" jsonschema:"Must be true to delete all records"`
}

type statsParams struct{}

func (s *Server) registerTools() error {
	textSchema, err := inputSchema[generateTextParams](func(js *jsonschema.Schema) {
		requireNonEmpty(js, "prompt")
	})
	if err != nil {
		return err
	}
	imageSchema, err := inputSchema[generateImageParams](func(js *jsonschema.Schema) {
		requireNonEmpty(js, "prompt")
		nonNegative(js, "width")
		nonNegative(js, "height")
	})
	if err != nil {
		return err
	}
	listSchema, err := inputSchema[listHistoryParams](func(js *jsonschema.Schema) {
		kindEnum(js, "kind")
		nonNegative(js, "offset")
		nonNegative(js, "limit")
	})
	if err != nil {
		return err
	}
	getSchema, err := inputSchema[getRecordParams](func(js *jsonschema.Schema) {
		requireNonEmpty(js, "id")
	})
	if err != nil {
		return err
	}
	clearSchema, err := inputSchema[clearHistoryParams](nil)
	if err != nil {
		return err
	}
	statsSchema, err := inputSchema[statsParams](nil)
	if err != nil {
		return err
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_text",
		Description: "Generate text for a prompt and store the reply in history",
		InputSchema: textSchema,
	}, s.generateText)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_image",
		Description: "Create an image URL for a prompt and store it in history",
		InputSchema: imageSchema,
	}, s.generateImage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_history",
		Description: "List stored generations, newest first",
		InputSchema: listSchema,
	}, s.listHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_record",
		Description: "Get one stored generation by ID",
		InputSchema: getSchema,
	}, s.getRecord)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_history",
		Description: "Delete all stored generations",
		InputSchema: clearSchema,
	}, s.clearHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Count stored generations per kind",
		InputSchema: statsSchema,
	}, s.stats)

	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal result")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}

func errorResult(ctx context.Context, tool string, err error) (*mcp.CallToolResult, any, error) {
	logging.From(ctx).Warn("tool failed", "tool", tool, "error", err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: err.Error()},
		},
	}, nil, nil
}

func (s *Server) generateText(ctx context.Context, req *mcp.CallToolRequest, params *generateTextParams) (*mcp.CallToolResult, any, error) {
	msg, err := s.studio.GenerateText(ctx, params.Prompt, params.Model)
	if err != nil {
		return errorResult(ctx, "generate_text", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg.Content},
		},
	}, nil, nil
}

func (s *Server) generateImage(ctx context.Context, req *mcp.CallToolRequest, params *generateImageParams) (*mcp.CallToolResult, any, error) {
	rec, err := s.studio.GenerateImage(ctx, studio.ImageInput{
		Prompt:    params.Prompt,
		Width:     params.Width,
		Height:    params.Height,
		Seed:      params.Seed,
		SkipProbe: params.SkipProbe,
	})
	if err != nil {
		return errorResult(ctx, "generate_image", err)
	}

	return jsonResult(rec)
}

func (s *Server) listHistory(ctx context.Context, req *mcp.CallToolRequest, params *listHistoryParams) (*mcp.CallToolResult, any, error) {
	opts := history.ListOptions{
		Kind:   model.Kind(params.Kind),
		Offset: params.Offset,
		Limit:  params.Limit,
	}
	if opts.Kind != "" {
		if err := opts.Kind.Validate(); err != nil {
			return errorResult(ctx, "list_history", err)
		}
	}

	return jsonResult(history.List(s.studio.History(), opts))
}

func (s *Server) getRecord(ctx context.Context, req *mcp.CallToolRequest, params *getRecordParams) (*mcp.CallToolResult, any, error) {
	rec, err := s.studio.Find(model.RecordID(params.ID))
	if err != nil {
		return errorResult(ctx, "get_record", err)
	}

	return jsonResult(rec)
}

var errNotConfirmed = goerr.New("set confirm to true to clear history")

func (s *Server) clearHistory(ctx context.Context, req *mcp.CallToolRequest, params *clearHistoryParams) (*mcp.CallToolResult, any, error) {
	if !params.Confirm {
		return errorResult(ctx, "clear_history", errNotConfirmed)
	}

	if err := s.studio.ClearHistory(ctx); err != nil {
		return errorResult(ctx, "clear_history", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "history cleared"},
		},
	}, nil, nil
}

func (s *Server) stats(ctx context.Context, req *mcp.CallToolRequest, params *statsParams) (*mcp.CallToolResult, any, error) {
	return jsonResult(s.studio.Stats())
}
