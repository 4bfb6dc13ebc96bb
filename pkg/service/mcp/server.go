package mcp

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/m-mizutani/pollen/pkg/usecase/studio"
	"github.com/m-mizutani/pollen/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Studio is the set of studio operations exposed as MCP tools
type Studio interface {
	GenerateText(ctx context.Context, prompt, modelName string) (*model.Message, error)
	GenerateImage(ctx context.Context, input studio.ImageInput) (*model.Record, error)
	History() model.History
	Find(id model.RecordID) (*model.Record, error)
	ClearHistory(ctx context.Context) error
	Stats() map[model.Kind]int
}

// Server publishes studio operations over the Model Context Protocol
type Server struct {
	studio  Studio
	server  *mcp.Server
	version string
}

type Option func(*Server)

// WithVersion sets the version reported to clients
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates an MCP server with all studio tools registered
func NewServer(st Studio, opts ...Option) (*Server, error) {
	if st == nil {
		return nil, goerr.New("studio is required")
	}

	s := &Server{
		studio:  st,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "pollen",
		Version: s.version,
	}, nil)

	if err := s.registerTools(); err != nil {
		return nil, err
	}

	return s, nil
}

// Run serves over the given transport until the client disconnects or ctx is done
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	logging.From(ctx).Info("serving MCP", "version", s.version)
	if err := s.server.Run(ctx, transport); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

// RunStdio serves over stdin/stdout
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns a streamable HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}
