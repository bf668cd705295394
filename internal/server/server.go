// Package server exposes diagram generation as Model Context Protocol tools
// over stdio.
package server

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"umlizer/internal/config"
	"umlizer/internal/logger"
	"umlizer/internal/pipeline"
	"umlizer/internal/render"
)

const usageGuide = `# umlizer

umlizer renders UML class diagrams from Python, TypeScript, JavaScript and Go
sources.

- Call **class_diagram** with an absolute ` + "`source_path`" + ` to write a diagram.
  The result lists the output file, whether the render was skipped because
  the cached output is current, scan errors and resolution warnings.
- Call **describe_model** to inspect the class model without rendering.
  ` + "`format`" + ` selects json (default), mermaid or dot.
- Unresolved references appear as external placeholder nodes joined by
  dependency edges; they are reported as warnings, never as failures.
- Argument schemas are available at umlizer://schemas/{tool_name}.
- Defaults for omitted arguments are listed at umlizer://config.
`

type Server struct {
	mcpServer    *mcp.Server
	pipeline     *pipeline.Pipeline
	renderer     *render.Renderer
	cfg          *config.Config
	systemPrompt string
	logger       *slog.Logger
}

// New registers the tools and resources. cfg supplies the defaults for
// arguments a tool call leaves empty.
func New(p *pipeline.Pipeline, r *render.Renderer, cfg *config.Config, version string) *Server {
	s := &Server{
		pipeline:     p,
		renderer:     r,
		cfg:          cfg,
		systemPrompt: usageGuide,
		logger:       logger.ForComponent("mcp"),
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "umlizer",
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: usageGuide,
	})
	s.registerTools()
	s.registerResources()
	return s
}

// Run serves over stdin/stdout until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving over stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
