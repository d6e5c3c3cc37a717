// Package mcpserver exposes an Engine's index and queries as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anortham/julie-sub010"
)

// Server wraps an MCP server whose tools run against one Engine.
type Server struct {
	engine *julie.Engine
	mcp    *mcp.Server
	logger *slog.Logger
}

// New creates a server with every tool registered.
func New(engine *julie.Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine: engine,
		logger: logger,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "julie",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying server, for callers that bring their own
// transport.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves over stdin/stdout until ctx is done or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening", "transport", "stdio")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
