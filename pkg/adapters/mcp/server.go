package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/signal"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registry defines the interface required by the MCP server to interact with
// the aggregation core.
type Registry interface {
	Endpoints(ctx context.Context) ([]domain.Endpoint, error)
	ChangeToken(ctx context.Context) (*signal.Signal, error)
}

// ListResponse aligns with the HTTP adapter's payload so MCP and HTTP
// consumers see the same structure.
type ListResponse struct {
	Count     int               `json:"count" jsonschema_description:"Number of aggregated endpoints"`
	Endpoints []domain.Endpoint `json:"endpoints" jsonschema_description:"The merged endpoint snapshot in source order"`
}

// Server wraps the registry and exposes it as an MCP Server.
type Server struct {
	registry  Registry
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(registry Registry, version string) *Server {
	s := &Server{
		registry:  registry,
		mcpServer: server.NewMCPServer("junction-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	// TOOL: list_endpoints
	listTool := mcp.NewTool("list_endpoints",
		mcp.WithDescription("List the aggregated endpoint snapshot across all configured sources."),
		mcp.WithOutputSchema[ListResponse](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleList))

	// TOOL: wait_for_change
	s.mcpServer.AddTool(mcp.NewTool("wait_for_change",
		mcp.WithDescription("Block until the endpoint set changes or the timeout lapses. Returns whether a change happened."),
		mcp.WithString("timeout", mcp.Description("Maximum wait as a Go duration (default 30s)")),
	), s.handleWait)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ListResponse, error) {
	eps, err := s.registry.Endpoints(ctx)
	if err != nil {
		return ListResponse{}, fmt.Errorf("listing endpoints: %w", err)
	}
	if eps == nil {
		eps = []domain.Endpoint{}
	}
	return ListResponse{Count: len(eps), Endpoints: eps}, nil
}

func (s *Server) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timeout := 30 * time.Second
	if raw := request.GetString("timeout", ""); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid timeout: %v", err)), nil
		}
		timeout = parsed
	}

	token, err := s.registry.ChangeToken(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("change token unavailable: %v", err)), nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return mcp.NewToolResultText(`{"changed":true}`), nil
	case <-timer.C:
		return mcp.NewToolResultText(`{"changed":false}`), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) registerResources() {
	// EXPOSE: junction://endpoints
	s.mcpServer.AddResource(mcp.NewResource("junction://endpoints", "Aggregated Endpoints",
		mcp.WithMIMEType("application/json"),
	), s.handleEndpointsResource)
}

func (s *Server) handleEndpointsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	eps, err := s.registry.Endpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoints: %w", err)
	}
	jsonBytes, err := json.Marshal(eps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode endpoints: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "junction://endpoints",
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
