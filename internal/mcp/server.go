// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mcp exposes the hub's registered tools over the Model Context
// Protocol via framed JSON-RPC 2.0 on standard input/output.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/uaesivakumar/agenthub/internal/metrics"
	"github.com/uaesivakumar/agenthub/pkg/registry"
	"github.com/uaesivakumar/agenthub/pkg/router"
	"github.com/uaesivakumar/agenthub/pkg/tool"
)

// Server wraps the MCP server and exposes hub tools under their external
// names.
type Server struct {
	mcpServer   *server.MCPServer
	dispatch    *router.Router
	names       *nameTable
	rateLimiter *RateLimiter
	logger      *slog.Logger
	name        string
	version     string
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// Name is the server name (default: "agenthub").
	Name string

	// Version is the hub version.
	Version string

	// Dispatch routes tools/call requests. Required.
	Dispatch *router.Router

	// Registry supplies the tool catalog. Required.
	Registry *registry.Registry

	// CallsPerMinute bounds tools/call throughput (default: 100).
	CallsPerMinute int

	// Logger writes to stderr to keep stdout for the MCP stdio protocol.
	Logger *slog.Logger
}

// NewServer creates an MCP server over the registry's current catalog.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Name == "" {
		cfg.Name = "agenthub"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dispatch == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("mcp server requires a router and a registry")
	}

	descriptors := cfg.Registry.Descriptors()
	internalNames := make([]string, len(descriptors))
	for i, desc := range descriptors {
		internalNames[i] = desc.Name
	}
	names, err := buildNameTable(internalNames)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool name table: %w", err)
	}

	s := &Server{
		mcpServer:   server.NewMCPServer(cfg.Name, cfg.Version),
		dispatch:    cfg.Dispatch,
		names:       names,
		rateLimiter: NewRateLimiter(cfg.CallsPerMinute),
		logger:      cfg.Logger,
		name:        cfg.Name,
		version:     cfg.Version,
	}

	for _, desc := range descriptors {
		if err := s.registerTool(desc); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", desc.Name, err)
		}
	}

	return s, nil
}

// registerTool exposes one descriptor under its external name.
func (s *Server) registerTool(desc tool.Descriptor) error {
	external, ok := s.names.external(desc.Name)
	if !ok {
		return fmt.Errorf("no external name for %s", desc.Name)
	}

	description := desc.DisplayName
	if description == "" {
		description = desc.Name
	}

	s.mcpServer.AddTool(mcp.Tool{
		Name:        external,
		Description: description,
		InputSchema: toolInputSchema(desc.InputSchema.Document()),
	}, s.makeCallHandler(external))

	return nil
}

// makeCallHandler builds the tools/call handler for one external name.
func (s *Server) makeCallHandler(external string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !s.rateLimiter.AllowCall() {
			metrics.RecordMCPCall(external, "error")
			return errorResponse("Rate limit exceeded. Please try again later."), nil
		}

		internal, ok := s.names.internal(external)
		if !ok {
			metrics.RecordMCPCall(external, "error")
			return errorResponse(fmt.Sprintf("Unknown tool: %s", external)), nil
		}

		input := request.GetArguments()
		out, err := s.dispatch.Route(ctx, router.Request{
			Type:     router.TypeSingleTool,
			ToolName: internal,
			Input:    input,
		})
		if err != nil {
			s.logger.Warn("tools/call failed", "tool", external, "error", err)
			metrics.RecordMCPCall(external, "error")
			return errorResponse(fmt.Sprintf("Error: %v", err)), nil
		}

		serialized, err := json.Marshal(out)
		if err != nil {
			metrics.RecordMCPCall(external, "error")
			return errorResponse(fmt.Sprintf("Error: failed to serialize output: %v", err)), nil
		}

		metrics.RecordMCPCall(external, "ok")
		return textResponse(string(serialized)), nil
	}
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting Agent Hub MCP server", slog.String("version", s.version))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// toolInputSchema converts a compiled schema document to the MCP wire shape.
func toolInputSchema(doc map[string]any) mcp.ToolInputSchema {
	out := mcp.ToolInputSchema{Type: "object"}
	if doc == nil {
		return out
	}

	if t, ok := doc["type"].(string); ok && t != "" {
		out.Type = t
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		out.Properties = props
	}
	switch required := doc["required"].(type) {
	case []string:
		out.Required = required
	case []any:
		for _, r := range required {
			if name, ok := r.(string); ok {
				out.Required = append(out.Required, name)
			}
		}
	}
	return out
}

// errorResponse creates an error tool result.
func errorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// textResponse creates a success tool result with one text content block.
func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
