// Package mcp exposes the server collection to MCP clients over stdio:
// query, inspect, and probe tools mirroring the chat surface.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"server_find": {
		def:     findToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFind },
	},
	"server_at": {
		def:     atToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAt },
	},
	"server_count": {
		def:     countToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCount },
	},
	"server_probe": {
		def:     probeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProbe },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns the unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the Spyglass tools registered,
// minus any listed in disabledTools.
func NewServer(h *Handlers, version string, disabledTools []string) *server.MCPServer {
	s := server.NewMCPServer(
		"spyglass",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool, len(disabledTools))
	for _, name := range disabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(h *Handlers, version string, disabledTools []string) error {
	return server.ServeStdio(NewServer(h, version, disabledTools))
}
