package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/followpick/internal/config"
	"github.com/hpungsan/followpick/internal/follower"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"winner_pick_general": {
		def:     pickGeneralToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePickGeneral },
	},
	"winner_pick_orientation": {
		def:     pickOrientationToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePickOrientation },
	},
	"snapshot_capture": {
		def:     captureToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCapture },
	},
	"snapshot_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"snapshot_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"snapshot_subjects": {
		def:     subjectsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSubjects },
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

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with followpick tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(store Store, source follower.Source, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"followpick",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(store, source, cfg)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(store Store, source follower.Source, cfg *config.Config, version string) error {
	s := NewServer(store, source, cfg, version)
	return server.ServeStdio(s)
}
