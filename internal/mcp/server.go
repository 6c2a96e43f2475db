package mcp

import (
	"database/sql"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/funnelmkt/internal/config"
)

// KnownTypes lists the type prefixes accepted in disabled_types.
var KnownTypes = []string{"client"}

// toolEntry pairs a tool definition with the Handlers method that serves it.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry is every client tool in the order they are advertised.
var toolRegistry = []toolEntry{
	{createToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate }},
	{fetchToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch }},
	{listToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleList }},
	{searchToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch }},
	{segmentToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSegment }},
	{stageToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleStage }},
	{reorderToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleReorder }},
	{statsToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats }},
}

// AllToolNames returns the registered tool names in registry order.
func AllToolNames() []string {
	names := make([]string, len(toolRegistry))
	for i, entry := range toolRegistry {
		names[i] = entry.def.Name
	}
	return names
}

// ValidateDisabledTools returns the names that match no tool.
func ValidateDisabledTools(names []string) []string {
	all := AllToolNames()
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(all, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns the names that are not in KnownTypes.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool returns the "type" part of a "type_action" tool name,
// or "" when the name has no prefix.
func GetTypeForTool(toolName string) string {
	typ, _, found := strings.Cut(toolName, "_")
	if !found {
		return ""
	}
	return typ
}

// ExpandTypesToTools returns the tool names whose type is in types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	tools := make([]string, 0)
	for _, name := range AllToolNames() {
		if slices.Contains(types, GetTypeForTool(name)) {
			tools = append(tools, name)
		}
	}
	return tools
}

// disabledTools merges cfg.DisabledTools with every tool of cfg.DisabledTypes.
func disabledTools(cfg *config.Config) map[string]bool {
	disabled := make(map[string]bool)
	for _, name := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[name] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}
	return disabled
}

// NewServer creates an MCP server exposing the client tools over the
// registry database, minus anything disabled in cfg.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := server.NewMCPServer(
		"funnel",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg)
	disabled := disabledTools(cfg)
	for _, entry := range toolRegistry {
		if disabled[entry.def.Name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools on stdin/stdout until the client disconnects.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(db, cfg, version))
}
