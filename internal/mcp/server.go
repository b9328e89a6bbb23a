package mcp

import (
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tribalgis/claimgis/internal/config"
	"github.com/tribalgis/claimgis/internal/pipeline"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"claim_extract": {
		def:     extractToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExtract },
	},
	"claim_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"claim_markers": {
		def:     markersToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMarkers },
	},
	"claim_dump": {
		def:     dumpToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDump },
	},
}

// Tool definitions

var extractToolDef = mcp.NewTool("claim_extract",
	mcp.WithDescription("Run OCR, entity extraction, and geocoding on a claim form image at a local path. Returns the text plus the annotated entity list."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Local filesystem path of the image to process")),
)

var saveToolDef = mcp.NewTool("claim_save",
	mcp.WithDescription("Persist an extraction result: one claim row plus one point per geocoded entity. Returns the new claim id."),
	mcp.WithString("text", mcp.Description("Raw OCR text of the claim")),
	mcp.WithString("filename", mcp.Description("Original upload filename")),
	mcp.WithArray("entities", mcp.Description("Entity list as returned by claim_extract"),
		mcp.Items(map[string]any{"type": "object"})),
)

var markersToolDef = mcp.NewTool("claim_markers",
	mcp.WithDescription("List all saved geocoded points across all claims, newest-first."),
)

var dumpToolDef = mcp.NewTool("claim_dump",
	mcp.WithDescription("Dump all claims and all points, newest-first, for inspection."),
)

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

// NewServer creates a new MCP server with ClaimGIS tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, pipe *pipeline.Pipeline, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"claimgis",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, pipe)

	disabled := make(map[string]bool)
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
func Run(db *sql.DB, cfg *config.Config, pipe *pipeline.Pipeline, version string) error {
	s := NewServer(db, cfg, pipe, version)
	return server.ServeStdio(s)
}
