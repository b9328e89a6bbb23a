package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/config"
	"github.com/tribalgis/claimgis/internal/errors"
	"github.com/tribalgis/claimgis/internal/ops"
	"github.com/tribalgis/claimgis/internal/pipeline"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db   *sql.DB
	cfg  *config.Config
	pipe *pipeline.Pipeline
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, pipe *pipeline.Pipeline) *Handlers {
	return &Handlers{db: db, cfg: cfg, pipe: pipe}
}

// Request types for each tool

// ExtractRequest represents the arguments for claim_extract.
type ExtractRequest struct {
	Path string `json:"path"`
}

// SaveRequest represents the arguments for claim_save.
type SaveRequest struct {
	Text     string         `json:"text,omitempty"`
	Filename string         `json:"filename,omitempty"`
	Entities []claim.Entity `json:"entities,omitempty"`
}

// Handler implementations

// HandleExtract handles the claim_extract tool call.
func (h *Handlers) HandleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExtractRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	f, err := os.Open(input.Path)
	if err != nil {
		return errorResult(errors.NewInvalidRequest("cannot open " + input.Path)), nil
	}
	defer f.Close()

	result, err := h.pipe.Run(ctx, filepath.Base(input.Path), f)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSave handles the claim_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Save(ctx, h.db, ops.SaveInput{
		Text:     input.Text,
		Entities: input.Entities,
		Filename: input.Filename,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMarkers handles the claim_markers tool call.
func (h *Handlers) HandleMarkers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	points, err := ops.Markers(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(points)
}

// HandleDump handles the claim_dump tool call.
func (h *Handlers) HandleDump(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Dump(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if cErr, ok := err.(*errors.ClaimError); ok {
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": cErr.Message,
			"status":  cErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if cErr.Code != errors.ErrInternal && cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
