package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/funnelmkt/internal/config"
	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/errors"
	"github.com/hpungsan/funnelmkt/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	now func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Handlers{db: db, cfg: cfg, now: time.Now}
}

// Request types for each tool

// FetchRequest represents the arguments for client_fetch.
type FetchRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for client_list.
type ListRequest struct {
	Query    string `json:"query,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// SearchRequest represents the arguments for client_search.
type SearchRequest struct {
	Query string `json:"query"`
}

// StageRequest represents the arguments for client_stage.
type StageRequest struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
}

// ReorderRequest represents the arguments for client_reorder.
type ReorderRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// HandleCreate handles the client_create tool.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := decode[crm.Payload](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	output, err := ops.Create(ctx, h.db, payload)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleFetch handles the client_fetch tool.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	output, err := ops.Fetch(ctx, h.db, args.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleList handles the client_list tool.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	output, err := ops.List(ctx, h.db, h.cfg.PageSize, ops.ListInput{
		Query:    args.Query,
		Page:     args.Page,
		PageSize: args.PageSize,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleSearch handles the client_search tool.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	output, err := ops.Search(ctx, h.db, args.Query)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleSegment handles the client_segment tool.
func (h *Handlers) HandleSegment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pred, err := decode[crm.SegmentPredicate](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	output, err := ops.Segment(ctx, h.db, pred)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleStage handles the client_stage tool.
func (h *Handlers) HandleStage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[StageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	output, err := ops.Stage(ctx, h.db, args.ID, args.Stage)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleReorder handles the client_reorder tool.
func (h *Handlers) HandleReorder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ReorderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	output, err := ops.Reorder(ctx, h.db, args.FromID, args.ToID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// HandleStats handles the client_stats tool.
func (h *Handlers) HandleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	output, err := ops.Stats(ctx, h.db, h.now())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(output)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if fErr, ok := err.(*errors.FunnelError); ok {
		errorObj := map[string]any{
			"code":    fErr.Code,
			"message": fErr.Message,
			"status":  fErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if fErr.Code != errors.ErrInternal && fErr.Details != nil {
			errorObj["details"] = fErr.Details
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
