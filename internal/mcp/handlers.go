package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/followpick/internal/config"
	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/ops"
)

// Store is the snapshot persistence the tools need.
type Store interface {
	ops.SnapshotStore
	ops.SnapshotReader
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store  Store
	source follower.Source // nil when no API key is configured
	cfg    *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store Store, source follower.Source, cfg *config.Config) *Handlers {
	return &Handlers{store: store, source: source, cfg: cfg}
}

// Request types for each tool

// PickGeneralRequest represents the arguments for winner_pick_general.
type PickGeneralRequest struct {
	Username string `json:"username"`
	Count    int    `json:"count,omitempty"`
}

// PickOrientationRequest represents the arguments for winner_pick_orientation.
type PickOrientationRequest struct {
	Username     string         `json:"username"`
	Window       numberOrString `json:"window"`
	Policy       string         `json:"policy,omitempty"`
	FullBaseline bool           `json:"full_baseline,omitempty"`
	Seed         *uint64        `json:"seed,omitempty"`
}

// CaptureRequest represents the arguments for snapshot_capture.
type CaptureRequest struct {
	Username string `json:"username"`
	Full     bool   `json:"full,omitempty"`
}

// ListRequest represents the arguments for snapshot_list.
type ListRequest struct {
	Username string `json:"username"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for snapshot_fetch.
type FetchRequest struct {
	ID               string `json:"id"`
	IncludeFollowers bool   `json:"include_followers,omitempty"`
}

// Handler implementations

// HandlePickGeneral handles the winner_pick_general tool call.
func (h *Handlers) HandlePickGeneral(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PickGeneralRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.requireSource(); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.PickGeneral(ctx, h.source, h.cfg, ops.PickGeneralInput{
		Subject: input.Username,
		Count:   input.Count,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePickOrientation handles the winner_pick_orientation tool call.
func (h *Handlers) HandlePickOrientation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PickOrientationRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	window, err := ops.ParseWindow(string(input.Window))
	if err != nil {
		return errorResult(err), nil
	}
	var policy ops.BaselinePolicy
	if input.Policy != "" {
		if policy, err = ops.ParsePolicy(input.Policy); err != nil {
			return errorResult(err), nil
		}
	}
	if err := h.requireSource(); err != nil {
		return errorResult(err), nil
	}

	pick := ops.PickOrientationInput{
		Subject:      input.Username,
		Window:       window,
		Policy:       policy,
		FullBaseline: input.FullBaseline,
	}
	if input.Seed != nil {
		pick.Rand = ops.NewSeededRand(*input.Seed)
	}

	result, err := ops.PickOrientation(ctx, h.store, h.source, h.cfg, pick)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCapture handles the snapshot_capture tool call.
func (h *Handlers) HandleCapture(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaptureRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.requireSource(); err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Capture(ctx, h.store, h.source, ops.CaptureInput{
		Subject:  input.Username,
		Full:     input.Full,
		MaxFetch: h.cfg.MaxFetch,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the snapshot_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.store, ops.ListInput{
		Subject: input.Username,
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFetch handles the snapshot_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.store, ops.FetchInput{
		ID:               input.ID,
		IncludeFollowers: input.IncludeFollowers,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSubjects handles the snapshot_subjects tool call.
func (h *Handlers) HandleSubjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Inventory(ctx, h.store)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

func (h *Handlers) requireSource() error {
	if h.source == nil {
		return errors.NewConfig("API key not configured")
	}
	return nil
}

// errorResult converts an error into an MCP error result. The wrapped cause
// is never included since it may carry raw provider or driver text.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if pErr := errors.As(err); pErr != nil {
		errorObj := map[string]any{
			"code":    pErr.Code,
			"message": pErr.Message,
			"status":  pErr.Status,
		}
		if pErr.Hint != "" {
			errorObj["hint"] = pErr.Hint
		}
		// Only include details for non-internal errors
		if pErr.Code != errors.ErrInternal && pErr.Details != nil {
			errorObj["details"] = pErr.Details
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
