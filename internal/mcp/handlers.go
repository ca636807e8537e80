package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/query"
	"github.com/spinabot/spinabot/internal/search"
)

type handlers struct {
	engine query.Engine
	conv   *assistant.Conversation
}

func newHandlers(engine query.Engine, script *assistant.Script, cfg assistant.Config) *handlers {
	return &handlers{engine: engine, conv: assistant.NewConversation(script, cfg)}
}

// listResult is a page of emails.
type listResult struct {
	Emails     []query.Email `json:"emails"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
}

// sortArgs extracts the optional sort and order arguments.
func sortArgs(args map[string]any) (query.Sort, error) {
	key, _ := args["sort"].(string)
	order, _ := args["order"].(string)
	k, err := query.ParseSortKey(key)
	if err != nil {
		return query.Sort{}, err
	}
	d, err := query.ParseSortDirection(order)
	if err != nil {
		return query.Sort{}, err
	}
	return query.Sort{Key: k, Direction: d}, nil
}

func pageArgs(args map[string]any) query.Pagination {
	return query.Pagination{
		Page:     intArg(args, "page", 1, math.MaxInt32),
		PageSize: intArg(args, "limit", 20, query.MaxPageSize),
	}
}

func (h *handlers) list(ctx context.Context, f query.Filter, args map[string]any) (*mcp.CallToolResult, error) {
	srt, err := sortArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := h.engine.List(ctx, f, srt, pageArgs(args))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	emails := page.Items
	if emails == nil {
		emails = []query.Email{}
	}
	return jsonResult(listResult{
		Emails:     emails,
		Total:      page.Total,
		Page:       page.Page,
		TotalPages: page.TotalPages,
	})
}

func (h *handlers) searchEmails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	queryStr, _ := args["query"].(string)
	if queryStr == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	return h.list(ctx, search.Parse(queryStr).Filter(), args)
}

func (h *handlers) listEmails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	var f query.Filter
	var err error
	if v, ok := args["category"].(string); ok && v != "" {
		if f.Category, err = query.ParseCategory(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v, ok := args["priority"].(string); ok && v != "" {
		level, err := query.ParsePriority(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		f.Priority = &level
	}
	if v, ok := args["company"].(string); ok {
		f.Company = v
	}
	if v, ok := args["status"].(string); ok && v != "" {
		if f.Status, err = query.ParseStatus(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v, ok := args["search"].(string); ok {
		f.Search = v
	}
	if v, ok := args["search_mode"].(string); ok {
		if f.SearchMode, err = query.ParseSearchMode(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	return h.list(ctx, f, args)
}

func (h *handlers) getEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, _ := args["id"].(string)
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	email, err := h.engine.Get(ctx, id)
	if errors.Is(err, query.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("email %s not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get email failed: %v", err)), nil
	}

	return jsonResult(email)
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.engine.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}

	cats, err := h.engine.Categories(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("categories failed: %v", err)), nil
	}

	resp := struct {
		Stats      *query.Stats          `json:"stats"`
		Categories []query.CategoryCount `json:"categories"`
	}{
		Stats:      stats,
		Categories: cats,
	}

	return jsonResult(resp)
}

func (h *handlers) askAssistant(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	msg, _ := args["message"].(string)
	reply, err := h.conv.Ask(ctx, msg)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		return mcp.NewToolResultError("message parameter is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assistant failed: %v", err)), nil
	}

	return jsonResult(reply)
}

// intArg extracts a positive integer from a map, with a default.
// JSON numbers arrive as float64. Values above max are clamped.
func intArg(args map[string]any, key string, def, max int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 1 {
		return def
	}
	if math.IsInf(v, 1) || v > float64(max) {
		return max
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
