// Package mcp exposes the inbox and assistant as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/query"
)

// Tool name constants.
const (
	ToolSearchEmails = "search_emails"
	ToolListEmails   = "list_emails"
	ToolGetEmail     = "get_email"
	ToolGetStats     = "get_stats"
	ToolAskAssistant = "ask_assistant"
)

// Common argument helpers for recurring tool option definitions.

func withLimit(defaultDesc string) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description("Maximum results to return (default "+defaultDesc+")"),
	)
}

func withPage() mcp.ToolOption {
	return mcp.WithNumber("page",
		mcp.Description("1-based page number (default 1)"),
	)
}

func withSort() mcp.ToolOption {
	return mcp.WithString("sort",
		mcp.Description("Sort key (default date)"),
		mcp.Enum("date", "sender", "priority", "subject", "company", "status"),
	)
}

func withOrder() mcp.ToolOption {
	return mcp.WithString("order",
		mcp.Description("Sort order (default desc)"),
		mcp.Enum("asc", "desc"),
	)
}

// Serve creates an MCP server with inbox tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, engine query.Engine, script *assistant.Script, cfg assistant.Config, version string) error {
	s := server.NewMCPServer(
		"spinabot",
		version,
		server.WithToolCapabilities(false),
	)

	h := newHandlers(engine, script, cfg)

	s.AddTool(searchEmailsTool(), h.searchEmails)
	s.AddTool(listEmailsTool(), h.listEmails)
	s.AddTool(getEmailTool(), h.getEmail)
	s.AddTool(getStatsTool(), h.getStats)
	s.AddTool(askAssistantTool(), h.askAssistant)

	stdio := server.NewStdioServer(s)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func searchEmailsTool() mcp.Tool {
	return mcp.NewTool(ToolSearchEmails,
		mcp.WithDescription("Search the inbox using Gmail-like query syntax. Supports from:, company:, category:, priority:, is:read|unread|starred, has:task|attachment, label:, subject:, before:, after:, newer_than:, older_than: and free text."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (e.g. 'company:techcorp priority:high is:unread migration')"),
		),
		withSort(),
		withOrder(),
		withLimit("20"),
		withPage(),
	)
}

func listEmailsTool() mcp.Tool {
	return mcp.NewTool(ToolListEmails,
		mcp.WithDescription("List inbox emails with the dashboard filters. Returns a page of emails and the total count."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("category",
			mcp.Description("Category filter"),
			mcp.Enum("all", "priority", "sales", "marketing", "updates", "social", "spam"),
		),
		mcp.WithString("priority",
			mcp.Description("Exact priority level: 1-5 or critical, high, medium, low, very-low"),
		),
		mcp.WithString("company",
			mcp.Description("Sender company substring"),
		),
		mcp.WithString("status",
			mcp.Description("Status filter"),
			mcp.Enum("all", "read", "unread", "starred", "task"),
		),
		mcp.WithString("search",
			mcp.Description("Free-text search over sender, subject, body and company"),
		),
		mcp.WithString("search_mode",
			mcp.Description("How search combines with the other filters (default and)"),
			mcp.Enum("and", "override"),
		),
		withSort(),
		withOrder(),
		withLimit("20"),
		withPage(),
	)
}

func getEmailTool() mcp.Tool {
	return mcp.NewTool(ToolGetEmail,
		mcp.WithDescription("Get a full email including body, labels and task by email ID."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Email ID (e.g. email-001)"),
		),
	)
}

func getStatsTool() mcp.Tool {
	return mcp.NewTool(ToolGetStats,
		mcp.WithDescription("Get inbox overview: total, unread, with tasks, high priority, and per-category counts."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func askAssistantTool() mcp.Tool {
	return mcp.NewTool(ToolAskAssistant,
		mcp.WithDescription("Ask the inbox assistant a question. Returns its reply and, when available, a suggested dashboard filter."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Question for the assistant (e.g. 'show me unread emails')"),
		),
	)
}
