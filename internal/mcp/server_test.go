package mcp

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/query"
	"github.com/spinabot/spinabot/internal/query/querytest"
	"github.com/spinabot/spinabot/internal/simulate"
	"github.com/spinabot/spinabot/internal/testutil"
)

// toolHandler is the function signature for MCP tool handler methods.
type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// callToolDirect invokes a handler directly with the given arguments and returns the raw result.
func callToolDirect(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty content")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", r.Content[0])
	}
	return tc.Text
}

// runTool invokes a handler, asserts no error, and unmarshals the JSON result into T.
func runTool[T any](t *testing.T, name string, fn toolHandler, args map[string]any) T {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, r))
	}
	var out T
	if err := json.Unmarshal([]byte(resultText(t, r)), &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return out
}

// runToolExpectError invokes a handler and asserts it returns an error result.
func runToolExpectError(t *testing.T, name string, fn toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	r := callToolDirect(t, name, fn, args)
	if !r.IsError {
		t.Fatal("expected error result")
	}
	return r
}

func newTestHandlers(eng query.Engine) *handlers {
	return newHandlers(eng, nil, assistant.Config{Delayer: simulate.Instant})
}

func testEngine() *querytest.MockEngine {
	return &querytest.MockEngine{
		Emails: []query.Email{
			testutil.NewEmail("email-001").WithSender("Sarah Johnson", "sarah@techcorp.com", "TechCorp").
				WithSubject("Server migration").WithPriority(1).WithCategory(query.CategoryUpdates).Build(),
			testutil.NewEmail("email-002").WithSender("Lead Bot", "leads@salesforce.com", "Salesforce").
				WithSubject("New lead").WithPriority(2).Read().Build(),
			testutil.NewEmail("email-003").WithSender("Newsletter", "news@acme.com", "Acme").
				WithSubject("Weekly digest").WithPriority(5).WithCategory(query.CategoryMarketing).Read().Starred().Build(),
		},
	}
}

func TestSearchEmails(t *testing.T) {
	h := newTestHandlers(testEngine())

	t.Run("operators", func(t *testing.T) {
		res := runTool[listResult](t, ToolSearchEmails, h.searchEmails, map[string]any{"query": "company:techcorp is:unread"})
		testutil.AssertEmailIDs(t, res.Emails, "email-001")
		if res.Total != 1 {
			t.Errorf("total = %d, want 1", res.Total)
		}
	})

	t.Run("free text and sort", func(t *testing.T) {
		res := runTool[listResult](t, ToolSearchEmails, h.searchEmails, map[string]any{
			"query": "e", "sort": "priority", "order": "desc",
		})
		testutil.AssertEmailIDs(t, res.Emails, "email-003", "email-002", "email-001")
	})

	t.Run("no matches is an empty list", func(t *testing.T) {
		res := runTool[listResult](t, ToolSearchEmails, h.searchEmails, map[string]any{"query": "zebra"})
		if res.Emails == nil || len(res.Emails) != 0 {
			t.Errorf("emails = %v, want empty list", res.Emails)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		runToolExpectError(t, ToolSearchEmails, h.searchEmails, map[string]any{})
	})

	t.Run("invalid sort", func(t *testing.T) {
		runToolExpectError(t, ToolSearchEmails, h.searchEmails, map[string]any{"query": "x", "sort": "size"})
	})
}

func TestListEmails(t *testing.T) {
	h := newTestHandlers(testEngine())

	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{"no filters", map[string]any{}, []string{"email-001", "email-002", "email-003"}},
		{"category", map[string]any{"category": "marketing"}, []string{"email-003"}},
		{"priority name", map[string]any{"priority": "critical"}, []string{"email-001"}},
		{"status", map[string]any{"status": "starred"}, []string{"email-003"}},
		{"company", map[string]any{"company": "sales"}, []string{"email-002"}},
		{"search and", map[string]any{"search": "digest", "category": "updates"}, nil},
		{"search override", map[string]any{"search": "digest", "category": "updates", "search_mode": "override"}, []string{"email-003"}},
		{"paging", map[string]any{"limit": float64(2), "page": float64(2)}, []string{"email-003"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runTool[listResult](t, ToolListEmails, h.listEmails, tt.args)
			testutil.AssertEmailIDs(t, res.Emails, tt.want...)
		})
	}
}

func TestListEmailsInvalidArgs(t *testing.T) {
	h := newTestHandlers(testEngine())

	for _, args := range []map[string]any{
		{"category": "junk"},
		{"priority": "urgent"},
		{"status": "deleted"},
		{"search_mode": "or"},
		{"order": "up"},
	} {
		runToolExpectError(t, ToolListEmails, h.listEmails, args)
	}
}

func TestGetEmail(t *testing.T) {
	h := newTestHandlers(testEngine())

	t.Run("found", func(t *testing.T) {
		email := runTool[query.Email](t, ToolGetEmail, h.getEmail, map[string]any{"id": "email-002"})
		if email.Subject != "New lead" {
			t.Fatalf("unexpected subject: %s", email.Subject)
		}
	})

	t.Run("not found", func(t *testing.T) {
		r := runToolExpectError(t, ToolGetEmail, h.getEmail, map[string]any{"id": "email-404"})
		if !strings.Contains(resultText(t, r), "not found") {
			t.Errorf("error = %q", resultText(t, r))
		}
	})

	t.Run("missing id", func(t *testing.T) {
		runToolExpectError(t, ToolGetEmail, h.getEmail, map[string]any{})
	})
}

func TestGetStats(t *testing.T) {
	h := newTestHandlers(testEngine())

	resp := runTool[struct {
		Stats      query.Stats           `json:"stats"`
		Categories []query.CategoryCount `json:"categories"`
	}](t, ToolGetStats, h.getStats, map[string]any{})

	want := query.Stats{Total: 3, Unread: 1, WithTasks: 0, HighPriority: 2}
	if resp.Stats != want {
		t.Errorf("stats = %+v, want %+v", resp.Stats, want)
	}
	if len(resp.Categories) == 0 || resp.Categories[0].Count != 3 {
		t.Errorf("categories = %+v", resp.Categories)
	}
}

func TestAskAssistant(t *testing.T) {
	h := newTestHandlers(testEngine())

	t.Run("scripted", func(t *testing.T) {
		reply := runTool[assistant.Reply](t, ToolAskAssistant, h.askAssistant, map[string]any{"message": "Filter by sales category"})
		if !reply.Matched || reply.Suggest == nil || reply.Suggest.Category != query.CategorySales {
			t.Errorf("reply = %+v", reply)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		reply := runTool[assistant.Reply](t, ToolAskAssistant, h.askAssistant, map[string]any{"message": "tell me a joke"})
		if reply.Matched || reply.Text != assistant.Fallback {
			t.Errorf("reply = %+v", reply)
		}
	})

	t.Run("empty", func(t *testing.T) {
		runToolExpectError(t, ToolAskAssistant, h.askAssistant, map[string]any{"message": "  "})
	})

	// welcome + two exchanges
	if n := len(h.conv.History()); n != 5 {
		t.Errorf("history length = %d, want 5", n)
	}
}

func TestIntArgClamping(t *testing.T) {
	tests := []struct {
		name string
		val  float64
		want int
	}{
		{"negative uses default", -5, 20},
		{"zero uses default", 0, 20},
		{"normal value", 50, 50},
		{"above max clamped", 5000, query.MaxPageSize},
		{"huge float clamped", 1e18, query.MaxPageSize},
		{"NaN uses default", math.NaN(), 20},
		{"Inf clamped", math.Inf(1), query.MaxPageSize},
		{"negative Inf uses default", math.Inf(-1), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := intArg(map[string]any{"x": tt.val}, "x", 20, query.MaxPageSize)
			if got != tt.want {
				t.Fatalf("intArg(%v) = %d, want %d", tt.val, got, tt.want)
			}
		})
	}
}
