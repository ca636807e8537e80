package catalog

import (
	"strings"
	"testing"

	"github.com/spinabot/spinabot/internal/testutil"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if c.Product != "SPINABOT" {
		t.Errorf("Product = %q", c.Product)
	}
	if len(c.Providers) != 3 {
		t.Errorf("providers = %d, want 3", len(c.Providers))
	}
	if len(c.Integrations) != 5 {
		t.Errorf("integrations = %d, want 5", len(c.Integrations))
	}
	if len(c.Questions) != 6 {
		t.Errorf("questions = %d, want 6", len(c.Questions))
	}
	for i, q := range c.Questions {
		if len(q.Options) != 4 {
			t.Errorf("question %d has %d options", i+1, len(q.Options))
		}
	}
	if len(c.ConnectionSteps) != 6 {
		t.Errorf("connection steps = %d, want 6", len(c.ConnectionSteps))
	}

	var available []string
	for _, p := range c.Products {
		if p.Available {
			available = append(available, p.Title)
		}
	}
	testutil.AssertStrings(t, available, "Email Classifier AI")
}

func TestIntegrationFields(t *testing.T) {
	c := Default()
	tests := []struct {
		id      string
		keys    []string
		message string
	}{
		{"jira", []string{"email", "apiToken", "domain"}, "Please fill in all Jira credentials"},
		{"asana", []string{"token"}, "Please enter your Asana Personal Access Token"},
		{"notion", []string{"token"}, "Please enter your Notion Integration Token"},
		{"slack", []string{"webhook"}, "Please enter your Slack Webhook URL"},
		{"trello", []string{"apiKey", "token"}, "Please fill in all Trello credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			in, ok := c.Integration(tt.id)
			if !ok {
				t.Fatalf("integration %s missing", tt.id)
			}
			var keys []string
			for _, f := range in.Fields {
				keys = append(keys, f.Key)
			}
			testutil.AssertStrings(t, keys, tt.keys...)
			if in.MissingMessage != tt.message {
				t.Errorf("MissingMessage = %q", in.MissingMessage)
			}
			if len(in.Instructions) != 4 {
				t.Errorf("instructions = %d, want 4", len(in.Instructions))
			}
			if !strings.HasPrefix(in.DocsURL, "https://") {
				t.Errorf("DocsURL = %q", in.DocsURL)
			}
		})
	}
}

func TestLookupFallbacks(t *testing.T) {
	c := Default()

	if got := c.ProviderOrDefault("yahoo").ID; got != "gmail" {
		t.Errorf("unknown provider fell back to %q", got)
	}
	if got := c.ProviderOrDefault("zoho").Name; got != "Zoho Mail" {
		t.Errorf("zoho name = %q", got)
	}
	if got := c.TaskToolOrDefault("").DefaultAPIURL; got != "https://your-domain.atlassian.net" {
		t.Errorf("default task tool url = %q", got)
	}
	if got := c.TaskToolOrDefault("notion").DefaultAPIURL; got != "https://api.notion.com" {
		t.Errorf("notion url = %q", got)
	}
	if _, ok := c.Integration("teams"); ok {
		t.Error("unexpected integration teams")
	}
}

func TestSteps(t *testing.T) {
	steps := Default().Steps("outlook", 25)
	testutil.AssertStrings(t, steps,
		"Connecting to your Outlook account...",
		"Authenticating credentials...",
		"Analyzing your email patterns...",
		"Fetching your first 25 emails...",
		"Classifying emails with AI...",
		"Setting up your dashboard...",
	)
}

func TestStyles(t *testing.T) {
	c := Default()
	p, ok := c.PriorityStyle(1)
	if !ok || p.Label != "Critical" || p.Color != "#EF4444" {
		t.Errorf("priority 1 style = %+v", p)
	}
	if _, ok := c.PriorityStyle(6); ok {
		t.Error("priority 6 should have no style")
	}
	if got := c.CategoryColor("updates"); got != "#3B82F6" {
		t.Errorf("updates color = %q", got)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "providers: [\n"},
		{"no providers", "task_tools: [{id: jira}]"},
		{"integration without fields", "providers: [{id: gmail}]\ntask_tools: [{id: jira}]\nintegrations: [{id: x, missing_message: m}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
