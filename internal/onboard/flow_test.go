package onboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spinabot/spinabot/internal/secret"
	"github.com/spinabot/spinabot/internal/session"
	"github.com/spinabot/spinabot/internal/simulate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newFlow(t *testing.T, sealer *secret.Sealer) *Flow {
	t.Helper()
	return New(Config{Delayer: simulate.Instant, Sealer: sealer, Logger: testLogger()})
}

func wantValidation(t *testing.T, err error, msg string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if ve.Message != msg {
		t.Errorf("message = %q, want %q", ve.Message, msg)
	}
}

func TestSelectProvider(t *testing.T) {
	f := newFlow(t, nil)
	s := &session.Session{}
	if err := f.SelectProvider(s, "outlook"); err != nil {
		t.Fatalf("SelectProvider: %v", err)
	}
	if s.Provider != "outlook" {
		t.Errorf("Provider = %q", s.Provider)
	}
	var ve *ValidationError
	if err := f.SelectProvider(s, "aol"); !errors.As(err, &ve) {
		t.Errorf("unknown provider err = %v", err)
	}
	if s.Provider != "outlook" {
		t.Error("failed selection changed the provider")
	}
}

func TestLogin(t *testing.T) {
	f := newFlow(t, nil)

	tests := []struct {
		name, email, password, wantErr string
	}{
		{"ok", "ana@example.com", "pw", ""},
		{"missing email", "", "pw", "Please enter your email and password"},
		{"missing password", "ana@example.com", "", "Please enter your email and password"},
		{"bad syntax", "not-an-email", "pw", "Please enter a valid email address"},
		{"display name", "Ana <ana@example.com>", "pw", "Please enter a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &session.Session{}
			err := f.Login(context.Background(), s, tt.email, tt.password)
			if tt.wantErr != "" {
				wantValidation(t, err, tt.wantErr)
				if s.UserEmail != "" {
					t.Error("failed login set UserEmail")
				}
				return
			}
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if s.UserEmail != tt.email || s.Provider != session.DefaultProvider {
				t.Errorf("session = %+v", s)
			}
		})
	}
}

func TestLoginCancelled(t *testing.T) {
	f := New(Config{Delayer: simulate.Delayer{Scale: 1}, Logger: testLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &session.Session{}
	if err := f.Login(ctx, s, "a@b.co", "pw"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if s.UserEmail != "" {
		t.Error("cancelled login set UserEmail")
	}
}

func TestSubmitToolCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t, nil)

	t.Run("guard redirects", func(t *testing.T) {
		s := &session.Session{ConnectedTool: "jira"}
		err := f.SubmitToolCredentials(ctx, s, nil)
		var re *RedirectError
		if !errors.As(err, &re) || re.To != StepIntegrations {
			t.Errorf("err = %v, want redirect to integrations", err)
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		s := &session.Session{ConnectedTool: "basecamp", ConnectedEmail: "gmail"}
		wantValidation(t, f.SubmitToolCredentials(ctx, s, nil), "Invalid tool selected")
	})

	missing := []struct {
		tool   string
		fields map[string]string
		msg    string
	}{
		{"jira", map[string]string{"email": "a@b.co", "apiToken": "t"}, "Please fill in all Jira credentials"},
		{"asana", nil, "Please enter your Asana Personal Access Token"},
		{"notion", map[string]string{"token": "  "}, "Please enter your Notion Integration Token"},
		{"slack", nil, "Please enter your Slack Webhook URL"},
		{"trello", map[string]string{"apiKey": "k"}, "Please fill in all Trello credentials"},
	}
	for _, tt := range missing {
		t.Run("missing "+tt.tool, func(t *testing.T) {
			s := &session.Session{ConnectedTool: tt.tool, ConnectedEmail: "gmail"}
			wantValidation(t, f.SubmitToolCredentials(ctx, s, tt.fields), tt.msg)
			if len(s.ToolCredentials) != 0 {
				t.Error("credentials stored after validation failure")
			}
		})
	}

	t.Run("stores plain json", func(t *testing.T) {
		s := &session.Session{ConnectedTool: "jira", ConnectedEmail: "gmail"}
		fields := map[string]string{
			"email":    "a@b.co",
			"apiToken": "tok",
			"domain":   "acme.atlassian.net",
			"extra":    "dropped",
		}
		if err := f.SubmitToolCredentials(ctx, s, fields); err != nil {
			t.Fatalf("SubmitToolCredentials: %v", err)
		}
		cred := s.ToolCredentials["jira"]
		if cred.Sealed {
			t.Error("credential sealed without a sealer")
		}
		var got map[string]string
		if err := json.Unmarshal([]byte(cred.Data), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		want := map[string]string{"email": "a@b.co", "apiToken": "tok", "domain": "acme.atlassian.net"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("credentials (-want +got):\n%s", diff)
		}
	})

	t.Run("seals with key", func(t *testing.T) {
		sealer, _ := secret.NewSealer("k")
		f := newFlow(t, sealer)
		s := &session.Session{ConnectedTool: "slack", ConnectedEmail: "outlook"}
		hook := "https://hooks.slack.com/services/X"
		if err := f.SubmitToolCredentials(ctx, s, map[string]string{"webhook": hook}); err != nil {
			t.Fatalf("SubmitToolCredentials: %v", err)
		}
		cred := s.ToolCredentials["slack"]
		if !cred.Sealed || strings.Contains(cred.Data, "hooks.slack.com") {
			t.Errorf("credential not sealed: %+v", cred)
		}
		plain, err := f.OpenCredential(cred)
		if err != nil {
			t.Fatalf("OpenCredential: %v", err)
		}
		if !strings.Contains(plain, hook) {
			t.Errorf("opened = %q", plain)
		}
	})
}

func TestTaskTool(t *testing.T) {
	ctx := context.Background()
	f := newFlow(t, nil)

	s := &session.Session{}
	if err := f.SelectTaskTool(s, "trello"); err == nil {
		t.Error("SelectTaskTool(trello) should fail")
	}
	if err := f.SelectTaskTool(s, "notion"); err != nil {
		t.Fatalf("SelectTaskTool: %v", err)
	}
	if Next(s, StepTaskSelection) != StepTaskCredentials {
		t.Error("selected tool should lead to task credentials")
	}

	wantValidation(t, f.SubmitTaskCredentials(ctx, s, TaskCredentials{}), "Please enter your API key")

	if err := f.SubmitTaskCredentials(ctx, s, TaskCredentials{APIKey: "secret_x"}); err != nil {
		t.Fatalf("SubmitTaskCredentials: %v", err)
	}
	cfg := s.TaskToolConfig
	if cfg == nil || !cfg.Connected || cfg.Tool != "notion" || cfg.APIURL != "https://api.notion.com" {
		t.Errorf("TaskToolConfig = %+v", cfg)
	}
	if cfg.APIKey.Data != "secret_x" {
		t.Errorf("api key = %q", cfg.APIKey.Data)
	}

	t.Run("default tool and custom url", func(t *testing.T) {
		s := &session.Session{}
		in := TaskCredentials{APIKey: "k", APIURL: "https://acme.atlassian.net", WorkspaceID: "W1"}
		if err := f.SubmitTaskCredentials(ctx, s, in); err != nil {
			t.Fatalf("SubmitTaskCredentials: %v", err)
		}
		if s.TaskToolConfig.Tool != "jira" || s.TaskToolConfig.APIURL != in.APIURL || s.TaskToolConfig.WorkspaceID != "W1" {
			t.Errorf("TaskToolConfig = %+v", s.TaskToolConfig)
		}
	})

	t.Run("skip", func(t *testing.T) {
		f.SkipTaskTool(s)
		if s.TaskToolConfig != nil || !s.TaskToolSkipped {
			t.Errorf("after skip: %+v", s)
		}
		if Next(s, StepTaskSelection) != StepEmailSettings {
			t.Error("skip should lead to email settings")
		}
	})
}

func TestQuiz(t *testing.T) {
	f := newFlow(t, nil)
	s := &session.Session{}
	qs := f.Catalog().Questions

	if err := f.AnswerQuestion(s, 0, qs[0].Options[0]); err == nil {
		t.Error("question 0 should be rejected")
	}
	if err := f.AnswerQuestion(s, len(qs)+1, "x"); err == nil {
		t.Error("question past the end should be rejected")
	}
	wantValidation(t, f.AnswerQuestion(s, 1, "Not an option"), "Please select one of the options")

	for i, q := range qs {
		if f.QuizComplete(s) {
			t.Fatalf("quiz complete after %d answers", i)
		}
		if err := f.AnswerQuestion(s, i+1, q.Options[len(q.Options)-1]); err != nil {
			t.Fatalf("AnswerQuestion(%d): %v", i+1, err)
		}
	}
	if !f.QuizComplete(s) {
		t.Error("quiz should be complete")
	}
}

func TestConnect(t *testing.T) {
	f := newFlow(t, nil)
	s := &session.Session{Provider: "outlook"}

	wantValidation(t, f.Connect(context.Background(), s, 0, nil), "Please enter at least 1 email")

	var got []string
	err := f.Connect(context.Background(), s, 25, func(step, total int, msg string) {
		if step != len(got) || total != 6 {
			t.Errorf("progress(%d, %d)", step, total)
		}
		got = append(got, msg)
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	want := []string{
		"Connecting to your Outlook account...",
		"Authenticating credentials...",
		"Analyzing your email patterns...",
		"Fetching your first 25 emails...",
		"Classifying emails with AI...",
		"Setting up your dashboard...",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("steps (-want +got):\n%s", diff)
	}
	if !s.IsConnected || s.EmailCount != 25 {
		t.Errorf("session = %+v", s)
	}
	if Guard(s, StepDashboard) != "" {
		t.Error("connected session should reach the dashboard")
	}
}

func TestConnectCancelled(t *testing.T) {
	f := New(Config{Delayer: simulate.Delayer{Scale: 1}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	ctx, cancel := context.WithCancel(context.Background())
	s := &session.Session{}
	steps := 0
	err := f.Connect(ctx, s, 10, func(int, int, string) {
		steps++
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if steps != 1 || s.IsConnected || s.EmailCount != 0 {
		t.Errorf("steps=%d session=%+v", steps, s)
	}
}

func TestGuardAndNext(t *testing.T) {
	s := &session.Session{}
	tests := []struct {
		step Step
		want Step
	}{
		{StepHome, ""},
		{StepToolCredentials, StepIntegrations},
		{StepDashboard, StepEmailSettings},
		{StepLogin, ""},
	}
	for _, tt := range tests {
		if got := Guard(s, tt.step); got != tt.want {
			t.Errorf("Guard(%s) = %q, want %q", tt.step, got, tt.want)
		}
	}

	if Next(s, StepHome) != StepProducts || Next(s, StepLogin) != StepIntegrations {
		t.Error("Next does not follow flow order")
	}
	if Next(s, StepDashboard) != StepDashboard {
		t.Error("dashboard should be terminal")
	}
	if _, ok := ParseStep("tool_credentials"); !ok {
		t.Error("ParseStep(tool_credentials) failed")
	}
	if _, ok := ParseStep("nope"); ok {
		t.Error("ParseStep(nope) succeeded")
	}
}
