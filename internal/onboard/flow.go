// Package onboard implements the onboarding flow: provider choice, simulated
// login, integration and task tool credentials, the quiz and the final
// connection. Every operation works on an explicit session.
package onboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/spinabot/spinabot/internal/catalog"
	"github.com/spinabot/spinabot/internal/secret"
	"github.com/spinabot/spinabot/internal/session"
	"github.com/spinabot/spinabot/internal/simulate"
)

// Simulated latencies.
const (
	LoginDelay          = 1500 * time.Millisecond
	ToolCredentialDelay = 1500 * time.Millisecond
	TaskCredentialDelay = 2 * time.Second
	ConnectStepDelay    = 1500 * time.Millisecond
)

// Config configures a Flow.
type Config struct {
	Catalog *catalog.Catalog
	Delayer simulate.Delayer
	// Sealer encrypts stored credentials. When nil credentials are stored
	// as plain JSON.
	Sealer *secret.Sealer
	Logger *slog.Logger
	Now    func() time.Time
}

// Flow runs onboarding operations.
type Flow struct {
	cat    *catalog.Catalog
	delay  simulate.Delayer
	sealer *secret.Sealer
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Flow.
func New(cfg Config) *Flow {
	f := &Flow{
		cat:    cfg.Catalog,
		delay:  cfg.Delayer,
		sealer: cfg.Sealer,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if f.cat == nil {
		f.cat = catalog.Default()
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Catalog returns the content the flow validates against.
func (f *Flow) Catalog() *catalog.Catalog { return f.cat }

// SelectProvider records the email provider choice.
func (f *Flow) SelectProvider(s *session.Session, id string) error {
	if _, ok := f.cat.Provider(id); !ok {
		return invalid("provider", fmt.Sprintf("Unknown email provider %q", id))
	}
	s.Provider = id
	return nil
}

// Login simulates signing in to the selected provider.
func (f *Flow) Login(ctx context.Context, s *session.Session, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return invalid("email", "Please enter your email and password")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return invalid("email", "Please enter a valid email address")
	}

	if err := f.delay.Wait(ctx, LoginDelay); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	s.UserEmail = email
	s.Provider = s.ProviderID()
	f.logger.Info("provider login", "session", s.ID, "provider", s.Provider)
	return nil
}

// SelectIntegration records which inbox and tool to connect.
func (f *Flow) SelectIntegration(s *session.Session, emailProvider, tool string) error {
	if emailProvider == "" || tool == "" {
		return invalid("tool", "Please select an email provider and a tool")
	}
	s.ConnectedEmail = emailProvider
	s.ConnectedTool = tool
	return nil
}

// SubmitToolCredentials validates and stores the connected tool's fields.
// Unknown field keys are dropped.
func (f *Flow) SubmitToolCredentials(ctx context.Context, s *session.Session, fields map[string]string) error {
	if to := Guard(s, StepToolCredentials); to != "" {
		return &RedirectError{To: to}
	}
	in, ok := f.cat.Integration(s.ConnectedTool)
	if !ok {
		return invalid("tool", "Invalid tool selected")
	}

	creds := make(map[string]string, len(in.Fields))
	for _, fld := range in.Fields {
		v := strings.TrimSpace(fields[fld.Key])
		if v == "" {
			return invalid(fld.Key, in.MissingMessage)
		}
		creds[fld.Key] = v
	}

	if err := f.delay.Wait(ctx, ToolCredentialDelay); err != nil {
		return fmt.Errorf("connect %s: %w", in.ID, err)
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode %s credentials: %w", in.ID, err)
	}
	cred, err := f.credential(in.ID, string(data))
	if err != nil {
		return err
	}
	if s.ToolCredentials == nil {
		s.ToolCredentials = make(map[string]session.Credential)
	}
	s.ToolCredentials[in.ID] = cred
	f.logger.Info("tool connected", "session", s.ID, "tool", in.ID, "sealed", cred.Sealed)
	return nil
}

// SelectTaskTool records the task-management tool.
func (f *Flow) SelectTaskTool(s *session.Session, id string) error {
	if _, ok := f.cat.TaskTool(id); !ok {
		return invalid("tool", fmt.Sprintf("Unknown task tool %q", id))
	}
	s.TaskTool = id
	s.TaskToolSkipped = false
	return nil
}

// SkipTaskTool moves past task tool setup without connecting one.
func (f *Flow) SkipTaskTool(s *session.Session) {
	s.TaskToolSkipped = true
	s.TaskToolConfig = nil
}

// TaskCredentials is the task tool connection form.
type TaskCredentials struct {
	APIKey      string `json:"api_key"`
	APIURL      string `json:"api_url"`
	WorkspaceID string `json:"workspace_id"`
}

// SubmitTaskCredentials connects the selected task tool. An empty API URL
// takes the tool's default.
func (f *Flow) SubmitTaskCredentials(ctx context.Context, s *session.Session, in TaskCredentials) error {
	key := strings.TrimSpace(in.APIKey)
	if key == "" {
		return invalid("api_key", "Please enter your API key")
	}
	tool := f.cat.TaskToolOrDefault(s.TaskToolID())
	url := strings.TrimSpace(in.APIURL)
	if url == "" {
		url = tool.DefaultAPIURL
	}

	if err := f.delay.Wait(ctx, TaskCredentialDelay); err != nil {
		return fmt.Errorf("connect %s: %w", tool.ID, err)
	}

	cred, err := f.credential(tool.ID, key)
	if err != nil {
		return err
	}
	s.TaskTool = tool.ID
	s.TaskToolSkipped = false
	s.TaskToolConfig = &session.TaskToolConfig{
		Tool:        tool.ID,
		APIKey:      cred,
		APIURL:      url,
		WorkspaceID: strings.TrimSpace(in.WorkspaceID),
		Connected:   true,
	}
	f.logger.Info("task tool connected", "session", s.ID, "tool", tool.ID)
	return nil
}

// AnswerQuestion records the answer to question n (1-based).
func (f *Flow) AnswerQuestion(s *session.Session, n int, answer string) error {
	if n < 1 || n > len(f.cat.Questions) {
		return invalid("question", fmt.Sprintf("Question %d does not exist", n))
	}
	if !slices.Contains(f.cat.Questions[n-1].Options, answer) {
		return invalid("answer", "Please select one of the options")
	}
	if s.OnboardingAnswers == nil {
		s.OnboardingAnswers = make(map[int]string)
	}
	s.OnboardingAnswers[n] = answer
	return nil
}

// QuizComplete reports whether every question has an answer.
func (f *Flow) QuizComplete(s *session.Session) bool {
	for n := range f.cat.Questions {
		if s.OnboardingAnswers[n+1] == "" {
			return false
		}
	}
	return true
}

// Progress receives each connection step as it starts.
type Progress func(step, total int, message string)

// Connect walks the connection steps for count emails and marks the session
// connected. On cancellation the session is left unchanged.
func (f *Flow) Connect(ctx context.Context, s *session.Session, count int, progress Progress) error {
	if count < 1 {
		return invalid("email_count", "Please enter at least 1 email")
	}
	steps := f.cat.Steps(s.ProviderID(), count)
	for i, msg := range steps {
		if progress != nil {
			progress(i, len(steps), msg)
		}
		if err := f.delay.Wait(ctx, ConnectStepDelay); err != nil {
			return fmt.Errorf("connect inbox: %w", err)
		}
	}
	s.EmailCount = count
	s.IsConnected = true
	f.logger.Info("inbox connected", "session", s.ID, "provider", s.ProviderID(), "count", count)
	return nil
}

// OpenCredential returns the plaintext of a stored credential.
func (f *Flow) OpenCredential(c session.Credential) (string, error) {
	if !c.Sealed {
		return c.Data, nil
	}
	if f.sealer == nil {
		return "", fmt.Errorf("credential for %s is sealed and no key is configured", c.Tool)
	}
	return f.sealer.Open(c.Data)
}

func (f *Flow) credential(tool, plain string) (session.Credential, error) {
	c := session.Credential{Tool: tool, Data: plain, UpdatedAt: f.now()}
	if f.sealer == nil {
		return c, nil
	}
	sealed, err := f.sealer.Seal(plain)
	if err != nil {
		return session.Credential{}, fmt.Errorf("seal %s credentials: %w", tool, err)
	}
	c.Data = sealed
	c.Sealed = true
	return c, nil
}
