// Package session holds the per-visitor state of the demo: the chosen
// provider, the connected integrations, quiz answers and the connection flag.
//
// Sessions are plain values saved through a Store. A Manager stamps ids and
// expiry; tokens carry a session id between requests.
package session

import (
	"errors"
	"maps"
	"time"
)

// Defaults applied by the accessors when a field has not been set.
const (
	DefaultProvider   = "gmail"
	DefaultUserEmail  = "user@example.com"
	DefaultEmailCount = 50
	DefaultTaskTool   = "jira"
	DefaultTheme      = "dark"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Credential is a stored set of integration fields. Data is either a sealed
// envelope or, when no credential key is configured, plain JSON.
type Credential struct {
	Tool      string    `json:"tool"`
	Data      string    `json:"data"`
	Sealed    bool      `json:"sealed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskToolConfig is the connected task tool.
type TaskToolConfig struct {
	Tool        string     `json:"tool"`
	APIKey      Credential `json:"api_key"`
	APIURL      string     `json:"api_url"`
	WorkspaceID string     `json:"workspace_id,omitempty"`
	Connected   bool       `json:"connected"`
}

// Session is the state of one visitor.
type Session struct {
	ID                string                `json:"id"`
	Provider          string                `json:"provider,omitempty"`
	UserEmail         string                `json:"user_email,omitempty"`
	ConnectedEmail    string                `json:"connected_email,omitempty"`
	ConnectedTool     string                `json:"connected_tool,omitempty"`
	TaskTool          string                `json:"task_tool,omitempty"`
	TaskToolSkipped   bool                  `json:"task_tool_skipped,omitempty"`
	TaskToolConfig    *TaskToolConfig       `json:"task_tool_config,omitempty"`
	ToolCredentials   map[string]Credential `json:"tool_credentials,omitempty"`
	EmailCount        int                   `json:"email_count,omitempty"`
	IsConnected       bool                  `json:"is_connected"`
	OnboardingAnswers map[int]string        `json:"onboarding_answers,omitempty"`
	Theme             string                `json:"theme,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	ExpiresAt         time.Time             `json:"expires_at,omitzero"`
}

// New returns an empty session with the given id created at now.
func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// ProviderID returns the selected email provider or DefaultProvider.
func (s *Session) ProviderID() string {
	if s.Provider == "" {
		return DefaultProvider
	}
	return s.Provider
}

// Email returns the logged-in address or DefaultUserEmail.
func (s *Session) Email() string {
	if s.UserEmail == "" {
		return DefaultUserEmail
	}
	return s.UserEmail
}

// Count returns the number of emails to process or DefaultEmailCount.
func (s *Session) Count() int {
	if s.EmailCount <= 0 {
		return DefaultEmailCount
	}
	return s.EmailCount
}

// TaskToolID returns the selected task tool or DefaultTaskTool.
func (s *Session) TaskToolID() string {
	if s.TaskTool == "" {
		return DefaultTaskTool
	}
	return s.TaskTool
}

// ThemeName returns the UI theme or DefaultTheme.
func (s *Session) ThemeName() string {
	if s.Theme == "" {
		return DefaultTheme
	}
	return s.Theme
}

// Expired reports whether the session has passed its expiry. A zero
// ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.ToolCredentials = maps.Clone(s.ToolCredentials)
	c.OnboardingAnswers = maps.Clone(s.OnboardingAnswers)
	if s.TaskToolConfig != nil {
		tc := *s.TaskToolConfig
		c.TaskToolConfig = &tc
	}
	return &c
}
