package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/spinabot/spinabot/internal/simulate"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation transcript.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Config holds conversation configuration.
type Config struct {
	MinDelay time.Duration // lower bound of the think delay (default: 1s)
	MaxDelay time.Duration // upper bound of the think delay (default: 2s)
	Delayer  simulate.Delayer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Conversation is a chat transcript with the scripted assistant. It is
// safe for concurrent use; messages are appended in call order.
type Conversation struct {
	script *Script
	cfg    Config

	mu      sync.Mutex
	history []Message
}

// NewConversation starts a conversation whose history begins with Welcome.
func NewConversation(script *Script, cfg Config) *Conversation {
	if script == nil {
		script = DefaultScript()
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = 2 * time.Second
		if cfg.MaxDelay < cfg.MinDelay {
			cfg.MaxDelay = cfg.MinDelay
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Conversation{script: script, cfg: cfg}
	c.history = []Message{{Role: RoleAssistant, Content: Welcome, At: cfg.Now()}}
	return c
}

// ErrEmptyMessage is returned by Ask for blank input.
var ErrEmptyMessage = errors.New("empty message")

// Ask records the user's message, waits the simulated think delay and
// records the reply. Blank input is ignored and returns ErrEmptyMessage.
// If ctx ends during the delay, the user message stays in the history
// without a reply.
func (c *Conversation) Ask(ctx context.Context, text string) (Reply, error) {
	reply, ok := c.script.Respond(text)
	if !ok {
		return Reply{}, ErrEmptyMessage
	}

	c.append(RoleUser, text)

	if err := c.cfg.Delayer.Wait(ctx, simulate.Between(c.cfg.MinDelay, c.cfg.MaxDelay)); err != nil {
		return Reply{}, fmt.Errorf("assistant reply: %w", err)
	}

	c.append(RoleAssistant, reply.Text)
	c.cfg.Logger.Debug("assistant reply", "matched", reply.Matched, "phrase", reply.Phrase)
	return reply, nil
}

func (c *Conversation) append(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, Message{Role: role, Content: content, At: c.cfg.Now()})
}

// History returns a copy of the transcript.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// Reset clears the transcript back to the welcome message.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = []Message{{Role: RoleAssistant, Content: Welcome, At: c.cfg.Now()}}
}
