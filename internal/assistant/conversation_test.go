package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spinabot/spinabot/internal/simulate"
)

func TestConversationAsk(t *testing.T) {
	c := NewConversation(nil, Config{Delayer: simulate.Instant})

	reply, err := c.Ask(context.Background(), "Filter by sales category")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !reply.Matched {
		t.Error("expected scripted match")
	}

	h := c.History()
	if len(h) != 3 {
		t.Fatalf("history len = %d, want 3", len(h))
	}
	if h[0].Role != RoleAssistant || h[0].Content != Welcome {
		t.Errorf("history[0] = %+v", h[0])
	}
	if h[1].Role != RoleUser || h[1].Content != "Filter by sales category" {
		t.Errorf("history[1] = %+v", h[1])
	}
	if h[2].Role != RoleAssistant || h[2].Content != reply.Text {
		t.Errorf("history[2] = %+v", h[2])
	}
}

func TestConversationIgnoresEmpty(t *testing.T) {
	c := NewConversation(nil, Config{Delayer: simulate.Instant})
	if _, err := c.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("err = %v, want ErrEmptyMessage", err)
	}
	if n := len(c.History()); n != 1 {
		t.Errorf("history len = %d, want 1", n)
	}
}

func TestConversationCancelledDuringDelay(t *testing.T) {
	c := NewConversation(nil, Config{Delayer: simulate.Delayer{Scale: 1}, MinDelay: time.Hour, MaxDelay: 2 * time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Ask(ctx, "show me unread emails"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	h := c.History()
	if len(h) != 2 || h[1].Role != RoleUser {
		t.Errorf("history = %+v, want welcome + user message", h)
	}
}

func TestConversationReset(t *testing.T) {
	c := NewConversation(nil, Config{Delayer: simulate.Instant})
	_, _ = c.Ask(context.Background(), "hello")
	c.Reset()
	if h := c.History(); len(h) != 1 || h[0].Content != Welcome {
		t.Errorf("history after reset = %+v", h)
	}
}

func TestNewConversationDefaults(t *testing.T) {
	c := NewConversation(nil, Config{})
	if c.cfg.MinDelay != time.Second || c.cfg.MaxDelay != 2*time.Second {
		t.Errorf("delays = %v..%v", c.cfg.MinDelay, c.cfg.MaxDelay)
	}
	c = NewConversation(nil, Config{MinDelay: 3 * time.Second})
	if c.cfg.MaxDelay != 3*time.Second {
		t.Errorf("max delay = %v, want clamp to min", c.cfg.MaxDelay)
	}
}
