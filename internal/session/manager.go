package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Manager creates sessions and keeps their expiry sliding forward on save.
// Callers holding a token must reissue it after Save so the handle follows
// the new expiry.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager returns a Manager over store. A ttl of zero disables expiry.
func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for stamps and sweeps.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Store returns the backing store.
func (m *Manager) Store() Store { return m.store }

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) stamp(s *Session) {
	now := m.now()
	s.UpdatedAt = now
	if m.ttl > 0 {
		s.ExpiresAt = now.Add(m.ttl)
	}
}

// Create saves and returns a new session with a random id.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s := New(uuid.NewString(), m.now())
	m.stamp(s)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Load returns the session with the given id.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return m.store.Get(ctx, id)
}

// Save persists s and extends its expiry.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	m.stamp(s)
	return m.store.Save(ctx, s)
}

// Delete removes the session with the given id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Sweep removes expired sessions.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	return m.store.Sweep(ctx, m.now())
}
