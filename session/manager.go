package session

import (
	"context"
	"fmt"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/executor"
)

// Manager runs actions and loops against stored sessions. Every change is a
// load, a pure transformation and a versioned save, so concurrent writers
// to one session fail with ErrVersionConflict instead of losing updates.
type Manager struct {
	store Store
}

// NewManager creates a manager over store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Store returns the underlying store.
func (m *Manager) Store() Store { return m.store }

// Create stores a new session around state.
func (m *Manager) Create(ctx context.Context, name string, state *gentloop.AgentState) (*AgentSession, error) {
	return m.store.Create(ctx, New(name, state))
}

// ListSessions returns the headers of all sessions.
func (m *Manager) ListSessions(ctx context.Context) ([]Info, error) {
	return m.store.List(ctx)
}

// GetSessionInfo returns the header of one session.
func (m *Manager) GetSessionInfo(ctx context.Context, id string) (Info, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return Info{}, err
	}
	return s.Info(), nil
}

// GetSession loads one session.
func (m *Manager) GetSession(ctx context.Context, id string) (*AgentSession, error) {
	return m.store.Load(ctx, id)
}

// Execute applies action to the session and saves the result.
func (m *Manager) Execute(ctx context.Context, id string, action Action) (*AgentSession, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	saved, err := m.store.Save(ctx, action.Apply(s))
	if err != nil {
		return nil, fmt.Errorf("failed to save session after action: %w", err)
	}
	return saved, nil
}

// Run executes loop on the session's agent state and saves the outcome. A
// suspended session is reactivated; closed sessions are refused.
func (m *Manager) Run(ctx context.Context, id string, loop *executor.Loop) (*AgentSession, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status() == StatusClosed {
		return nil, fmt.Errorf("session %s is closed", id)
	}

	final := loop.Execute(ctx, s.State())

	next := s.WithState(final).WithStatus(StatusActive)
	if final.Status() == gentloop.StatusSuspended {
		next = next.WithStatus(StatusSuspended)
	}
	saved, err := m.store.Save(context.WithoutCancel(ctx), next)
	if err != nil {
		return nil, fmt.Errorf("failed to save session after run: %w", err)
	}
	return saved, nil
}
