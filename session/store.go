package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session: not found")

	// ErrExists is returned when creating a session whose id is taken.
	ErrExists = errors.New("session: already exists")

	// ErrVersionConflict is returned when saving a session that was saved by
	// someone else since it was loaded.
	ErrVersionConflict = errors.New("session: version conflict")
)

// Store persists sessions.
type Store interface {
	// Create stores a new session and returns it as stored.
	Create(ctx context.Context, session *AgentSession) (*AgentSession, error)

	// Save stores session if its version is the stored one, and returns it
	// with the version incremented.
	Save(ctx context.Context, session *AgentSession) (*AgentSession, error)

	// Load returns the stored session or ErrNotFound.
	Load(ctx context.Context, id string) (*AgentSession, error)

	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error

	// List returns the headers of all sessions, oldest first.
	List(ctx context.Context) ([]Info, error)
}

// MemoryStore is a [Store] kept in process memory. Sessions are immutable,
// so the store holds them by pointer without copying.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*AgentSession
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*AgentSession),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(ctx context.Context, session *AgentSession) (*AgentSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, session.ID())
	}
	stored := session.saved(m.now())
	m.sessions[stored.ID()] = stored
	return stored, nil
}

func (m *MemoryStore) Save(ctx context.Context, session *AgentSession) (*AgentSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[session.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, session.ID())
	}
	if current.Version() != session.Version() {
		return nil, fmt.Errorf("%w: %s is at version %d, got %d",
			ErrVersionConflict, session.ID(), current.Version(), session.Version())
	}
	stored := session.saved(m.now())
	m.sessions[stored.ID()] = stored
	return stored, nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*AgentSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	m.mu.RUnlock()

	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return infos, nil
}

var _ Store = (*MemoryStore)(nil)
