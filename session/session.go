package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/rickchristie/gentloop"
)

// Status is the lifecycle status of an [AgentSession]. It is separate from
// the agent's own status: a session outlives the loop runs it hosts.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// AgentSession is an immutable, versioned envelope around an agent state.
//
// Version counts writes: a new session has version 0, and [Store.Create] and
// every successful [Store.Save] return it with the version incremented. Stores refuse
// to save a session whose version is not the stored one.
type AgentSession struct {
	id        string
	name      string
	status    Status
	version   int
	createdAt time.Time
	updatedAt time.Time
	state     *gentloop.AgentState
}

// New creates an active session around state. A nil state starts empty.
func New(name string, state *gentloop.AgentState) *AgentSession {
	if state == nil {
		state = gentloop.NewAgentState()
	}
	now := time.Now()
	return &AgentSession{
		id:        uuid.NewString(),
		name:      name,
		status:    StatusActive,
		createdAt: now,
		updatedAt: now,
		state:     state,
	}
}

func (s *AgentSession) clone() *AgentSession {
	c := *s
	return &c
}

func (s *AgentSession) ID() string                  { return s.id }
func (s *AgentSession) Name() string                { return s.name }
func (s *AgentSession) Status() Status              { return s.status }
func (s *AgentSession) Version() int                { return s.version }
func (s *AgentSession) CreatedAt() time.Time        { return s.createdAt }
func (s *AgentSession) UpdatedAt() time.Time        { return s.updatedAt }
func (s *AgentSession) State() *gentloop.AgentState { return s.state }

// WithState returns a session holding state.
func (s *AgentSession) WithState(state *gentloop.AgentState) *AgentSession {
	c := s.clone()
	c.state = state
	return c
}

// WithStatus returns a session with its status replaced.
func (s *AgentSession) WithStatus(status Status) *AgentSession {
	c := s.clone()
	c.status = status
	return c
}

// Suspended returns a suspended session. A running agent state is suspended
// with it so the next loop run resumes it.
func (s *AgentSession) Suspended() *AgentSession {
	c := s.WithStatus(StatusSuspended)
	if c.state.Status() == gentloop.StatusRunning {
		c.state = c.state.WithStatus(gentloop.StatusSuspended)
	}
	return c
}

// saved returns the copy a store keeps after a successful save.
func (s *AgentSession) saved(at time.Time) *AgentSession {
	c := s.clone()
	c.version++
	c.updatedAt = at
	return c
}

// Info returns the session header.
func (s *AgentSession) Info() Info {
	return Info{
		ID:          s.id,
		Name:        s.name,
		Status:      s.status,
		Version:     s.version,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
		AgentID:     s.state.ID(),
		AgentStatus: s.state.Status(),
		Steps:       s.state.StepCount(),
	}
}

// Info is the header of a session, cheap to list.
type Info struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Status      Status          `json:"status" yaml:"status"`
	Version     int             `json:"version" yaml:"version"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"updated_at"`
	AgentID     string          `json:"agent_id" yaml:"agent_id"`
	AgentStatus gentloop.Status `json:"agent_status" yaml:"agent_status"`
	Steps       int             `json:"steps" yaml:"steps"`
}
