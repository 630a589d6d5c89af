package gentloop

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// Status is the lifecycle status of an [AgentState].
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSuspended Status = "suspended"
)

// IsTerminal reports whether no further step may be appended in this status.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSuspended
}

// AgentState is an immutable snapshot of an agent run.
//
// Every With* method returns a new state; the receiver is never modified.
// Slices and maps are copied on write, so states can be shared freely across
// goroutines and retained as history.
type AgentState struct {
	id            string
	parentAgentID string

	messages     []llms.MessageContent
	systemPrompt string
	modelConfig  ModelConfig
	metadata     map[string]any
	budget       ExecutionBudget

	steps         []Step
	status        Status
	finalResponse string
	createdAt     time.Time
}

// NewAgentState creates an empty running state with a fresh id.
func NewAgentState() *AgentState {
	return &AgentState{
		id:        uuid.NewString(),
		status:    StatusRunning,
		createdAt: time.Now(),
	}
}

func (s *AgentState) clone() *AgentState {
	c := *s
	return &c
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// ID returns the agent id of this state lineage.
func (s *AgentState) ID() string { return s.id }

// ParentAgentID returns the id of the agent that spawned this one, or "".
// The relation is informational only.
func (s *AgentState) ParentAgentID() string { return s.parentAgentID }

// Messages returns a copy of the conversation messages.
func (s *AgentState) Messages() []llms.MessageContent { return slices.Clone(s.messages) }

// SystemPrompt returns the system prompt from the context bag.
func (s *AgentState) SystemPrompt() string { return s.systemPrompt }

// ModelConfig returns the model configuration and whether one is set.
func (s *AgentState) ModelConfig() (ModelConfig, bool) {
	return s.modelConfig, !s.modelConfig.IsZero()
}

// Metadata returns a copy of the metadata bag.
func (s *AgentState) Metadata() map[string]any { return maps.Clone(s.metadata) }

// MetadataValue returns a single metadata value.
func (s *AgentState) MetadataValue(key string) (any, bool) {
	v, ok := s.metadata[key]
	return v, ok
}

// Budget returns the state-level budget. Loops prefer it over their own
// budget when it is not empty, which lets sessions raise ceilings before
// resuming a suspended run.
func (s *AgentState) Budget() ExecutionBudget { return s.budget }

// Status returns the lifecycle status.
func (s *AgentState) Status() Status { return s.status }

// FinalResponse returns the final answer text, or "" if none was produced.
func (s *AgentState) FinalResponse() string { return s.finalResponse }

// CreatedAt returns when the lineage was created.
func (s *AgentState) CreatedAt() time.Time { return s.createdAt }

// Steps returns a copy of the completed steps, oldest first.
func (s *AgentState) Steps() []Step { return slices.Clone(s.steps) }

// StepCount returns the number of completed steps.
func (s *AgentState) StepCount() int { return len(s.steps) }

// LastStep returns the most recent step, or nil if none.
func (s *AgentState) LastStep() *Step {
	if len(s.steps) == 0 {
		return nil
	}
	step := s.steps[len(s.steps)-1]
	return &step
}

// LastStepToolExecutions returns the tool executions of the last step.
func (s *AgentState) LastStepToolExecutions() []ToolExecution {
	if last := s.LastStep(); last != nil {
		return slices.Clone(last.Executions)
	}
	return nil
}

// TotalUsage sums the token usage of all steps.
func (s *AgentState) TotalUsage() Usage {
	var total Usage
	for _, step := range s.steps {
		total = total.Add(step.Usage)
	}
	return total
}

// Elapsed sums the duration of all steps.
func (s *AgentState) Elapsed() time.Duration {
	var total time.Duration
	for _, step := range s.steps {
		total += step.Duration
	}
	return total
}

// Err returns the diagnostic of a failed state: the errors recorded on the
// last step, or a generic error when the failing step recorded none. It
// returns nil for any other status.
func (s *AgentState) Err() error {
	if s.status != StatusFailed {
		return nil
	}
	if last := s.LastStep(); last != nil {
		if errs := last.Errors(); len(errs) > 0 {
			return errors.Join(errs...)
		}
	}
	return errFailedWithoutDiagnostic
}

var errFailedWithoutDiagnostic = errors.New("gentloop: agent failed")

// -----------------------------------------------------------------------------
// Transformations
// -----------------------------------------------------------------------------

// WithMessages returns a state whose messages are replaced by msgs.
func (s *AgentState) WithMessages(msgs ...llms.MessageContent) *AgentState {
	c := s.clone()
	c.messages = slices.Clone(msgs)
	return c
}

// AppendMessages returns a state with msgs appended to the conversation.
func (s *AgentState) AppendMessages(msgs ...llms.MessageContent) *AgentState {
	c := s.clone()
	c.messages = append(slices.Clip(s.messages), msgs...)
	return c
}

// WithSystemPrompt returns a state with the system prompt replaced.
func (s *AgentState) WithSystemPrompt(prompt string) *AgentState {
	c := s.clone()
	c.systemPrompt = prompt
	return c
}

// WithModelConfig returns a state with the model configuration replaced.
func (s *AgentState) WithModelConfig(cfg ModelConfig) *AgentState {
	c := s.clone()
	c.modelConfig = cfg
	return c
}

// WithMetadata returns a state with key set to value.
func (s *AgentState) WithMetadata(key string, value any) *AgentState {
	c := s.clone()
	c.metadata = maps.Clone(s.metadata)
	if c.metadata == nil {
		c.metadata = make(map[string]any, 1)
	}
	c.metadata[key] = value
	return c
}

// WithParentAgentID returns a state linked to its spawning agent.
func (s *AgentState) WithParentAgentID(id string) *AgentState {
	c := s.clone()
	c.parentAgentID = id
	return c
}

// WithBudget returns a state carrying its own budget.
func (s *AgentState) WithBudget(b ExecutionBudget) *AgentState {
	c := s.clone()
	c.budget = b
	return c
}

// WithStatus returns a state with the status replaced. The executor is
// responsible for respecting the monotonic status order; this method does not
// enforce it so that sessions can resume suspended runs.
func (s *AgentState) WithStatus(status Status) *AgentState {
	c := s.clone()
	c.status = status
	return c
}

// WithFinalResponse returns a state with the final answer set.
func (s *AgentState) WithFinalResponse(text string) *AgentState {
	c := s.clone()
	c.finalResponse = text
	return c
}

// WithStep returns a state with step appended to the history and its output
// messages appended to the conversation. The step index is assigned here.
func (s *AgentState) WithStep(step Step) *AgentState {
	c := s.clone()
	step.Index = len(s.steps) + 1
	c.steps = append(slices.Clip(s.steps), step)
	if len(step.Output) > 0 {
		c.messages = append(slices.Clip(s.messages), step.Output...)
	}
	return c
}

// Fork returns a copy of the state with a new id. History is kept.
func (s *AgentState) Fork() *AgentState {
	c := s.clone()
	c.id = uuid.NewString()
	return c
}
