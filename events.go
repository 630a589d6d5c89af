package gentloop

import "time"

// -----------------------------------------------------------------------------
// Event Interface
// -----------------------------------------------------------------------------

// Event is a marker interface for all loop events. Events describe what
// happened; unlike hooks they cannot change the state.
type Event interface {
	EventName() string
}

// -----------------------------------------------------------------------------
// Loop Events
// -----------------------------------------------------------------------------

// LoopStartEvent is published when a loop starts or resumes.
type LoopStartEvent struct {
	AgentID       string
	ParentAgentID string

	// Budget is the effective budget of this run.
	Budget ExecutionBudget

	// Resumed is true when the input state was suspended.
	Resumed bool
}

func (*LoopStartEvent) EventName() string { return EventNameLoopStart }

// StepEvent is published after a step was appended to the state.
type StepEvent struct {
	AgentID string
	Step    Step

	// Status is the state's status after the step.
	Status Status
}

func (*StepEvent) EventName() string { return EventNameStep }

// ToolExecutionEvent is published after each tool execution.
type ToolExecutionEvent struct {
	AgentID   string
	StepIndex int
	Execution ToolExecution
	Duration  time.Duration
}

func (*ToolExecutionEvent) EventName() string { return EventNameToolExecution }

// CallRejectedEvent is published when a proposed tool call failed validation.
type CallRejectedEvent struct {
	AgentID  string
	Decision Decision
	Reason   error
}

func (*CallRejectedEvent) EventName() string { return EventNameCallRejected }

// BudgetExhaustedEvent is published when the guard suspends a loop.
type BudgetExhaustedEvent struct {
	AgentID string
	Budget  ExecutionBudget
	Reason  string
}

func (*BudgetExhaustedEvent) EventName() string { return EventNameBudgetExhausted }

// LoopEndEvent is published once when the loop reaches a terminal status.
type LoopEndEvent struct {
	AgentID       string
	ParentAgentID string
	Status        Status
	Steps         int
	Usage         Usage
	Duration      time.Duration

	// Err is the diagnostic of a failed loop (nil otherwise).
	Err error
}

func (*LoopEndEvent) EventName() string { return EventNameLoopEnd }

// -----------------------------------------------------------------------------
// Subscriber Interfaces
// -----------------------------------------------------------------------------
//
// Implement any combination of these interfaces on a single struct. The
// events.Registry detects which interfaces a subscriber implements and only
// dispatches matching events.

// LoopStartSubscriber receives LoopStartEvent events.
type LoopStartSubscriber interface {
	OnLoopStart(event *LoopStartEvent)
}

// StepSubscriber receives StepEvent events.
type StepSubscriber interface {
	OnStep(event *StepEvent)
}

// ToolExecutionSubscriber receives ToolExecutionEvent events.
type ToolExecutionSubscriber interface {
	OnToolExecution(event *ToolExecutionEvent)
}

// CallRejectedSubscriber receives CallRejectedEvent events.
type CallRejectedSubscriber interface {
	OnCallRejected(event *CallRejectedEvent)
}

// BudgetExhaustedSubscriber receives BudgetExhaustedEvent events.
type BudgetExhaustedSubscriber interface {
	OnBudgetExhausted(event *BudgetExhaustedEvent)
}

// LoopEndSubscriber receives LoopEndEvent events.
type LoopEndSubscriber interface {
	OnLoopEnd(event *LoopEndEvent)
}

// Publisher dispatches events. events.Registry is the standard implementation.
type Publisher interface {
	Publish(event Event)
}
