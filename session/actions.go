package session

import (
	"github.com/rickchristie/gentloop"
)

// TasksMetadataKey is the state metadata key holding the task list.
const TasksMetadataKey = "tasks"

// Action is a pure change applied to a session between loop runs.
type Action interface {
	Apply(session *AgentSession) *AgentSession
}

// ActionFunc adapts a function to [Action].
type ActionFunc func(session *AgentSession) *AgentSession

func (f ActionFunc) Apply(session *AgentSession) *AgentSession { return f(session) }

// ChangeBudget sets the budget carried by the session's state. The new budget
// takes precedence over the loop's on the next run.
func ChangeBudget(budget gentloop.ExecutionBudget) Action {
	return ActionFunc(func(s *AgentSession) *AgentSession {
		return s.WithState(s.State().WithBudget(budget))
	})
}

// ChangeSystemPrompt replaces the state's system prompt.
func ChangeSystemPrompt(prompt string) Action {
	return ActionFunc(func(s *AgentSession) *AgentSession {
		return s.WithState(s.State().WithSystemPrompt(prompt))
	})
}

// SendMessage appends a user message and reopens a finished agent so the next
// run answers it. A failed agent stays failed.
func SendMessage(text string) Action {
	return ActionFunc(func(s *AgentSession) *AgentSession {
		state := s.State().AppendMessages(gentloop.UserMessage(text))
		if state.Status() == gentloop.StatusSucceeded {
			state = state.WithFinalResponse("").WithStatus(gentloop.StatusSuspended)
		}
		return s.WithState(state)
	})
}

// ExtendBudget grants budget on top of what the state has already spent. Unset
// ceilings stay unset.
func ExtendBudget(budget gentloop.ExecutionBudget) Action {
	return ActionFunc(func(s *AgentSession) *AgentSession {
		state := s.State()
		next := budget
		if next.MaxSteps > 0 {
			next.MaxSteps += state.StepCount()
		}
		if next.MaxTokens > 0 {
			next.MaxTokens += state.TotalUsage().Total()
		}
		if next.MaxDuration > 0 {
			next.MaxDuration += state.Elapsed()
		}
		return s.WithState(state.WithBudget(next))
	})
}

// SuspendSession suspends the session and its running agent.
func SuspendSession() Action {
	return ActionFunc(func(s *AgentSession) *AgentSession {
		return s.Suspended()
	})
}

// WriteMetadata sets one metadata entry on the state.
func WriteMetadata(key string, value any) Action {
	return ActionFunc(func(s *AgentSession) *AgentSession {
		return s.WithState(s.State().WithMetadata(key, value))
	})
}

// TaskStatus is the progress of a [Task].
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Task is one entry of an agent's task list.
type Task struct {
	Content string     `json:"content" yaml:"content"`
	Status  TaskStatus `json:"status" yaml:"status"`
}

// UpdateTask replaces the task list stored under [TasksMetadataKey].
func UpdateTask(tasks ...Task) Action {
	list := append([]Task{}, tasks...)
	return WriteMetadata(TasksMetadataKey, list)
}

// Tasks returns the task list of state, or nil.
func Tasks(state *gentloop.AgentState) []Task {
	v, ok := state.MetadataValue(TasksMetadataKey)
	if !ok {
		return nil
	}
	tasks, _ := v.([]Task)
	return append([]Task(nil), tasks...)
}
