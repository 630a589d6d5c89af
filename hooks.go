package gentloop

import "context"

// HookTrigger names the lifecycle point at which a hook runs.
type HookTrigger string

const (
	// TriggerBeforeExecution runs once when a loop starts or resumes.
	TriggerBeforeExecution HookTrigger = "before_execution"

	// TriggerBeforeStep runs before the driver is asked for a decision.
	TriggerBeforeStep HookTrigger = "before_step"

	// TriggerAfterStep runs after a step was appended.
	TriggerAfterStep HookTrigger = "after_step"

	// TriggerAfterExecution runs once when the loop reaches a terminal status.
	TriggerAfterExecution HookTrigger = "after_execution"
)

// BeforeStepTriggers is the trigger set for hooks that only run before steps.
func BeforeStepTriggers() []HookTrigger {
	return []HookTrigger{TriggerBeforeStep}
}

// Hook rewrites the in-flight state at a lifecycle point.
//
// Hooks must be idempotent: a resumed loop fires them again on states that
// already carry their effect, so a hook that injects text should check
// whether the text is already present.
//
// Example:
//
//	type DateHook struct{}
//
//	func (DateHook) HandleHook(
//	    ctx context.Context,
//	    state *gentloop.AgentState,
//	    trigger gentloop.HookTrigger,
//	) *gentloop.AgentState {
//	    line := "Today is " + time.Now().Format("2006-01-02")
//	    if strings.Contains(state.SystemPrompt(), line) {
//	        return state
//	    }
//	    return state.WithSystemPrompt(state.SystemPrompt() + "\n" + line)
//	}
//
// Hooks are registered with a stable name and a priority on hooks.Registry;
// higher priorities run first.
type Hook interface {
	HandleHook(ctx context.Context, state *AgentState, trigger HookTrigger) *AgentState
}

// HookFunc adapts a function to the [Hook] interface.
type HookFunc func(ctx context.Context, state *AgentState, trigger HookTrigger) *AgentState

// HandleHook calls f(ctx, state, trigger).
func (f HookFunc) HandleHook(ctx context.Context, state *AgentState, trigger HookTrigger) *AgentState {
	return f(ctx, state, trigger)
}
