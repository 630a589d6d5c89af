// Package hooks provides the registry that applies lifecycle hooks to agent
// states.
//
// A hook is a function from state to state, run at one or more triggers:
//   - [gentloop.TriggerBeforeExecution] - once when a loop starts or resumes
//   - [gentloop.TriggerBeforeStep] - before the driver is asked for a decision
//   - [gentloop.TriggerAfterStep] - after a step was appended
//   - [gentloop.TriggerAfterExecution] - once when the loop ends
//
// Hooks run by descending priority and are registered under a stable name,
// so registering the same hook twice keeps one copy.
//
// # Creating a Hook
//
//	type TimezoneHook struct{ zone string }
//
//	func (h TimezoneHook) HandleHook(
//	    ctx context.Context,
//	    state *gentloop.AgentState,
//	    trigger gentloop.HookTrigger,
//	) *gentloop.AgentState {
//	    if _, ok := state.MetadataValue("timezone"); ok {
//	        return state
//	    }
//	    return state.WithMetadata("timezone", h.zone)
//	}
//
//	registry := hooks.NewRegistry().
//	    With("timezone", 10, gentloop.BeforeStepTriggers(), TimezoneHook{zone: "UTC"})
//
// [AppendSystemPrompt] covers the common case of injecting instructions.
package hooks
