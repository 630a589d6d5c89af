// Package gentloop defines the core types of an agent execution engine: the
// immutable [AgentState] that flows through every step, the [Decision] a
// [Driver] yields, the [Tool] contract, the [ExecutionBudget] that bounds a
// run, and the hook and event contracts used to observe and shape it.
//
// Implementations live in sub-packages:
//
//   - toolchain: the ordered tool registry and the tool-call builder
//   - schema: JSON Schema compilation, validation and argument normalization
//   - executor: the agent loop state machine and the budget guard
//   - hooks, events: hook and subscriber registries
//   - subagent: recursion-guarded planning subagents
//   - drivers/scripted, drivers/lcg: decision sources
//   - agent: the capability-based loop builder
//   - session: session actions, stores and the session manager
//
// # Lifecycle
//
// A loop starts with a caller-supplied [AgentState] in [StatusRunning]. Each
// step asks the [Driver] for a [Decision], turns it into at most one
// [ToolCall], executes it and appends a [Step]. The loop ends in one of the
// terminal statuses:
//
//   - [StatusSucceeded]: the driver produced a final answer
//   - [StatusFailed]: the driver or a tool reported a fatal error
//   - [StatusSuspended]: the [ExecutionBudget] was exhausted
//
// Suspended states can be resumed by executing them again with a larger
// budget.
package gentloop
