// Package executor runs agent loops.
//
// A [Loop] pairs a [gentloop.Driver] with a tool registry and advances an
// [gentloop.AgentState] one step at a time until the state reaches a terminal
// status. A [Guard] bounds the run with an [gentloop.ExecutionBudget]; when it
// trips the state is suspended, and running the loop again on that state with
// a raised budget resumes it where it stopped.
package executor
