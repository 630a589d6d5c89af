package gentloop

// Event name constants define the EventName values for framework events.
//
// # Naming Convention
//
// Event names follow the pattern: "namespace:category:timing"
//   - namespace: "gentloop" for framework events
//   - category: what the event is about (loop, step, tool, budget, ...)
//   - timing: when in the lifecycle (start, end) - omitted for single events
const (
	// Loop lifecycle
	EventNameLoopStart = "gentloop:loop:start"
	EventNameLoopEnd   = "gentloop:loop:end"

	// Steps
	EventNameStep = "gentloop:step"

	// Tool calls
	EventNameToolExecution = "gentloop:tool:execution"
	EventNameCallRejected  = "gentloop:tool:rejected"

	// Budget
	EventNameBudgetExhausted = "gentloop:budget:exhausted"
)
