// Package events provides the event subscription registry for agent loops.
//
// # Overview
//
// Loops publish events as they run; subscribers registered with [Registry]
// receive them via type-safe interfaces. Events are observations only: unlike
// hooks, subscribers cannot change the agent state.
//
// # Quick Start
//
//	// 1. Create subscribers by implementing subscriber interfaces
//	type StepPrinter struct{}
//
//	func (StepPrinter) OnStep(e *gentloop.StepEvent) {
//	    log.Printf("step %d: %s", e.Step.Index, e.Step.Decision)
//	}
//
//	func (StepPrinter) OnLoopEnd(e *gentloop.LoopEndEvent) {
//	    log.Printf("finished %s after %d steps", e.Status, e.Steps)
//	}
//
//	// 2. Create and configure registry
//	registry := events.NewRegistry().Subscribe(StepPrinter{})
//
//	// 3. Use with a loop
//	loop := executor.New(driver, tools).WithEvents(registry)
//
// # Event Types
//
//   - LoopStartEvent, LoopEndEvent: loop lifecycle
//   - StepEvent: a step was appended
//   - ToolExecutionEvent: a tool ran (successfully or not)
//   - CallRejectedEvent: a proposed call failed validation
//   - BudgetExhaustedEvent: the guard suspended the loop
//
// The telemetry package ships a slog subscriber and a Prometheus subscriber.
package events
