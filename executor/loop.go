package executor

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/hooks"
	"github.com/rickchristie/gentloop/toolchain"
)

// Loop runs an agent through decide, act and observe steps until it
// succeeds, fails or runs out of budget.
//
// Each step:
//  1. checks the guard; an exhausted budget suspends the loop,
//  2. applies the before-step hooks,
//  3. asks the driver for a decision,
//  4. turns the decision into at most one tool call with a
//     [toolchain.Builder],
//  5. runs the call, binding context-aware tools to the state first,
//  6. appends the step and applies the after-step hooks.
//
// A final decision ends the loop with [gentloop.StatusSucceeded]. Driver
// errors and tool errors wrapped with [gentloop.Fatal] end it with
// [gentloop.StatusFailed]. Other tool errors, including unknown tools, are
// recorded on the step and the loop goes on. Rejected calls follow the
// configured [RejectionPolicy].
//
// Loop is immutable: With* methods return a modified copy, so one Loop can
// run any number of lineages concurrently.
//
//	loop := executor.New(driver, toolchain.NewRegistry(readFile),
//	    executor.WithRejectionPolicy(executor.RejectObserve),
//	).WithBudget(gentloop.ExecutionBudget{MaxSteps: 20})
//
//	final := loop.Execute(ctx, gentloop.NewAgentState().
//	    WithMessages(gentloop.UserMessage("Summarize README.md")))
//	if final.Status() == gentloop.StatusSuspended {
//	    // raise the budget and run again to resume
//	}
type Loop struct {
	driver gentloop.Driver
	tools  *toolchain.Registry
	hooks  *hooks.Registry
	events gentloop.Publisher
	budget gentloop.ExecutionBudget

	policy        RejectionPolicy
	maxRejections int
	clock         gentloop.TimeProvider
	newID         func() string
}

// New creates a loop driven by driver over tools.
func New(driver gentloop.Driver, tools *toolchain.Registry, opts ...Option) *Loop {
	l := &Loop{
		driver:        driver,
		tools:         tools,
		policy:        RejectObserve,
		maxRejections: DefaultMaxConsecutiveRejections,
		clock:         gentloop.NewDefaultTimeProvider(),
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) clone() *Loop {
	c := *l
	return &c
}

// With returns a copy of the loop with opts applied.
func (l *Loop) With(opts ...Option) *Loop {
	c := l.clone()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithDriver returns a copy of the loop using driver.
func (l *Loop) WithDriver(driver gentloop.Driver) *Loop {
	c := l.clone()
	c.driver = driver
	return c
}

// WithTools returns a copy of the loop using tools.
func (l *Loop) WithTools(tools *toolchain.Registry) *Loop {
	c := l.clone()
	c.tools = tools
	return c
}

// WithHooks returns a copy of the loop applying the hooks of registry.
func (l *Loop) WithHooks(registry *hooks.Registry) *Loop {
	c := l.clone()
	c.hooks = registry
	return c
}

// WithEvents returns a copy of the loop publishing to publisher.
func (l *Loop) WithEvents(publisher gentloop.Publisher) *Loop {
	c := l.clone()
	c.events = publisher
	return c
}

// WithBudget returns a copy of the loop bounded by budget. A state that
// carries a non-empty budget of its own takes precedence.
func (l *Loop) WithBudget(budget gentloop.ExecutionBudget) *Loop {
	c := l.clone()
	c.budget = budget
	return c
}

// Driver returns the decision source.
func (l *Loop) Driver() gentloop.Driver { return l.driver }

// Tools returns the tool registry.
func (l *Loop) Tools() *toolchain.Registry { return l.tools }

// Hooks returns the hook registry (possibly nil).
func (l *Loop) Hooks() *hooks.Registry { return l.hooks }

// Events returns the event publisher (possibly nil).
func (l *Loop) Events() gentloop.Publisher { return l.events }

// Budget returns the loop-level budget.
func (l *Loop) Budget() gentloop.ExecutionBudget { return l.budget }

// EffectiveBudget returns the budget that bounds state: its own when set,
// the loop's otherwise.
func (l *Loop) EffectiveBudget(state *gentloop.AgentState) gentloop.ExecutionBudget {
	if b := state.Budget(); !b.IsEmpty() {
		return b
	}
	return l.budget
}

// Execute runs the loop to a terminal status and returns the last state.
//
// A suspended state is resumed; succeeded and failed states are returned
// unchanged.
func (l *Loop) Execute(ctx context.Context, state *gentloop.AgentState) *gentloop.AgentState {
	return l.run(ctx, state, nil)
}

// Iterate runs the loop and yields the state after every step. When the loop
// ends without appending a step (budget exhaustion, cancellation) the
// terminal state is yielded as well. Breaking out of the range stops the loop
// after the current step.
func (l *Loop) Iterate(ctx context.Context, state *gentloop.AgentState) iter.Seq[*gentloop.AgentState] {
	return func(yield func(*gentloop.AgentState) bool) {
		l.run(ctx, state, yield)
	}
}

func (l *Loop) run(
	ctx context.Context,
	state *gentloop.AgentState,
	yield func(*gentloop.AgentState) bool,
) *gentloop.AgentState {
	if state == nil {
		state = gentloop.NewAgentState()
	}
	switch state.Status() {
	case gentloop.StatusSucceeded, gentloop.StatusFailed:
		return state
	}

	resumed := state.Status() == gentloop.StatusSuspended
	if resumed {
		state = state.WithStatus(gentloop.StatusRunning)
	}

	driver := l.boundDriver()
	budget := l.EffectiveBudget(state)
	guard := NewGuard(budget, state)
	start := l.clock.Now()
	startSteps := state.StepCount()

	l.publish(&gentloop.LoopStartEvent{
		AgentID:       state.ID(),
		ParentAgentID: state.ParentAgentID(),
		Budget:        budget,
		Resumed:       resumed,
	})

	state = l.hooks.Apply(ctx, state, gentloop.TriggerBeforeExecution)

	var (
		lastYielded *gentloop.AgentState
		stopped     bool
		rejections  int
	)
	emit := func(s *gentloop.AgentState) {
		if yield == nil || stopped {
			return
		}
		lastYielded = s
		stopped = !yield(s)
	}

	for state.Status() == gentloop.StatusRunning {
		if err := ctx.Err(); err != nil {
			state = state.WithStatus(gentloop.StatusSuspended)
			break
		}

		if !guard.IsEmpty() {
			if exhausted, reason := guard.Exhausted(); exhausted {
				state = state.WithStatus(gentloop.StatusSuspended)
				l.publish(&gentloop.BudgetExhaustedEvent{
					AgentID: state.ID(),
					Budget:  budget,
					Reason:  reason,
				})
				break
			}
		}

		var step gentloop.Step
		state, step, rejections = l.step(ctx, driver, state, rejections)
		guard = guard.Observe(step)

		state = l.hooks.Apply(ctx, state, gentloop.TriggerAfterStep)
		l.publish(&gentloop.StepEvent{
			AgentID: state.ID(),
			Step:    *state.LastStep(),
			Status:  state.Status(),
		})

		emit(state)
		if stopped {
			break
		}
	}

	// A consumer that stops iterating leaves the state running; it has not
	// finished executing.
	if state.Status().IsTerminal() {
		state = l.hooks.Apply(ctx, state, gentloop.TriggerAfterExecution)
		l.publish(&gentloop.LoopEndEvent{
			AgentID:       state.ID(),
			ParentAgentID: state.ParentAgentID(),
			Status:        state.Status(),
			Steps:         state.StepCount() - startSteps,
			Usage:         state.TotalUsage(),
			Duration:      l.clock.Now().Sub(start),
			Err:           state.Err(),
		})
	}

	if state != lastYielded && state.Status().IsTerminal() {
		emit(state)
	}
	return state
}

// step runs one decide/act/observe iteration and returns the new state, the
// appended step and the updated count of consecutive rejected calls.
func (l *Loop) step(
	ctx context.Context,
	driver gentloop.Driver,
	state *gentloop.AgentState,
	rejections int,
) (*gentloop.AgentState, gentloop.Step, int) {
	state = l.hooks.Apply(ctx, state, gentloop.TriggerBeforeStep)

	begin := l.clock.Now()
	finish := func(s *gentloop.AgentState, step gentloop.Step) (*gentloop.AgentState, gentloop.Step) {
		step.Duration = l.clock.Now().Sub(begin)
		next := s.WithStep(step)
		return next, *next.LastStep()
	}

	if driver == nil {
		next, step := finish(state, gentloop.Step{Err: gentloop.ErrNoDriver})
		return next.WithStatus(gentloop.StatusFailed), step, rejections
	}

	decision, err := driver.Decide(ctx, state)
	if err != nil {
		next, step := finish(state, gentloop.Step{
			Decision: decision,
			Usage:    decision.Usage,
			Err:      fmt.Errorf("driver: %w", err),
		})
		return next.WithStatus(gentloop.StatusFailed), step, rejections
	}

	built := toolchain.NewBuilder(l.tools).WithIDGenerator(l.newID).Build(decision)

	switch {
	case built.HasCall():
		exec := l.execute(ctx, state, *built.Call)
		step := gentloop.Step{
			Decision:   decision,
			Executions: []gentloop.ToolExecution{exec},
			Output:     callMessages(decision, exec),
			Usage:      decision.Usage,
		}
		status := gentloop.StatusRunning
		if gentloop.IsFatal(exec.Err) {
			status = gentloop.StatusFailed
		}
		next, step := finish(state, step)
		return next.WithStatus(status), step, 0

	case built.IsRejected():
		rejections++
		l.publish(&gentloop.CallRejectedEvent{
			AgentID:  state.ID(),
			Decision: decision,
			Reason:   built.Rejection,
		})
		return l.reject(state, decision, built.Rejection, rejections, finish)

	default:
		next, step := finish(state, gentloop.Step{
			Decision: decision,
			Output:   finalMessages(decision.Text),
			Usage:    decision.Usage,
		})
		return next.
			WithFinalResponse(decision.Text).
			WithStatus(gentloop.StatusSucceeded), step, 0
	}
}

// boundDriver returns the driver with the loop's tools bound to it when it
// advertises tools.
func (l *Loop) boundDriver() gentloop.Driver {
	if aware, ok := l.driver.(gentloop.ToolAware); ok {
		return aware.WithTools(l.tools.All())
	}
	return l.driver
}

func (l *Loop) reject(
	state *gentloop.AgentState,
	decision gentloop.Decision,
	reason error,
	rejections int,
	finish func(*gentloop.AgentState, gentloop.Step) (*gentloop.AgentState, gentloop.Step),
) (*gentloop.AgentState, gentloop.Step, int) {
	switch l.policy {
	case RejectFinish:
		next, step := finish(state, gentloop.Step{
			Decision: decision,
			Output:   finalMessages(decision.Text),
			Usage:    decision.Usage,
		})
		return next.
			WithFinalResponse(decision.Text).
			WithStatus(gentloop.StatusSucceeded), step, rejections

	case RejectFail:
		next, step := finish(state, gentloop.Step{
			Decision: decision,
			Usage:    decision.Usage,
			Err:      reason,
		})
		return next.WithStatus(gentloop.StatusFailed), step, rejections

	default:
		step := gentloop.Step{
			Decision: decision,
			Output:   rejectionMessages(decision, reason),
			Usage:    decision.Usage,
			Err:      reason,
		}
		status := gentloop.StatusRunning
		if rejections >= l.maxRejections {
			step.Err = fmt.Errorf("%d consecutive rejected calls: %w", rejections, reason)
			status = gentloop.StatusFailed
		}
		next, step := finish(state, step)
		return next.WithStatus(status), step, rejections
	}
}

// execute looks the call's tool up and runs it. Unknown tools and tool
// failures are reported on the execution, never returned.
func (l *Loop) execute(
	ctx context.Context,
	state *gentloop.AgentState,
	call gentloop.ToolCall,
) gentloop.ToolExecution {
	begin := l.clock.Now()
	exec := gentloop.ToolExecution{Call: call}

	tool, err := l.tools.Get(call.Name)
	if err != nil {
		exec.Err = err
	} else {
		if aware, ok := tool.(gentloop.ContextAwareTool); ok {
			tool = aware.WithAgentState(state).WithToolCall(call)
		}
		exec.Value, exec.Err = tool.Call(ctx, call.Args)
		if exec.Err != nil {
			exec.Value = nil
		}
	}

	l.publish(&gentloop.ToolExecutionEvent{
		AgentID:   state.ID(),
		StepIndex: state.StepCount() + 1,
		Execution: exec,
		Duration:  l.clock.Now().Sub(begin),
	})
	return exec
}

func (l *Loop) publish(event gentloop.Event) {
	if l.events != nil {
		l.events.Publish(event)
	}
}
