package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickchristie/gentloop"
)

// Consumption is what a lineage has spent against its budget so far.
type Consumption struct {
	Steps   int
	Tokens  int
	Elapsed time.Duration
}

// Guard enforces an [gentloop.ExecutionBudget].
//
// A Guard is a value: [Guard.Observe] returns an updated copy. Consumption is
// seeded from the state's step history, so a loop resumed from a suspended
// state is still bounded by what earlier runs spent. Elapsed time is the sum
// of step durations, which excludes time the state spent parked between runs.
type Guard struct {
	budget gentloop.ExecutionBudget
	used   Consumption
}

// NewGuard creates a guard for budget, seeded from the history of state.
func NewGuard(budget gentloop.ExecutionBudget, state *gentloop.AgentState) Guard {
	g := Guard{budget: budget}
	if state != nil {
		g.used = Consumption{
			Steps:   state.StepCount(),
			Tokens:  state.TotalUsage().Total(),
			Elapsed: state.Elapsed(),
		}
	}
	return g
}

// Budget returns the guarded budget.
func (g Guard) Budget() gentloop.ExecutionBudget { return g.budget }

// Consumption returns what has been spent so far.
func (g Guard) Consumption() Consumption { return g.used }

// IsEmpty reports whether the budget sets no ceiling.
func (g Guard) IsEmpty() bool { return g.budget.IsEmpty() }

// Observe returns a guard that also accounts for step.
func (g Guard) Observe(step gentloop.Step) Guard {
	g.used.Steps++
	g.used.Tokens += step.Usage.Total()
	g.used.Elapsed += step.Duration
	return g
}

// Exhausted reports whether any set ceiling has been reached, and why.
// Unset ceilings never trigger.
func (g Guard) Exhausted() (bool, string) {
	if g.budget.IsEmpty() {
		return false, ""
	}

	var reasons []string
	if b := g.budget.MaxSteps; b > 0 && g.used.Steps >= b {
		reasons = append(reasons, fmt.Sprintf("steps %d/%d", g.used.Steps, b))
	}
	if b := g.budget.MaxTokens; b > 0 && g.used.Tokens >= b {
		reasons = append(reasons, fmt.Sprintf("tokens %d/%d", g.used.Tokens, b))
	}
	if b := g.budget.MaxDuration; b > 0 && g.used.Elapsed >= b {
		reasons = append(reasons, fmt.Sprintf("elapsed %s/%s", g.used.Elapsed, b))
	}
	if len(reasons) == 0 {
		return false, ""
	}
	return true, "budget exhausted: " + strings.Join(reasons, ", ")
}
