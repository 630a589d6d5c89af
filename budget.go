package gentloop

import (
	"fmt"
	"strings"
	"time"
)

// ExecutionBudget holds the ceilings that bound an agent loop.
//
// Each ceiling is optional: a zero value means unlimited. The budget is a plain
// value; what has been consumed so far is tracked by the loop's guard, not here.
//
//	// At most 20 steps and 50k tokens, no time limit
//	budget := gentloop.ExecutionBudget{MaxSteps: 20, MaxTokens: 50_000}
type ExecutionBudget struct {
	// MaxSteps is the number of completed steps after which the loop suspends.
	MaxSteps int `yaml:"max_steps"`

	// MaxTokens is the number of tokens (as reported by the driver) after which
	// the loop suspends.
	MaxTokens int `yaml:"max_tokens"`

	// MaxDuration is the accumulated step time after which the loop suspends.
	MaxDuration time.Duration `yaml:"max_duration"`
}

// Unlimited returns a budget with no ceilings.
func Unlimited() ExecutionBudget {
	return ExecutionBudget{}
}

// IsEmpty reports whether no ceiling is set. Loops skip guard evaluation for
// empty budgets.
func (b ExecutionBudget) IsEmpty() bool {
	return b.MaxSteps <= 0 && b.MaxTokens <= 0 && b.MaxDuration <= 0
}

// WithMaxSteps returns a copy of the budget with MaxSteps replaced.
func (b ExecutionBudget) WithMaxSteps(n int) ExecutionBudget {
	b.MaxSteps = n
	return b
}

// WithMaxTokens returns a copy of the budget with MaxTokens replaced.
func (b ExecutionBudget) WithMaxTokens(n int) ExecutionBudget {
	b.MaxTokens = n
	return b
}

// WithMaxDuration returns a copy of the budget with MaxDuration replaced.
func (b ExecutionBudget) WithMaxDuration(d time.Duration) ExecutionBudget {
	b.MaxDuration = d
	return b
}

func (b ExecutionBudget) String() string {
	if b.IsEmpty() {
		return "unlimited"
	}
	var parts []string
	if b.MaxSteps > 0 {
		parts = append(parts, fmt.Sprintf("steps=%d", b.MaxSteps))
	}
	if b.MaxTokens > 0 {
		parts = append(parts, fmt.Sprintf("tokens=%d", b.MaxTokens))
	}
	if b.MaxDuration > 0 {
		parts = append(parts, fmt.Sprintf("duration=%s", b.MaxDuration))
	}
	return strings.Join(parts, " ")
}

// Usage is the token consumption reported for a single decision.
type Usage struct {
	InputTokens  int `yaml:"input_tokens"`
	OutputTokens int `yaml:"output_tokens"`
}

// Total returns InputTokens + OutputTokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add returns the sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}
