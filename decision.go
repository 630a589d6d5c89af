package gentloop

import (
	"context"
	"strings"
)

// DecisionKind distinguishes the two shapes of a [Decision].
type DecisionKind string

const (
	// DecisionCall asks the loop to invoke a tool.
	DecisionCall DecisionKind = "call"

	// DecisionFinal carries the final answer.
	DecisionFinal DecisionKind = "final"
)

// Decision is what a [Driver] yields for one step: either a proposal to call a
// tool with raw arguments, or a final answer.
//
// A Decision is consumed exactly once, by the tool-call builder or by the
// loop's termination check.
type Decision struct {
	Kind DecisionKind

	// Tool is the proposed tool name (call decisions only).
	Tool string

	// Args holds the raw, unvalidated arguments (call decisions only).
	Args map[string]any

	// Text is the final answer for final decisions. Call decisions may also
	// carry text the model emitted alongside the call.
	Text string

	// Usage is the token consumption the driver spent producing the decision.
	Usage Usage
}

// Call creates a call decision.
func Call(tool string, args map[string]any) Decision {
	return Decision{Kind: DecisionCall, Tool: tool, Args: args}
}

// Final creates a final-answer decision.
func Final(text string) Decision {
	return Decision{Kind: DecisionFinal, Text: text}
}

// IsCall reports whether the decision proposes a tool call.
func (d Decision) IsCall() bool {
	return d.Kind == DecisionCall
}

// IsFinal reports whether the decision is a final answer.
func (d Decision) IsFinal() bool {
	return d.Kind == DecisionFinal
}

// WithUsage returns a copy of the decision with usage set.
func (d Decision) WithUsage(u Usage) Decision {
	d.Usage = u
	return d
}

func (d Decision) String() string {
	if d.IsCall() {
		return "call(" + d.Tool + ")"
	}
	return "final(" + strings.TrimSpace(d.Text) + ")"
}

// Driver is the decision source of an agent loop. Given the current state it
// returns the next [Decision].
//
// Implementations may call a model (see drivers/lcg) or replay a script
// (see drivers/scripted). Errors returned by Decide stop the loop with
// [StatusFailed].
type Driver interface {
	Decide(ctx context.Context, state *AgentState) (Decision, error)
}

// DriverFunc adapts a function to the [Driver] interface.
type DriverFunc func(ctx context.Context, state *AgentState) (Decision, error)

// Decide calls f(ctx, state).
func (f DriverFunc) Decide(ctx context.Context, state *AgentState) (Decision, error) {
	return f(ctx, state)
}

// ModelConfigurable is implemented by drivers whose model settings can be
// replaced. Subagent spawners use it to hand the parent's model configuration
// to the nested loop.
type ModelConfigurable interface {
	Driver
	WithModelConfig(cfg ModelConfig) Driver
}

// ToolAware is implemented by drivers that advertise tools to a model. A loop
// binds the tools it runs with before its first step, so a nested loop over a
// filtered registry never advertises tools it cannot call.
type ToolAware interface {
	Driver
	WithTools(tools []Tool) Driver
}

// ModelConfig describes which model a driver talks to.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// IsZero reports whether no field is set.
func (c ModelConfig) IsZero() bool {
	return c == ModelConfig{}
}

// ModelConfigProvider resolves a model configuration when no state carries one.
type ModelConfigProvider interface {
	ResolveModelConfig() ModelConfig
}

// StaticModelConfig is a [ModelConfigProvider] returning a fixed configuration.
type StaticModelConfig ModelConfig

// ResolveModelConfig returns the wrapped configuration.
func (s StaticModelConfig) ResolveModelConfig() ModelConfig {
	return ModelConfig(s)
}
