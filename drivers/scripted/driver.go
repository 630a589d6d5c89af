// Package scripted provides a driver that replays pre-programmed decisions.
//
// It stands in for a model in tests and demos:
//
//	driver := scripted.New(
//	    scripted.ToolCall("plan_with_subagent", map[string]any{"specification": spec}),
//	    scripted.Final("done"),
//	).WithChildSteps(
//	    scripted.Final("## Plan\n1. Inspect\n2. Implement"),
//	)
//
// A state's position in the script is its step count, so a driver is
// stateless with respect to lineages: every lineage starts at the first step,
// a resumed lineage picks up where it stopped and concurrent lineages do not
// interfere. Lineages spawned by another agent (non-empty parent agent id)
// replay the child script when one is set.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rickchristie/gentloop"
)

// ErrScriptExhausted is returned when a lineage asks for more decisions than
// its script holds.
var ErrScriptExhausted = errors.New("scripted: script exhausted")

// ScenarioStep is one scripted decision.
//
// A step with a Tool is a call decision; Text is then emitted alongside the
// call. A step without a Tool is a final answer with text Final (or Text when
// Final is empty). A step with Error makes the driver fail.
type ScenarioStep struct {
	Tool  string         `yaml:"tool,omitempty"`
	Args  map[string]any `yaml:"args,omitempty"`
	Text  string         `yaml:"text,omitempty"`
	Final string         `yaml:"final,omitempty"`
	Error string         `yaml:"error,omitempty"`
	Usage gentloop.Usage `yaml:"usage,omitempty"`
}

// ToolCall creates a step proposing a call to tool.
func ToolCall(tool string, args map[string]any) ScenarioStep {
	return ScenarioStep{Tool: tool, Args: args}
}

// Final creates a final-answer step.
func Final(text string) ScenarioStep {
	return ScenarioStep{Final: text}
}

// Fail creates a step on which the driver returns an error.
func Fail(message string) ScenarioStep {
	return ScenarioStep{Error: message}
}

// WithUsage returns a copy of the step reporting usage.
func (s ScenarioStep) WithUsage(u gentloop.Usage) ScenarioStep {
	s.Usage = u
	return s
}

// WithText returns a copy of the step with text set.
func (s ScenarioStep) WithText(text string) ScenarioStep {
	s.Text = text
	return s
}

// Decision converts the step into the decision it stands for.
func (s ScenarioStep) Decision() (gentloop.Decision, error) {
	if s.Error != "" {
		return gentloop.Decision{}, errors.New(s.Error)
	}
	if s.Tool != "" {
		d := gentloop.Call(s.Tool, s.Args)
		d.Text = s.Text
		return d.WithUsage(s.Usage), nil
	}
	text := s.Final
	if text == "" {
		text = s.Text
	}
	return gentloop.Final(text).WithUsage(s.Usage), nil
}

// Driver replays a [ScenarioStep] script. It is safe for concurrent use.
type Driver struct {
	steps      []ScenarioStep
	childSteps []ScenarioStep
	config     gentloop.ModelConfig
	calls      *atomic.Int64
}

// New creates a driver replaying steps.
func New(steps ...ScenarioStep) *Driver {
	return &Driver{
		steps: append([]ScenarioStep(nil), steps...),
		calls: &atomic.Int64{},
	}
}

// FromResponses creates a driver answering with each text in turn.
func FromResponses(texts ...string) *Driver {
	steps := make([]ScenarioStep, len(texts))
	for i, text := range texts {
		steps[i] = Final(text)
	}
	return New(steps...)
}

// WithChildSteps returns a driver that replays steps for lineages spawned by
// another agent.
func (d *Driver) WithChildSteps(steps ...ScenarioStep) *Driver {
	c := *d
	c.childSteps = append([]ScenarioStep(nil), steps...)
	return &c
}

// WithModelConfig implements gentloop.ModelConfigurable. The configuration is
// recorded but does not change the script.
func (d *Driver) WithModelConfig(cfg gentloop.ModelConfig) gentloop.Driver {
	c := *d
	c.config = cfg
	return &c
}

// ModelConfig returns the configuration set with WithModelConfig.
func (d *Driver) ModelConfig() gentloop.ModelConfig { return d.config }

// Steps returns the top-level script.
func (d *Driver) Steps() []ScenarioStep { return append([]ScenarioStep(nil), d.steps...) }

// ChildSteps returns the child script.
func (d *Driver) ChildSteps() []ScenarioStep { return append([]ScenarioStep(nil), d.childSteps...) }

// Calls returns how many decisions the driver and its copies have served.
func (d *Driver) Calls() int { return int(d.calls.Load()) }

// Decide implements gentloop.Driver.
func (d *Driver) Decide(ctx context.Context, state *gentloop.AgentState) (gentloop.Decision, error) {
	if err := ctx.Err(); err != nil {
		return gentloop.Decision{}, err
	}
	d.calls.Add(1)

	script, label := d.steps, "script"
	if state.ParentAgentID() != "" && len(d.childSteps) > 0 {
		script, label = d.childSteps, "child script"
	}

	pos := state.StepCount()
	if pos >= len(script) {
		return gentloop.Decision{}, fmt.Errorf("%w: %s has %d steps, step %d requested",
			ErrScriptExhausted, label, len(script), pos+1)
	}
	return script[pos].Decision()
}

var _ gentloop.ModelConfigurable = (*Driver)(nil)
