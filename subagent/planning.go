package subagent

import (
	"context"
	"strings"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/schema"
	"github.com/rickchristie/gentloop/toolchain"
)

const (
	// MsgSpecificationRequired is returned, as a result, for blank specifications.
	MsgSpecificationRequired = "Error: specification is required"

	// MsgNoPlan is returned when the planner finished without any text.
	MsgNoPlan = "Planning subagent produced no plan."

	toolDescription = "Delegate planning to a subagent. Pass a task specification; " +
		"the subagent may inspect context with the available tools and returns a markdown plan."
	specificationDescription = "Task specification text with goal, context, expected outcomes, " +
		"and acceptance criteria."
)

// FailedError reports a planner loop that ended with StatusFailed. It unwraps
// to the errors recorded on the planner's last step.
type FailedError struct {
	State   *gentloop.AgentState
	Details string
}

func (e *FailedError) Error() string {
	if e.Details == "" {
		return "Planning subagent execution failed."
	}
	return "Planning subagent execution failed: " + e.Details
}

func (e *FailedError) Unwrap() error {
	if e.State == nil {
		return nil
	}
	return e.State.Err()
}

func newFailedError(state *gentloop.AgentState) *FailedError {
	var details string
	if last := state.LastStep(); last != nil {
		details = strings.TrimSpace(last.ErrorsAsString())
	}
	return &FailedError{State: state, Details: details}
}

// PlanningTool hands a specification to a planner subagent and returns its
// plan. It is context-aware: bound to the calling agent's state, the planner
// references it as parent and inherits its model configuration.
type PlanningTool struct {
	spawner      *Spawner
	systemPrompt string
	fatal        bool
	schema       gentloop.ToolSchema

	state *gentloop.AgentState
	call  gentloop.ToolCall
}

// NewPlanningTool creates the planning tool. systemPrompt opens the planner's
// conversation; blank prompts are left out.
func NewPlanningTool(spawner *Spawner, systemPrompt string) *PlanningTool {
	return &PlanningTool{
		spawner:      spawner,
		systemPrompt: systemPrompt,
		schema: gentloop.NewToolSchema(ToolName, toolDescription, schema.Object(
			map[string]*schema.Property{
				"specification": schema.String(specificationDescription),
			},
			"specification",
		)),
	}
}

// WithFatalFailures returns a tool whose planner failures stop the calling
// loop instead of being reported back to its driver.
func (t *PlanningTool) WithFatalFailures() *PlanningTool {
	c := *t
	c.fatal = true
	return &c
}

// Spawner returns the spawner behind the tool.
func (t *PlanningTool) Spawner() *Spawner { return t.spawner }

// AgentState returns the bound state, or nil.
func (t *PlanningTool) AgentState() *gentloop.AgentState { return t.state }

// ToolCall returns the bound call.
func (t *PlanningTool) ToolCall() gentloop.ToolCall { return t.call }

func (t *PlanningTool) Name() string                    { return ToolName }
func (t *PlanningTool) Description() string             { return toolDescription }
func (t *PlanningTool) ToolSchema() gentloop.ToolSchema { return t.schema }

func (t *PlanningTool) WithAgentState(state *gentloop.AgentState) gentloop.ContextAwareTool {
	c := *t
	c.state = state
	return &c
}

func (t *PlanningTool) WithToolCall(call gentloop.ToolCall) gentloop.ContextAwareTool {
	c := *t
	c.call = call
	return &c
}

// Call runs the planner on the "specification" argument (or the first
// positional one).
func (t *PlanningTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.Plan(ctx, toolchain.ArgString(args, "specification", 0))
}

// Plan runs the planner on specification and returns its plan.
//
// A blank specification returns [MsgSpecificationRequired] without building a
// loop. A failed planner returns a [FailedError]. Otherwise the plan is the
// planner's final answer, else the output of its last step, else [MsgNoPlan].
func (t *PlanningTool) Plan(ctx context.Context, specification string) (string, error) {
	specification = strings.TrimSpace(specification)
	if specification == "" {
		return MsgSpecificationRequired, nil
	}

	final := t.spawner.Run(ctx, t.state, t.systemPrompt, specification)
	if final.Status() == gentloop.StatusFailed {
		err := error(newFailedError(final))
		if t.fatal {
			err = gentloop.Fatal(err)
		}
		return "", err
	}
	return ExtractPlan(final), nil
}

// ExtractPlan returns the final answer of state, else the output text of its
// last step, else [MsgNoPlan].
func ExtractPlan(state *gentloop.AgentState) string {
	if plan := strings.TrimSpace(state.FinalResponse()); plan != "" {
		return plan
	}
	if last := state.LastStep(); last != nil {
		if out := strings.TrimSpace(last.OutputText()); out != "" {
			return out
		}
	}
	return MsgNoPlan
}

var _ gentloop.ContextAwareTool = (*PlanningTool)(nil)
