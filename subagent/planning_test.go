package subagent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/agent"
	"github.com/rickchristie/gentloop/drivers/scripted"
	"github.com/rickchristie/gentloop/executor"
	"github.com/rickchristie/gentloop/internal/tt"
	"github.com/rickchristie/gentloop/subagent"
	"github.com/rickchristie/gentloop/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specification = "Goal: X\nContext: Y"

// firstStep runs loop until its first step and returns that state.
func firstStep(t *testing.T, loop *executor.Loop, state *gentloop.AgentState) *gentloop.AgentState {
	t.Helper()
	var next *gentloop.AgentState
	for s := range loop.Iterate(context.Background(), state) {
		next = s
		break
	}
	require.NotNil(t, next)
	return next
}

func TestPlanningTool_Plan(t *testing.T) {
	type input struct {
		specification string
		childSteps    []scripted.ScenarioStep
		childTools    []gentloop.Tool
		budget        gentloop.ExecutionBudget
	}
	type expected struct {
		result string
		err    string
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "blank specification",
			input:    input{specification: " \n\t "},
			expected: expected{result: "Error: specification is required"},
		},
		{
			name: "final answer is the plan",
			input: input{
				specification: specification,
				childSteps:    []scripted.ScenarioStep{scripted.Final("  ## Plan\n1. Step one\n")},
			},
			expected: expected{result: "## Plan\n1. Step one"},
		},
		{
			name: "empty final answer yields the sentinel",
			input: input{
				specification: specification,
				childSteps:    []scripted.ScenarioStep{scripted.Final("")},
			},
			expected: expected{result: "Planning subagent produced no plan."},
		},
		{
			name: "last step output when there is no final answer",
			input: input{
				specification: specification,
				childSteps: []scripted.ScenarioStep{
					scripted.ToolCall("read_file", map[string]any{"path": "a.go"}),
					scripted.Final("never reached"),
				},
				childTools: []gentloop.Tool{tt.NewMockTool("read_file").WithResult("package a")},
				budget:     gentloop.ExecutionBudget{MaxSteps: 1},
			},
			expected: expected{result: "package a"},
		},
		{
			name: "driver failure",
			input: input{
				specification: specification,
				childSteps:    []scripted.ScenarioStep{scripted.Fail("boom")},
			},
			expected: expected{err: "Planning subagent execution failed: driver: boom"},
		},
		{
			name: "fatal tool failure",
			input: input{
				specification: specification,
				childSteps:    []scripted.ScenarioStep{scripted.ToolCall("explode", nil)},
				childTools: []gentloop.Tool{
					tt.NewMockTool("explode").WithError(gentloop.Fatalf("boom")),
				},
			},
			expected: expected{err: "Planning subagent execution failed: boom"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			driver := scripted.New().WithChildSteps(tc.input.childSteps...)
			spawner := subagent.NewSpawner(toolchain.NewRegistry(tc.input.childTools...), driver).
				WithBudget(tc.input.budget)
			tool := subagent.NewPlanningTool(spawner, "Planner prompt").
				WithAgentState(gentloop.NewAgentState()).(*subagent.PlanningTool)

			result, err := tool.Plan(context.Background(), tc.input.specification)

			if tc.expected.err != "" {
				require.Error(t, err)
				assert.EqualError(t, err, tc.expected.err)
				assert.Contains(t, err.Error(), "boom")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected.result, result)
		})
	}
}

func TestPlanningTool_BlankSpecificationBuildsNoLoop(t *testing.T) {
	driver := scripted.FromResponses("plan")
	tool := subagent.NewPlanningTool(subagent.NewSpawner(nil, driver), "Planner prompt")

	result, err := tool.Call(context.Background(), map[string]any{"specification": " "})

	require.NoError(t, err)
	assert.Equal(t, subagent.MsgSpecificationRequired, result)
	assert.Equal(t, 0, driver.Calls())
}

func TestPlanningTool_PositionalSpecification(t *testing.T) {
	driver := scripted.New().WithChildSteps(scripted.Final("## Plan"))
	tool := subagent.NewPlanningTool(subagent.NewSpawner(nil, driver), "").
		WithAgentState(gentloop.NewAgentState())

	result, err := tool.Call(context.Background(), map[string]any{"0": specification})

	require.NoError(t, err)
	assert.Equal(t, "## Plan", result)
}

func TestPlanningTool_FailedErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	driver := scripted.New().WithChildSteps(scripted.ToolCall("explode", nil))
	spawner := subagent.NewSpawner(
		toolchain.NewRegistry(tt.NewMockTool("explode").WithError(gentloop.Fatal(cause))),
		driver,
	)

	_, err := subagent.NewPlanningTool(spawner, "").
		WithAgentState(gentloop.NewAgentState()).
		Call(context.Background(), map[string]any{"specification": specification})

	var failed *subagent.FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "boom", failed.Details)
	assert.Equal(t, gentloop.StatusFailed, failed.State.Status())
	assert.ErrorIs(t, err, cause)
}

func TestPlanningTool_Schema(t *testing.T) {
	tool := subagent.NewPlanningTool(subagent.NewSpawner(nil, nil), "")

	s := tool.ToolSchema()

	assert.Equal(t, "function", s.Type)
	assert.Equal(t, "plan_with_subagent", s.Function.Name)
	assert.Equal(t, "object", s.Function.Parameters["type"])
	assert.Equal(t, []string{"specification"}, s.Function.Parameters["required"])
	assert.Contains(t, s.Function.Parameters["properties"], "specification")
}

func TestPlanningTool_BindingDoesNotMutate(t *testing.T) {
	tool := subagent.NewPlanningTool(subagent.NewSpawner(nil, nil), "")
	state := gentloop.NewAgentState()
	call := gentloop.ToolCall{ID: "c-1", Name: subagent.ToolName}

	bound := tool.WithAgentState(state).WithToolCall(call).(*subagent.PlanningTool)

	assert.Nil(t, tool.AgentState())
	assert.Same(t, state, bound.AgentState())
	assert.Equal(t, call, bound.ToolCall())
	assert.Same(t, tool.Spawner(), bound.Spawner())
}

// -----------------------------------------------------------------------------
// Capability
// -----------------------------------------------------------------------------

func TestUsePlanningSubagent_NestedPlanIsReturned(t *testing.T) {
	driver := scripted.New(
		scripted.ToolCall(subagent.ToolName, map[string]any{"specification": specification}),
	).WithChildSteps(
		scripted.Final("## Plan\n1. Step one"),
	)

	loop := agent.New().
		WithCapability(
			agent.UseDriver(driver),
			subagent.UsePlanningSubagent(),
		).
		Build()

	next := firstStep(t, loop, gentloop.NewAgentState())

	execs := next.LastStepToolExecutions()
	require.Len(t, execs, 1)
	assert.False(t, execs[0].HasError())
	require.IsType(t, "", execs[0].Value)
	assert.Contains(t, execs[0].Value, "## Plan")
}

func TestUsePlanningSubagent_FailureReachesParent(t *testing.T) {
	driver := scripted.New(
		scripted.ToolCall(subagent.ToolName, map[string]any{"specification": specification}),
		scripted.Final("continuing without a plan"),
	).WithChildSteps(scripted.Fail("boom"))

	t.Run("observed by default", func(t *testing.T) {
		final := agent.New().
			WithCapability(agent.UseDriver(driver), subagent.UsePlanningSubagent()).
			Build().
			Execute(context.Background(), nil)

		tt.AssertStatus(t, gentloop.StatusSucceeded, final)
		exec := final.Steps()[0].Executions[0]
		require.Error(t, exec.Err)
		assert.Contains(t, exec.Err.Error(), "boom")
		assert.Contains(t, tt.ToolResponses(final.Messages())[0], "Planning subagent execution failed")
	})

	t.Run("fatal when configured", func(t *testing.T) {
		final := agent.New().
			WithCapability(
				agent.UseDriver(driver),
				subagent.UsePlanningSubagent(subagent.WithFatalPlannerFailures()),
			).
			Build().
			Execute(context.Background(), nil)

		tt.AssertStatus(t, gentloop.StatusFailed, final)
		require.Error(t, final.Err())
		assert.Contains(t, final.Err().Error(), "boom")
	})
}

func TestUsePlanningSubagent_AdditionalTools(t *testing.T) {
	bash := tt.NewMockTool("bash").WithResult("match")
	driver := scripted.New(
		scripted.ToolCall(subagent.ToolName, map[string]any{"specification": specification}),
	).WithChildSteps(
		scripted.ToolCall("bash", map[string]any{"command": "rg plan_with_subagent"}),
		scripted.Final("## Plan\n1. Inspect files\n2. Propose edits"),
	)

	loop := agent.New().
		WithCapability(
			agent.UseDriver(driver),
			subagent.UsePlanningSubagent(
				subagent.WithPlannerTools("bash"),
				subagent.WithPlannerAdditionalTools(bash),
			),
		).
		Build()

	next := firstStep(t, loop, gentloop.NewAgentState())

	exec := next.LastStepToolExecutions()[0]
	assert.NoError(t, exec.Err)
	assert.Contains(t, exec.Value, "## Plan")
	assert.Equal(t, 1, bash.CallCount())
	assert.False(t, loop.Tools().Has("bash"))
}

func TestUsePlanningSubagent_PlannerCannotPlan(t *testing.T) {
	planner := tt.NewBindingRecorderTool("spawn_subagent")
	driver := scripted.New(
		scripted.ToolCall(subagent.ToolName, map[string]any{"specification": specification}),
	).WithChildSteps(
		scripted.ToolCall(subagent.ToolName, map[string]any{"specification": "again"}),
		scripted.ToolCall(subagent.SpawnToolName, nil),
		scripted.Final("## Plan"),
	)

	loop := agent.New().
		WithCapability(
			agent.UseDriver(driver),
			agent.UseTools(planner),
			subagent.UsePlanningSubagent(
				subagent.WithPlannerTools(subagent.ToolName, subagent.SpawnToolName),
			),
		).
		Build()

	next := firstStep(t, loop, gentloop.NewAgentState())

	exec := next.LastStepToolExecutions()[0]
	require.NoError(t, exec.Err)
	assert.Equal(t, "## Plan", exec.Value)
	assert.Empty(t, planner.Bindings())
	assert.Equal(t, 4, driver.Calls())
}

func TestUsePlanningSubagent_Instructions(t *testing.T) {
	instructions := "Use planner before coding.\n\nSections:\n- Goal\n- Context\n- Acceptance Criteria"

	b := agent.New().WithCapability(
		agent.UseDriver(scripted.FromResponses("done")),
		subagent.UsePlanningSubagent(subagent.WithParentInstructions(instructions)),
	)
	final := b.Build().Execute(context.Background(),
		gentloop.NewAgentState().WithSystemPrompt("Base system prompt"))

	tt.AssertStatus(t, gentloop.StatusSucceeded, final)
	assert.Contains(t, final.SystemPrompt(), "Base system prompt")
	assert.Contains(t, final.SystemPrompt(), instructions)

	entries := b.Hooks().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "planning_subagent:instructions", entries[0].Name)
	assert.Equal(t, 90, entries[0].Priority)
	assert.Equal(t, []string{"use_driver", "use_planning_subagent"}, b.Capabilities())
}

func TestUsePlanningSubagent_InstructionsAreNotRepeated(t *testing.T) {
	driver := scripted.New(
		scripted.ToolCall("read_file", nil),
		scripted.ToolCall("read_file", nil),
		scripted.Final("done"),
	)
	loop := agent.New().
		WithCapability(
			agent.UseDriver(driver),
			agent.UseTools(tt.NewMockTool("read_file")),
			agent.UseBudget(gentloop.ExecutionBudget{MaxSteps: 1}),
			subagent.UsePlanningSubagent(),
		).
		Build()

	suspended := loop.Execute(context.Background(), nil)
	tt.AssertStatus(t, gentloop.StatusSuspended, suspended)
	final := loop.Execute(context.Background(),
		suspended.WithBudget(gentloop.ExecutionBudget{MaxSteps: 10}))

	tt.AssertStatus(t, gentloop.StatusSucceeded, final)
	assert.Equal(t, subagent.DefaultParentInstructions, final.SystemPrompt())
}

func TestUsePlanningSubagent_EmptyInstructionsAddNoHook(t *testing.T) {
	b := agent.New().WithCapability(
		subagent.UsePlanningSubagent(subagent.WithParentInstructions("  ")),
	)

	assert.Equal(t, 0, b.Hooks().Len())
	assert.Equal(t, []string{"planning_subagent"}, b.DeferredToolNames())
	assert.True(t, b.Build().Tools().Has(subagent.ToolName))
}

func TestUsePlanningSubagent_ChildInheritsModelConfig(t *testing.T) {
	cfg := gentloop.ModelConfig{Provider: "openai", Model: "gpt-4o"}
	var childCfg gentloop.ModelConfig
	driver := &configCapturingDriver{
		Driver:  scripted.New(scripted.ToolCall(subagent.ToolName, map[string]any{"specification": specification})),
		child:   scripted.Final("## Plan"),
		capture: &childCfg,
	}

	loop := agent.New().
		WithCapability(agent.UseDriver(driver), subagent.UsePlanningSubagent()).
		Build()
	next := firstStep(t, loop, gentloop.NewAgentState().WithModelConfig(cfg))

	assert.Equal(t, "## Plan", next.LastStepToolExecutions()[0].Value)
	assert.Equal(t, cfg, childCfg)
}

// configCapturingDriver records the configuration the subagent asks for and
// answers child lineages with a fixed step.
type configCapturingDriver struct {
	gentloop.Driver
	child   scripted.ScenarioStep
	capture *gentloop.ModelConfig
}

func (d *configCapturingDriver) WithModelConfig(cfg gentloop.ModelConfig) gentloop.Driver {
	*d.capture = cfg
	return gentloop.DriverFunc(func(context.Context, *gentloop.AgentState) (gentloop.Decision, error) {
		return d.child.Decision()
	})
}
