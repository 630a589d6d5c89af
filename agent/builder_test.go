package agent_test

import (
	"context"
	"testing"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/agent"
	"github.com/rickchristie/gentloop/executor"
	"github.com/rickchristie/gentloop/hooks"
	"github.com/rickchristie/gentloop/internal/tt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Capabilities(t *testing.T) {
	driver := tt.NewMockDriver(gentloop.Final("done"))
	read := tt.NewMockTool("read_file")
	recorder := tt.NewRecorder()

	b := agent.New().WithCapability(
		agent.UseDriver(driver),
		agent.UseTools(read),
		agent.UseBudget(gentloop.ExecutionBudget{MaxSteps: 4}),
		agent.UseEvents(recorder),
		agent.UseHook("prompt", 0, gentloop.BeforeStepTriggers(), hooks.AppendSystemPrompt("Be brief.")),
	)

	assert.Equal(t, []string{
		"use_driver", "use_tools", "use_budget", "use_events", "use_hook:prompt",
	}, b.Capabilities())
	assert.Equal(t, []string{"read_file"}, b.Tools().Names())
	assert.True(t, b.Hooks().Has("prompt"))

	loop := b.Build()
	assert.Same(t, driver, loop.Driver())
	assert.Equal(t, 4, loop.Budget().MaxSteps)

	final := loop.Execute(context.Background(), nil)

	tt.AssertStatus(t, gentloop.StatusSucceeded, final)
	assert.Equal(t, "Be brief.", final.SystemPrompt())
	assert.NotEmpty(t, recorder.Events())
}

func TestBuilder_IsImmutable(t *testing.T) {
	base := agent.New()
	withTool := base.WithTools(tt.NewMockTool("a"))
	withCap := base.WithCapability(agent.UseTools(tt.NewMockTool("b")))

	assert.Equal(t, 0, base.Tools().Len())
	assert.Empty(t, base.Capabilities())
	assert.Equal(t, []string{"a"}, withTool.Tools().Names())
	assert.Equal(t, []string{"b"}, withCap.Tools().Names())
}

func TestBuilder_DeferredTools(t *testing.T) {
	driver := tt.NewMockDriver(gentloop.Final("done"))
	recorder := tt.NewRecorder()

	var seen agent.DeferredToolContext
	provider := agent.DeferredToolProviderFunc(func(ctx agent.DeferredToolContext) []gentloop.Tool {
		seen = ctx
		return []gentloop.Tool{tt.NewMockTool("deferred")}
	})

	b := agent.New().
		WithDeferredTools("first", provider).
		WithTools(tt.NewMockTool("direct")).
		WithDriver(driver).
		WithEvents(recorder)

	loop := b.Build()

	assert.Equal(t, []string{"direct", "deferred"}, loop.Tools().Names())
	require.NotNil(t, seen.Tools)
	assert.Equal(t, []string{"direct"}, seen.Tools.Names())
	assert.Same(t, driver, seen.Driver)
	assert.Same(t, recorder, seen.Events)
}

func TestBuilder_DeferredToolsReplaceByName(t *testing.T) {
	provide := func(name string) agent.DeferredToolProvider {
		return agent.DeferredToolProviderFunc(func(agent.DeferredToolContext) []gentloop.Tool {
			return []gentloop.Tool{tt.NewMockTool(name)}
		})
	}

	b := agent.New().
		WithDeferredTools("planner", provide("old")).
		WithDeferredTools("other", provide("other")).
		WithDeferredTools("planner", provide("new"))

	assert.Equal(t, []string{"planner", "other"}, b.DeferredToolNames())
	assert.Equal(t, []string{"new", "other"}, b.Build().Tools().Names())
}

func TestBuilder_LoopOptions(t *testing.T) {
	read := tt.NewMockTool("read")
	driver := tt.NewMockDriver(gentloop.Call("read", nil).WithUsage(gentloop.Usage{}), gentloop.Final("done"))

	loop := agent.New().
		WithDriver(driver).
		WithTools(read).
		WithCapability(agent.UseLoopOptions(executor.WithIDGenerator(tt.SequentialIDs("id")))).
		Build()

	final := loop.Execute(context.Background(), nil)

	tt.AssertStatus(t, gentloop.StatusSucceeded, final)
	assert.Equal(t, "id-1", final.Steps()[0].Executions[0].Call.ID)
}
