package subagent

import (
	"strings"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/agent"
	"github.com/rickchristie/gentloop/hooks"
)

const (
	// CapabilityName identifies the planning capability on a builder.
	CapabilityName = "use_planning_subagent"

	// InstructionsHookName is the name of the hook adding the parent
	// instructions to the system prompt.
	InstructionsHookName = "planning_subagent:instructions"

	// InstructionsHookPriority runs the instructions hook ahead of most hooks.
	InstructionsHookPriority = 90

	deferredToolsName = "planning_subagent"
)

// DefaultParentInstructions tells the parent agent when and how to plan.
const DefaultParentInstructions = `For complex tasks, call the ` + "`" + ToolName + "`" + ` tool before implementing anything.

Give it a text task specification with these sections:
- Goal
- Context
- Expected Outcomes
- Acceptance Criteria

Mention constraints and non-goals when they matter. Once you have the plan, carry on using it as guidance.`

// DefaultPlannerSystemPrompt opens every planner conversation.
const DefaultPlannerSystemPrompt = `You are a planning specialist.

Write an implementation plan for the task specification you are given.
You may use the available tools to gather context before settling on the plan.
Do not make changes yourself. Answer with a dense markdown plan only.

Keep to the sections and constraints the specification asks for.`

// PlanningOption configures [UsePlanningSubagent].
type PlanningOption func(*planningConfig)

type planningConfig struct {
	instructions string
	systemPrompt string
	allow        []string
	extra        []gentloop.Tool
	forbidden    []string
	budget       gentloop.ExecutionBudget
	models       gentloop.ModelConfigProvider
	fatal        bool
}

// WithParentInstructions replaces the instructions added to the parent's
// system prompt. An empty text adds none.
func WithParentInstructions(text string) PlanningOption {
	return func(c *planningConfig) { c.instructions = text }
}

// WithPlannerSystemPrompt replaces the planner's system prompt.
func WithPlannerSystemPrompt(text string) PlanningOption {
	return func(c *planningConfig) { c.systemPrompt = text }
}

// WithPlannerTools restricts the planner to the named tools.
func WithPlannerTools(names ...string) PlanningOption {
	return func(c *planningConfig) { c.allow = append(c.allow, names...) }
}

// WithPlannerAdditionalTools offers tools to the planner that the parent does
// not have.
func WithPlannerAdditionalTools(tools ...gentloop.Tool) PlanningOption {
	return func(c *planningConfig) { c.extra = append(c.extra, tools...) }
}

// WithPlannerForbiddenTools withholds more tool names from the planner.
func WithPlannerForbiddenTools(names ...string) PlanningOption {
	return func(c *planningConfig) { c.forbidden = append(c.forbidden, names...) }
}

// WithPlannerBudget bounds each planner run.
func WithPlannerBudget(budget gentloop.ExecutionBudget) PlanningOption {
	return func(c *planningConfig) { c.budget = budget }
}

// WithPlannerModelConfig sets the model configuration used when the parent
// state carries none.
func WithPlannerModelConfig(provider gentloop.ModelConfigProvider) PlanningOption {
	return func(c *planningConfig) { c.models = provider }
}

// WithFatalPlannerFailures makes planner failures stop the parent loop.
func WithFatalPlannerFailures() PlanningOption {
	return func(c *planningConfig) { c.fatal = true }
}

// UsePlanningSubagent returns a capability that gives an agent the
// plan_with_subagent tool and tells it, through its system prompt, when to
// use it.
//
// The tool is deferred: it is built when the agent is built, from the
// agent's own tools, driver and event publisher.
//
//	loop := agent.New().
//	    WithCapability(
//	        agent.UseDriver(driver),
//	        agent.UseTools(readFile, grep),
//	        subagent.UsePlanningSubagent(
//	            subagent.WithPlannerTools("read_file", "grep"),
//	            subagent.WithPlannerBudget(gentloop.ExecutionBudget{MaxSteps: 8}),
//	        ),
//	    ).
//	    Build()
func UsePlanningSubagent(opts ...PlanningOption) agent.Capability {
	cfg := planningConfig{
		instructions: DefaultParentInstructions,
		systemPrompt: DefaultPlannerSystemPrompt,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return agent.NewCapability(CapabilityName, cfg.configure)
}

func (c planningConfig) configure(b *agent.Builder) *agent.Builder {
	if instructions := strings.TrimSpace(c.instructions); instructions != "" {
		b = b.WithHook(
			InstructionsHookName,
			InstructionsHookPriority,
			gentloop.BeforeStepTriggers(),
			hooks.AppendSystemPrompt(instructions),
		)
	}
	return b.WithDeferredTools(deferredToolsName, planningToolProvider{config: c})
}

// planningToolProvider builds the planning tool once the parent agent's
// tools, driver and events are known.
type planningToolProvider struct {
	config planningConfig
}

func (p planningToolProvider) ProvideTools(ctx agent.DeferredToolContext) []gentloop.Tool {
	spawner := NewSpawner(ctx.Tools, ctx.Driver).
		WithExtraTools(p.config.extra...).
		WithAllowList(p.config.allow...).
		WithForbiddenNames(p.config.forbidden...).
		WithBudget(p.config.budget).
		WithEvents(ctx.Events).
		WithModelConfigProvider(p.config.models)

	tool := NewPlanningTool(spawner, p.config.systemPrompt)
	if p.config.fatal {
		tool = tool.WithFatalFailures()
	}
	return []gentloop.Tool{tool}
}
