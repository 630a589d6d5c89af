package subagent

import (
	"context"
	"slices"
	"strings"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/agent"
	"github.com/rickchristie/gentloop/executor"
	"github.com/rickchristie/gentloop/toolchain"
	"github.com/tmc/langchaingo/llms"
)

const (
	// ToolName is the name of the planning tool.
	ToolName = "plan_with_subagent"

	// SpawnToolName is the name reserved for a general subagent spawning tool.
	SpawnToolName = "spawn_subagent"
)

// BuiltinForbiddenNames returns the tool names no subagent can ever be given.
func BuiltinForbiddenNames() []string {
	return []string{ToolName, SpawnToolName}
}

// Spawner builds and runs nested agent loops for a parent agent.
//
// The nested loop gets the parent's tools plus any extra tools, narrowed by
// the allow-list when one is set. Tools named in the forbidden set are then
// removed unconditionally, so a subagent can never reach a tool that spawns
// another subagent, whatever the allow-list says. The built-in names
// [ToolName] and [SpawnToolName] are always forbidden.
//
// Spawner is immutable; With* methods return copies.
type Spawner struct {
	tools     *toolchain.Registry
	extra     *toolchain.Registry
	allow     []string
	forbidden []string
	driver    gentloop.Driver
	budget    gentloop.ExecutionBudget
	events    gentloop.Publisher
	models    gentloop.ModelConfigProvider
	options   []executor.Option
}

// NewSpawner creates a spawner over the parent's tools and driver.
func NewSpawner(tools *toolchain.Registry, driver gentloop.Driver) *Spawner {
	return &Spawner{tools: tools, driver: driver}
}

func (s *Spawner) clone() *Spawner {
	c := *s
	c.allow = slices.Clone(s.allow)
	c.forbidden = slices.Clone(s.forbidden)
	c.options = slices.Clone(s.options)
	return &c
}

// WithExtraTools returns a spawner that also offers tools to subagents. The
// parent's tools win on name collisions.
func (s *Spawner) WithExtraTools(tools ...gentloop.Tool) *Spawner {
	c := s.clone()
	c.extra = s.extra.With(tools...)
	return c
}

// WithAllowList returns a spawner restricting subagents to names. An empty
// list allows every available tool.
func (s *Spawner) WithAllowList(names ...string) *Spawner {
	c := s.clone()
	c.allow = slices.Clone(names)
	return c
}

// WithForbiddenNames returns a spawner that also withholds names from
// subagents.
func (s *Spawner) WithForbiddenNames(names ...string) *Spawner {
	c := s.clone()
	c.forbidden = append(c.forbidden, names...)
	return c
}

// WithBudget returns a spawner bounding subagents by budget.
func (s *Spawner) WithBudget(budget gentloop.ExecutionBudget) *Spawner {
	c := s.clone()
	c.budget = budget
	return c
}

// WithEvents returns a spawner whose subagents publish to publisher.
func (s *Spawner) WithEvents(publisher gentloop.Publisher) *Spawner {
	c := s.clone()
	c.events = publisher
	return c
}

// WithModelConfigProvider sets the fallback model configuration for parents
// that carry none.
func (s *Spawner) WithModelConfigProvider(provider gentloop.ModelConfigProvider) *Spawner {
	c := s.clone()
	c.models = provider
	return c
}

// WithLoopOptions returns a spawner passing opts to subagent loops.
func (s *Spawner) WithLoopOptions(opts ...executor.Option) *Spawner {
	c := s.clone()
	c.options = append(c.options, opts...)
	return c
}

// Budget returns the subagent budget.
func (s *Spawner) Budget() gentloop.ExecutionBudget { return s.budget }

// ForbiddenNames returns the built-in forbidden names followed by the
// configured ones.
func (s *Spawner) ForbiddenNames() []string {
	names := BuiltinForbiddenNames()
	for _, name := range s.forbidden {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// Tools returns the tool set a subagent gets.
func (s *Spawner) Tools() *toolchain.Registry {
	return s.tools.
		Merge(s.extra).
		Filter(s.allow).
		Without(s.ForbiddenNames()...)
}

// ModelConfig returns the configuration a subagent of parent runs with: the
// parent's own when it has one, the provider's otherwise.
func (s *Spawner) ModelConfig(parent *gentloop.AgentState) gentloop.ModelConfig {
	if parent != nil {
		if cfg, ok := parent.ModelConfig(); ok {
			return cfg
		}
	}
	if s.models != nil {
		return s.models.ResolveModelConfig()
	}
	return gentloop.ModelConfig{}
}

// Driver returns the parent's driver, reconfigured for the subagent's model
// when it supports that.
func (s *Spawner) Driver(parent *gentloop.AgentState) gentloop.Driver {
	configurable, ok := s.driver.(gentloop.ModelConfigurable)
	if !ok {
		return s.driver
	}
	cfg := s.ModelConfig(parent)
	if cfg.IsZero() {
		return s.driver
	}
	return configurable.WithModelConfig(cfg)
}

// Loop builds the nested loop for a subagent of parent.
func (s *Spawner) Loop(parent *gentloop.AgentState) *executor.Loop {
	return agent.New().
		WithCapability(
			agent.UseTools(s.Tools().All()...),
			agent.UseDriver(s.Driver(parent)),
			agent.UseBudget(s.budget),
			agent.UseEvents(s.events),
			agent.UseLoopOptions(s.options...),
		).
		Build()
}

// InitialState returns the starting state of a subagent of parent: an
// optional system message followed by input as the user message. The state
// references the parent and inherits its model configuration.
func (s *Spawner) InitialState(parent *gentloop.AgentState, systemPrompt, input string) *gentloop.AgentState {
	var msgs []llms.MessageContent
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		msgs = append(msgs, gentloop.SystemMessage(prompt))
	}
	msgs = append(msgs, gentloop.UserMessage(input))

	state := gentloop.NewAgentState().WithMessages(msgs...)
	if parent == nil {
		return state
	}
	state = state.WithParentAgentID(parent.ID())
	if cfg, ok := parent.ModelConfig(); ok {
		state = state.WithModelConfig(cfg)
	}
	return state
}

// Run runs a subagent of parent to a terminal status. The parent state is
// never modified.
func (s *Spawner) Run(
	ctx context.Context,
	parent *gentloop.AgentState,
	systemPrompt, input string,
) *gentloop.AgentState {
	return s.Loop(parent).Execute(ctx, s.InitialState(parent, systemPrompt, input))
}
