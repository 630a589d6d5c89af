package agent

import (
	"slices"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/executor"
	"github.com/rickchristie/gentloop/hooks"
	"github.com/rickchristie/gentloop/toolchain"
)

// DeferredToolContext is what a [DeferredToolProvider] sees when the agent is
// built: the tools registered directly on the builder, and its driver and
// event publisher.
type DeferredToolContext struct {
	Tools  *toolchain.Registry
	Driver gentloop.Driver
	Events gentloop.Publisher
}

// DeferredToolProvider builds tools that depend on the rest of the agent,
// such as a tool that spawns nested loops with the parent's tools and driver.
type DeferredToolProvider interface {
	ProvideTools(ctx DeferredToolContext) []gentloop.Tool
}

// DeferredToolProviderFunc adapts a function to [DeferredToolProvider].
type DeferredToolProviderFunc func(ctx DeferredToolContext) []gentloop.Tool

// ProvideTools calls f(ctx).
func (f DeferredToolProviderFunc) ProvideTools(ctx DeferredToolContext) []gentloop.Tool {
	return f(ctx)
}

type namedProvider struct {
	name     string
	provider DeferredToolProvider
}

// Builder assembles an [executor.Loop] from tools, a driver, hooks, events,
// a budget and capabilities. It is immutable: every With* method returns a
// new builder.
//
//	loop := agent.New().
//	    WithCapability(
//	        agent.UseDriver(driver),
//	        agent.UseTools(readFile),
//	        subagent.UsePlanningSubagent(),
//	    ).
//	    Build()
type Builder struct {
	tools        *toolchain.Registry
	driver       gentloop.Driver
	budget       gentloop.ExecutionBudget
	hooks        *hooks.Registry
	events       gentloop.Publisher
	deferred     []namedProvider
	capabilities []string
	options      []executor.Option
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{
		tools: toolchain.NewRegistry(),
		hooks: hooks.NewRegistry(),
	}
}

func (b *Builder) clone() *Builder {
	c := *b
	c.deferred = slices.Clone(b.deferred)
	c.capabilities = slices.Clone(b.capabilities)
	c.options = slices.Clone(b.options)
	return &c
}

// WithTools returns a builder with tools added. Names already registered keep
// their first tool.
func (b *Builder) WithTools(tools ...gentloop.Tool) *Builder {
	c := b.clone()
	c.tools = b.tools.With(tools...)
	return c
}

// WithDriver returns a builder using driver.
func (b *Builder) WithDriver(driver gentloop.Driver) *Builder {
	c := b.clone()
	c.driver = driver
	return c
}

// WithBudget returns a builder whose loop is bounded by budget.
func (b *Builder) WithBudget(budget gentloop.ExecutionBudget) *Builder {
	c := b.clone()
	c.budget = budget
	return c
}

// WithHooks returns a builder with its hook registry replaced.
func (b *Builder) WithHooks(registry *hooks.Registry) *Builder {
	c := b.clone()
	c.hooks = registry
	return c
}

// WithHook returns a builder with hook registered under name.
func (b *Builder) WithHook(
	name string,
	priority int,
	triggers []gentloop.HookTrigger,
	hook gentloop.Hook,
) *Builder {
	c := b.clone()
	c.hooks = b.hooks.With(name, priority, triggers, hook)
	return c
}

// WithEvents returns a builder publishing to publisher.
func (b *Builder) WithEvents(publisher gentloop.Publisher) *Builder {
	c := b.clone()
	c.events = publisher
	return c
}

// WithDeferredTools returns a builder with provider registered under name.
// Registering a name again replaces the earlier provider.
func (b *Builder) WithDeferredTools(name string, provider DeferredToolProvider) *Builder {
	c := b.clone()
	for i, p := range c.deferred {
		if p.name == name {
			c.deferred[i].provider = provider
			return c
		}
	}
	c.deferred = append(c.deferred, namedProvider{name: name, provider: provider})
	return c
}

// WithLoopOptions returns a builder passing opts to the loop.
func (b *Builder) WithLoopOptions(opts ...executor.Option) *Builder {
	c := b.clone()
	c.options = append(c.options, opts...)
	return c
}

// WithCapability returns a builder configured by each capability in turn.
func (b *Builder) WithCapability(caps ...Capability) *Builder {
	next := b
	for _, capability := range caps {
		if capability == nil {
			continue
		}
		next = capability.Configure(next).clone()
		next.capabilities = append(next.capabilities, capability.Name())
	}
	return next
}

// Tools returns the tools registered directly on the builder.
func (b *Builder) Tools() *toolchain.Registry { return b.tools }

// Driver returns the configured driver.
func (b *Builder) Driver() gentloop.Driver { return b.driver }

// Budget returns the configured budget.
func (b *Builder) Budget() gentloop.ExecutionBudget { return b.budget }

// Hooks returns the hook registry.
func (b *Builder) Hooks() *hooks.Registry { return b.hooks }

// Events returns the event publisher (possibly nil).
func (b *Builder) Events() gentloop.Publisher { return b.events }

// Capabilities returns the names of the applied capabilities in order.
func (b *Builder) Capabilities() []string { return slices.Clone(b.capabilities) }

// DeferredToolNames returns the names of the registered providers in order.
func (b *Builder) DeferredToolNames() []string {
	names := make([]string, len(b.deferred))
	for i, p := range b.deferred {
		names[i] = p.name
	}
	return names
}

// Build resolves the deferred tools and returns the loop. Every provider sees
// the same context, built from the directly registered tools.
func (b *Builder) Build() *executor.Loop {
	ctx := DeferredToolContext{
		Tools:  b.tools,
		Driver: b.driver,
		Events: b.events,
	}

	tools := b.tools
	for _, p := range b.deferred {
		tools = tools.With(p.provider.ProvideTools(ctx)...)
	}

	return executor.New(b.driver, tools, b.options...).
		WithHooks(b.hooks).
		WithEvents(b.events).
		WithBudget(b.budget)
}
