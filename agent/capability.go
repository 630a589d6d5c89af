package agent

import (
	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/executor"
)

// Capability packages a reusable piece of agent configuration.
type Capability interface {
	// Name identifies the capability, e.g. "use_tools".
	Name() string

	// Configure returns the builder with the capability applied.
	Configure(b *Builder) *Builder
}

// CapabilityFunc is a named function [Capability].
type CapabilityFunc struct {
	name      string
	configure func(b *Builder) *Builder
}

// NewCapability creates a capability from a configuration function.
func NewCapability(name string, configure func(b *Builder) *Builder) CapabilityFunc {
	return CapabilityFunc{name: name, configure: configure}
}

func (c CapabilityFunc) Name() string { return c.name }

func (c CapabilityFunc) Configure(b *Builder) *Builder { return c.configure(b) }

// UseTools registers tools.
func UseTools(tools ...gentloop.Tool) Capability {
	return NewCapability("use_tools", func(b *Builder) *Builder {
		return b.WithTools(tools...)
	})
}

// UseDriver sets the driver.
func UseDriver(driver gentloop.Driver) Capability {
	return NewCapability("use_driver", func(b *Builder) *Builder {
		return b.WithDriver(driver)
	})
}

// UseBudget bounds the loop.
func UseBudget(budget gentloop.ExecutionBudget) Capability {
	return NewCapability("use_budget", func(b *Builder) *Builder {
		return b.WithBudget(budget)
	})
}

// UseHook registers a hook.
func UseHook(name string, priority int, triggers []gentloop.HookTrigger, hook gentloop.Hook) Capability {
	return NewCapability("use_hook:"+name, func(b *Builder) *Builder {
		return b.WithHook(name, priority, triggers, hook)
	})
}

// UseEvents sets the event publisher.
func UseEvents(publisher gentloop.Publisher) Capability {
	return NewCapability("use_events", func(b *Builder) *Builder {
		return b.WithEvents(publisher)
	})
}

// UseLoopOptions passes options to the loop.
func UseLoopOptions(opts ...executor.Option) Capability {
	return NewCapability("use_loop_options", func(b *Builder) *Builder {
		return b.WithLoopOptions(opts...)
	})
}
