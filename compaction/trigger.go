package compaction

import (
	"context"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/agent"
	"github.com/spf13/cast"
)

const (
	// CapabilityName identifies the compaction capability on a builder.
	CapabilityName = "use_compaction"

	// HookName is the name of the compaction hook.
	HookName = "compaction"

	// HookPriority runs compaction after hooks that add to the conversation.
	HookPriority = 10
)

// Trigger decides whether to compact a state before its next step.
type Trigger interface {
	ShouldCompact(state *gentloop.AgentState) bool
}

// TriggerFunc adapts a function to [Trigger].
type TriggerFunc func(state *gentloop.AgentState) bool

func (f TriggerFunc) ShouldCompact(state *gentloop.AgentState) bool { return f(state) }

// Always fires before every step.
func Always() Trigger {
	return TriggerFunc(func(*gentloop.AgentState) bool { return true })
}

// StepsSinceCompaction fires once n steps were taken since the last
// compaction (or since the start).
func StepsSinceCompaction(n int) Trigger {
	return TriggerFunc(func(state *gentloop.AgentState) bool {
		last := 0
		if v, ok := state.MetadataValue(MetadataStep); ok {
			last = cast.ToInt(v)
		}
		return state.StepCount()-last >= n
	})
}

// LastInputTokens fires when the last step's input reached n tokens.
func LastInputTokens(n int) Trigger {
	return TriggerFunc(func(state *gentloop.AgentState) bool {
		last := state.LastStep()
		return last != nil && last.Usage.InputTokens >= n
	})
}

// Any fires when one of triggers fires. Without triggers it never fires.
func Any(triggers ...Trigger) Trigger {
	return TriggerFunc(func(state *gentloop.AgentState) bool {
		for _, t := range triggers {
			if t.ShouldCompact(state) {
				return true
			}
		}
		return false
	})
}

// Hook returns a hook running strategy whenever trigger fires. A
// [ContextStrategy] receives the hook's context.
func Hook(strategy Strategy, trigger Trigger) gentloop.Hook {
	return gentloop.HookFunc(func(
		ctx context.Context,
		state *gentloop.AgentState,
		_ gentloop.HookTrigger,
	) *gentloop.AgentState {
		if !trigger.ShouldCompact(state) {
			return state
		}
		if cs, ok := strategy.(ContextStrategy); ok {
			return cs.CompactContext(ctx, state)
		}
		return strategy.Compact(state)
	})
}

// UseCompaction returns a capability compacting the conversation before each
// step. A nil trigger compacts every step.
func UseCompaction(strategy Strategy, trigger Trigger) agent.Capability {
	if trigger == nil {
		trigger = Always()
	}
	return agent.NewCapability(CapabilityName, func(b *agent.Builder) *agent.Builder {
		return b.WithHook(
			HookName,
			HookPriority,
			[]gentloop.HookTrigger{gentloop.TriggerBeforeStep},
			Hook(strategy, trigger),
		)
	})
}
