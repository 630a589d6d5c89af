package hooks

import (
	"context"
	"slices"

	"github.com/rickchristie/gentloop"
)

// Entry is a registered hook with its dispatch metadata.
type Entry struct {
	// Name identifies the hook. Registering a hook under an existing name
	// replaces the earlier entry, which keeps re-registration idempotent.
	Name string

	// Priority orders hooks for one trigger; higher runs first.
	Priority int

	// Triggers lists the lifecycle points the hook runs at.
	Triggers []gentloop.HookTrigger

	// Hook is the state rewrite itself.
	Hook gentloop.Hook

	seq int
}

// Handles reports whether the entry runs at trigger.
func (e Entry) Handles(trigger gentloop.HookTrigger) bool {
	return slices.Contains(e.Triggers, trigger)
}

// Registry manages the hooks of an agent and applies them at lifecycle points.
//
// # Overview
//
// Registry is an immutable value. [Registry.With] returns a new registry;
// the receiver is never modified, so a registry can be shared between a
// parent agent and the subagents it spawns.
//
// # Ordering
//
// For one trigger, hooks run by descending priority. Hooks with equal
// priority run in registration order. A hook re-registered under an existing
// name keeps its original position among equal priorities.
//
// # Creating and Using
//
//	registry := hooks.NewRegistry().
//	    With("date:prompt", 50, gentloop.BeforeStepTriggers(), dateHook).
//	    With("audit", 10, []gentloop.HookTrigger{gentloop.TriggerAfterStep}, auditHook)
//
//	loop := executor.New(driver, tools).WithHooks(registry)
//
// A nil *Registry has no hooks.
type Registry struct {
	entries []Entry
	nextSeq int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// With returns a registry with hook registered under name.
func (r *Registry) With(
	name string,
	priority int,
	triggers []gentloop.HookTrigger,
	hook gentloop.Hook,
) *Registry {
	next := &Registry{}
	if r != nil {
		next.entries = slices.Clone(r.entries)
		next.nextSeq = r.nextSeq
	}

	entry := Entry{
		Name:     name,
		Priority: priority,
		Triggers: slices.Clone(triggers),
		Hook:     hook,
	}

	for i, existing := range next.entries {
		if existing.Name == name {
			entry.seq = existing.seq
			next.entries[i] = entry
			return next
		}
	}

	entry.seq = next.nextSeq
	next.nextSeq++
	next.entries = append(next.entries, entry)
	return next
}

// WithFunc is like [Registry.With] for a plain function.
func (r *Registry) WithFunc(
	name string,
	priority int,
	triggers []gentloop.HookTrigger,
	fn func(ctx context.Context, state *gentloop.AgentState, trigger gentloop.HookTrigger) *gentloop.AgentState,
) *Registry {
	return r.With(name, priority, triggers, gentloop.HookFunc(fn))
}

// Merge returns a registry holding the hooks of r followed by those of
// other. Names present in both take other's hook.
func (r *Registry) Merge(other *Registry) *Registry {
	merged := r
	if merged == nil {
		merged = NewRegistry()
	}
	for _, e := range other.Entries() {
		merged = merged.With(e.Name, e.Priority, e.Triggers, e.Hook)
	}
	return merged
}

// Entries returns the registered hooks in registration order.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := slices.Clone(r.entries)
	slices.SortStableFunc(out, func(a, b Entry) int { return a.seq - b.seq })
	return out
}

// Has reports whether a hook is registered under name.
func (r *Registry) Has(name string) bool {
	return slices.ContainsFunc(r.Entries(), func(e Entry) bool { return e.Name == name })
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// For returns the hooks that run at trigger, in execution order.
func (r *Registry) For(trigger gentloop.HookTrigger) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Handles(trigger) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Entry) int { return b.Priority - a.Priority })
	return out
}

// Apply runs every hook registered for trigger, feeding each the state the
// previous one returned. A hook returning nil leaves the state unchanged.
func (r *Registry) Apply(
	ctx context.Context,
	state *gentloop.AgentState,
	trigger gentloop.HookTrigger,
) *gentloop.AgentState {
	for _, e := range r.For(trigger) {
		if next := e.Hook.HandleHook(ctx, state, trigger); next != nil {
			state = next
		}
	}
	return state
}
