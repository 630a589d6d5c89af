package events

import (
	"sync"

	"github.com/rickchristie/gentloop"
)

// Registry manages event subscribers and dispatches events to them.
//
// # Overview
//
// Registry is the central coordination point for event subscribers. It:
//   - Stores registered subscribers in order
//   - Dispatches events to subscribers that implement the relevant interface
//   - Guards against subscribers that publish events recursively
//
// Subscribers can implement any combination of subscriber interfaces - they only
// receive events for the interfaces they implement.
//
// # Creating and Using
//
//	registry := events.NewRegistry().
//	    Subscribe(telemetry.NewLogSubscriber(logger)).
//	    Subscribe(metrics)
//
//	loop := executor.New(driver, tools).WithEvents(registry)
//
// # Thread Safety
//
// Subscribe and Publish may be called concurrently. Subscribers that keep
// state must lock it themselves: a parent loop and the subagent loops it
// spawns publish into the same registry.
//
// # Recursion
//
// Recursion is counted per publish chain. A lineage steps on one goroutine,
// so a publish for an agent that already has a publish in flight comes from a
// subscriber. Events without an agent id are chained by identity. Lineages
// running concurrently never count toward each other's depth; run the same
// state concurrently only after [gentloop.AgentState.Fork].
type Registry struct {
	mu           sync.RWMutex
	subscribers  []any
	maxRecursion int
	inFlight     map[any]int
}

// DefaultMaxRecursion is the default maximum event recursion depth.
const DefaultMaxRecursion = 10

// NewRegistry creates a new empty Registry with default settings.
func NewRegistry() *Registry {
	return &Registry{
		subscribers:  make([]any, 0),
		maxRecursion: DefaultMaxRecursion,
		inFlight:     make(map[any]int),
	}
}

// Subscribe adds a subscriber to the registry. Subscribers are called in the
// order they are registered.
func (r *Registry) Subscribe(subscriber any) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, subscriber)
	return r
}

// SetMaxRecursion sets the maximum depth of events published from within
// subscribers for one lineage. Publish panics beyond it. Zero disables the
// check.
func (r *Registry) SetMaxRecursion(max int) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxRecursion = max
	return r
}

// MaxRecursion returns the configured maximum recursion depth.
func (r *Registry) MaxRecursion() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxRecursion
}

// Len returns the number of subscribers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Publish sends an event to all matching subscribers. A nil registry
// discards events.
func (r *Registry) Publish(event gentloop.Event) {
	if r == nil {
		return
	}

	key := chainKey(event)

	r.mu.Lock()
	if r.inFlight == nil {
		r.inFlight = make(map[any]int)
	}
	depth, limit := 0, r.maxRecursion
	if key != nil {
		r.inFlight[key]++
		depth = r.inFlight[key]
	}
	subs := append([]any(nil), r.subscribers...)
	r.mu.Unlock()

	if key != nil {
		defer func() {
			r.mu.Lock()
			r.inFlight[key]--
			if r.inFlight[key] <= 0 {
				delete(r.inFlight, key)
			}
			r.mu.Unlock()
		}()
	}

	if limit > 0 && depth > limit {
		panic("events: max recursion depth exceeded publishing " + event.EventName())
	}

	dispatch(subs, event)
}

// chainKey identifies the publish chain of event: its agent id, or the event
// itself when it carries none. Unknown event types are not dispatched and
// return nil.
func chainKey(event gentloop.Event) any {
	var id string
	switch e := event.(type) {
	case *gentloop.LoopStartEvent:
		id = e.AgentID
	case *gentloop.StepEvent:
		id = e.AgentID
	case *gentloop.ToolExecutionEvent:
		id = e.AgentID
	case *gentloop.CallRejectedEvent:
		id = e.AgentID
	case *gentloop.BudgetExhaustedEvent:
		id = e.AgentID
	case *gentloop.LoopEndEvent:
		id = e.AgentID
	default:
		return nil
	}
	if id == "" {
		return event
	}
	return id
}

func dispatch(subs []any, event gentloop.Event) {
	switch e := event.(type) {
	case *gentloop.LoopStartEvent:
		for _, s := range subs {
			if sub, ok := s.(gentloop.LoopStartSubscriber); ok {
				sub.OnLoopStart(e)
			}
		}
	case *gentloop.StepEvent:
		for _, s := range subs {
			if sub, ok := s.(gentloop.StepSubscriber); ok {
				sub.OnStep(e)
			}
		}
	case *gentloop.ToolExecutionEvent:
		for _, s := range subs {
			if sub, ok := s.(gentloop.ToolExecutionSubscriber); ok {
				sub.OnToolExecution(e)
			}
		}
	case *gentloop.CallRejectedEvent:
		for _, s := range subs {
			if sub, ok := s.(gentloop.CallRejectedSubscriber); ok {
				sub.OnCallRejected(e)
			}
		}
	case *gentloop.BudgetExhaustedEvent:
		for _, s := range subs {
			if sub, ok := s.(gentloop.BudgetExhaustedSubscriber); ok {
				sub.OnBudgetExhausted(e)
			}
		}
	case *gentloop.LoopEndEvent:
		for _, s := range subs {
			if sub, ok := s.(gentloop.LoopEndSubscriber); ok {
				sub.OnLoopEnd(e)
			}
		}
	}
}

var _ gentloop.Publisher = (*Registry)(nil)
