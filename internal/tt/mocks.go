// Package tt provides test helpers shared by the gentloop packages.
package tt

import (
	"context"
	"fmt"
	"sync"

	"github.com/rickchristie/gentloop"
)

// -----------------------------------------------------------------------------
// MockDriver
// -----------------------------------------------------------------------------

type driverResponse struct {
	decision gentloop.Decision
	err      error
}

// MockDriver replays queued decisions in order and records the states it was
// asked to decide on. When the queue runs dry it returns an error.
type MockDriver struct {
	mu        sync.Mutex
	responses []driverResponse
	seen      []*gentloop.AgentState
}

// NewMockDriver creates a driver that replays decisions.
func NewMockDriver(decisions ...gentloop.Decision) *MockDriver {
	d := &MockDriver{}
	for _, decision := range decisions {
		d.responses = append(d.responses, driverResponse{decision: decision})
	}
	return d
}

// AddDecision queues a decision.
func (d *MockDriver) AddDecision(decision gentloop.Decision) *MockDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses = append(d.responses, driverResponse{decision: decision})
	return d
}

// AddError queues an error.
func (d *MockDriver) AddError(err error) *MockDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses = append(d.responses, driverResponse{err: err})
	return d
}

// Decide implements gentloop.Driver.
func (d *MockDriver) Decide(_ context.Context, state *gentloop.AgentState) (gentloop.Decision, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := len(d.seen)
	d.seen = append(d.seen, state)
	if idx >= len(d.responses) {
		return gentloop.Decision{}, fmt.Errorf("mock driver: no response queued for call %d", idx+1)
	}
	r := d.responses[idx]
	return r.decision, r.err
}

// CallCount returns how many times Decide was called.
func (d *MockDriver) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// States returns the states Decide received, in order.
func (d *MockDriver) States() []*gentloop.AgentState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*gentloop.AgentState(nil), d.seen...)
}

// -----------------------------------------------------------------------------
// MockTool
// -----------------------------------------------------------------------------

// MockToolFunc computes a MockTool's result.
type MockToolFunc func(ctx context.Context, args map[string]any) (any, error)

// MockTool is a configurable tool that records the arguments of every call.
type MockTool struct {
	name   string
	params map[string]any
	fn     MockToolFunc

	mu    *sync.Mutex
	calls *[]map[string]any
}

// NewMockTool creates a tool that returns "ok" and accepts any arguments.
func NewMockTool(name string) *MockTool {
	return &MockTool{
		name: name,
		fn: func(context.Context, map[string]any) (any, error) {
			return "ok", nil
		},
		mu:    &sync.Mutex{},
		calls: &[]map[string]any{},
	}
}

// WithParams sets the parameter schema.
func (t *MockTool) WithParams(params map[string]any) *MockTool {
	t.params = params
	return t
}

// WithResult makes every call return value.
func (t *MockTool) WithResult(value any) *MockTool {
	t.fn = func(context.Context, map[string]any) (any, error) { return value, nil }
	return t
}

// WithError makes every call fail with err.
func (t *MockTool) WithError(err error) *MockTool {
	t.fn = func(context.Context, map[string]any) (any, error) { return nil, err }
	return t
}

// WithFunc sets the call implementation.
func (t *MockTool) WithFunc(fn MockToolFunc) *MockTool {
	t.fn = fn
	return t
}

func (t *MockTool) Name() string        { return t.name }
func (t *MockTool) Description() string { return "mock tool " + t.name }

func (t *MockTool) ToolSchema() gentloop.ToolSchema {
	return gentloop.NewToolSchema(t.name, t.Description(), t.params)
}

func (t *MockTool) Call(ctx context.Context, args map[string]any) (any, error) {
	t.mu.Lock()
	*t.calls = append(*t.calls, args)
	t.mu.Unlock()
	return t.fn(ctx, args)
}

// Calls returns the arguments of every call, in order.
func (t *MockTool) Calls() []map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]map[string]any(nil), *t.calls...)
}

// CallCount returns how many times the tool was called.
func (t *MockTool) CallCount() int {
	return len(t.Calls())
}

// -----------------------------------------------------------------------------
// BindingRecorderTool
// -----------------------------------------------------------------------------

// Binding is what a BindingRecorderTool saw when it was called.
type Binding struct {
	State *gentloop.AgentState
	Call  gentloop.ToolCall
}

// BindingRecorderTool is a context-aware tool that records the state and call
// it was bound to at each invocation. Bound copies share the record.
type BindingRecorderTool struct {
	name  string
	state *gentloop.AgentState
	call  gentloop.ToolCall

	mu       *sync.Mutex
	bindings *[]Binding
}

// NewBindingRecorderTool creates a context-aware tool named name.
func NewBindingRecorderTool(name string) *BindingRecorderTool {
	return &BindingRecorderTool{
		name:     name,
		mu:       &sync.Mutex{},
		bindings: &[]Binding{},
	}
}

func (t *BindingRecorderTool) Name() string        { return t.name }
func (t *BindingRecorderTool) Description() string { return "records its bindings" }

func (t *BindingRecorderTool) ToolSchema() gentloop.ToolSchema {
	return gentloop.NewToolSchema(t.name, t.Description(), nil)
}

func (t *BindingRecorderTool) WithAgentState(state *gentloop.AgentState) gentloop.ContextAwareTool {
	c := *t
	c.state = state
	return &c
}

func (t *BindingRecorderTool) WithToolCall(call gentloop.ToolCall) gentloop.ContextAwareTool {
	c := *t
	c.call = call
	return &c
}

func (t *BindingRecorderTool) Call(context.Context, map[string]any) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	*t.bindings = append(*t.bindings, Binding{State: t.state, Call: t.call})
	return "bound", nil
}

// Bindings returns the recorded bindings, in call order.
func (t *BindingRecorderTool) Bindings() []Binding {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Binding(nil), *t.bindings...)
}

// -----------------------------------------------------------------------------
// IDs
// -----------------------------------------------------------------------------

// SequentialIDs returns a generator producing prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
