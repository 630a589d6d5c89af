package tt

import (
	"sync"

	"github.com/rickchristie/gentloop"
)

// Recorder is a subscriber for every loop event. It keeps them in publish
// order and is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []gentloop.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(e gentloop.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) OnLoopStart(e *gentloop.LoopStartEvent)             { r.record(e) }
func (r *Recorder) OnStep(e *gentloop.StepEvent)                       { r.record(e) }
func (r *Recorder) OnToolExecution(e *gentloop.ToolExecutionEvent)     { r.record(e) }
func (r *Recorder) OnCallRejected(e *gentloop.CallRejectedEvent)       { r.record(e) }
func (r *Recorder) OnBudgetExhausted(e *gentloop.BudgetExhaustedEvent) { r.record(e) }
func (r *Recorder) OnLoopEnd(e *gentloop.LoopEndEvent)                 { r.record(e) }

// Publish lets a Recorder stand in for a publisher directly.
func (r *Recorder) Publish(e gentloop.Event) { r.record(e) }

// Events returns the recorded events.
func (r *Recorder) Events() []gentloop.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gentloop.Event(nil), r.events...)
}

// Names returns the names of the recorded events.
func (r *Recorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName()
	}
	return names
}

// LoopEnds returns the recorded loop end events.
func (r *Recorder) LoopEnds() []*gentloop.LoopEndEvent {
	var out []*gentloop.LoopEndEvent
	for _, e := range r.Events() {
		if end, ok := e.(*gentloop.LoopEndEvent); ok {
			out = append(out, end)
		}
	}
	return out
}
