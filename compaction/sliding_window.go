package compaction

import (
	"github.com/rickchristie/gentloop"
	"github.com/spf13/cast"
	"github.com/tmc/langchaingo/llms"
)

// Metadata keys written by compaction.
const (
	// MetadataPrefix holds the number of leading messages that came from the
	// caller rather than from steps.
	MetadataPrefix = "compaction:prefix"

	// MetadataStep holds the step count at the last compaction.
	MetadataStep = "compaction:step"
)

// Strategy rewrites the conversation of a state.
type Strategy interface {
	Compact(state *gentloop.AgentState) *gentloop.AgentState
}

// SlidingWindow keeps the caller's messages and the output of the last N
// steps. Pinned steps are always kept; they do not count toward the window.
//
//	// Keep the task plus the last 10 steps
//	strategy := compaction.NewSlidingWindow(10)
type SlidingWindow struct {
	windowSize int
	pinned     func(gentloop.Step) bool
}

// NewSlidingWindow creates a window of windowSize steps.
// Panics if windowSize < 1.
func NewSlidingWindow(windowSize int) *SlidingWindow {
	if windowSize < 1 {
		panic("gentloop: SlidingWindow windowSize must be >= 1")
	}
	return &SlidingWindow{windowSize: windowSize}
}

// WithPinned returns a window that always keeps the steps pinned reports.
func (s *SlidingWindow) WithPinned(pinned func(gentloop.Step) bool) *SlidingWindow {
	c := *s
	c.pinned = pinned
	return &c
}

// WindowSize returns the number of unpinned steps kept.
func (s *SlidingWindow) WindowSize() int { return s.windowSize }

// Compact implements [Strategy].
func (s *SlidingWindow) Compact(state *gentloop.AgentState) *gentloop.AgentState {
	steps := state.Steps()
	msgs := state.Messages()
	prefix := callerMessages(state, msgs, steps)

	unpinned := 0
	for _, step := range steps {
		if !s.isPinned(step) {
			unpinned++
		}
	}
	if unpinned <= s.windowSize {
		return state
	}

	// Keep the last windowSize unpinned steps and every pinned one, in order.
	drop := unpinned - s.windowSize
	out := append([]llms.MessageContent(nil), msgs[:prefix]...)
	for _, step := range steps {
		if !s.isPinned(step) && drop > 0 {
			drop--
			continue
		}
		out = append(out, step.Output...)
	}

	return state.
		WithMessages(out...).
		WithMetadata(MetadataPrefix, prefix).
		WithMetadata(MetadataStep, len(steps))
}

func (s *SlidingWindow) isPinned(step gentloop.Step) bool {
	return s.pinned != nil && s.pinned(step)
}

// callerMessages returns the number of leading messages not produced by
// steps. Before the first compaction this is whatever precedes the step
// outputs; afterwards it is recorded in metadata.
func callerMessages(state *gentloop.AgentState, msgs []llms.MessageContent, steps []gentloop.Step) int {
	if v, ok := state.MetadataValue(MetadataPrefix); ok {
		return min(max(cast.ToInt(v), 0), len(msgs))
	}
	produced := 0
	for _, step := range steps {
		produced += len(step.Output)
	}
	return max(len(msgs)-produced, 0)
}

// PinErrors pins steps that recorded an error, so the driver keeps seeing
// what went wrong.
func PinErrors(step gentloop.Step) bool {
	return step.HasErrors()
}

var _ Strategy = (*SlidingWindow)(nil)
