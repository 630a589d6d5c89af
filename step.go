package gentloop

import (
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Step is the immutable record of one loop iteration.
type Step struct {
	// Index is the 1-based position of the step in its state's history.
	Index int

	// Decision is what the driver proposed.
	Decision Decision

	// Executions holds the tool calls that ran during this step (zero or one).
	Executions []ToolExecution

	// Output holds the messages this step appended to the conversation.
	Output []llms.MessageContent

	// Usage is the token usage attributed to this step.
	Usage Usage

	// Duration is the wall-clock time the step took.
	Duration time.Duration

	// Err is a step-level failure: a driver error or the reason a proposed
	// call was rejected. Tool errors live on Executions.
	Err error
}

// Errors returns the step-level error followed by every tool execution error.
func (s *Step) Errors() []error {
	var errs []error
	if s.Err != nil {
		errs = append(errs, s.Err)
	}
	for _, exec := range s.Executions {
		if exec.Err != nil {
			errs = append(errs, exec.Err)
		}
	}
	return errs
}

// HasErrors reports whether the step recorded any error.
func (s *Step) HasErrors() bool {
	return len(s.Errors()) > 0
}

// ErrorsAsString joins all error messages with "; ".
func (s *Step) ErrorsAsString() string {
	errs := s.Errors()
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// OutputText returns the text of the step's output messages.
func (s *Step) OutputText() string {
	return MessagesText(s.Output)
}
