package executor

import (
	"fmt"

	"github.com/rickchristie/gentloop"
)

// RejectionPolicy decides what a loop does with a call decision whose
// arguments failed validation.
type RejectionPolicy int

const (
	// RejectObserve appends a step that tells the driver its call was invalid
	// and asks again. After MaxConsecutiveRejections rejected steps in a row
	// the loop fails.
	RejectObserve RejectionPolicy = iota

	// RejectFinish treats the decision's text as the final answer and
	// succeeds.
	RejectFinish

	// RejectFail fails the loop on the first rejected call.
	RejectFail
)

// DefaultMaxConsecutiveRejections bounds how many rejected calls in a row
// RejectObserve tolerates.
const DefaultMaxConsecutiveRejections = 3

func (p RejectionPolicy) String() string {
	switch p {
	case RejectObserve:
		return "observe"
	case RejectFinish:
		return "finish"
	case RejectFail:
		return "fail"
	default:
		return fmt.Sprintf("RejectionPolicy(%d)", int(p))
	}
}

// ParseRejectionPolicy parses the names returned by RejectionPolicy.String.
// An empty name selects RejectObserve.
func ParseRejectionPolicy(name string) (RejectionPolicy, error) {
	switch name {
	case "", "observe":
		return RejectObserve, nil
	case "finish":
		return RejectFinish, nil
	case "fail":
		return RejectFail, nil
	default:
		return RejectObserve, fmt.Errorf("unknown rejection policy %q", name)
	}
}

// Option configures a [Loop].
type Option func(*Loop)

// WithRejectionPolicy selects how rejected calls are handled.
func WithRejectionPolicy(policy RejectionPolicy) Option {
	return func(l *Loop) {
		l.policy = policy
	}
}

// WithMaxConsecutiveRejections sets the RejectObserve tolerance. Values
// below 1 are ignored.
func WithMaxConsecutiveRejections(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxRejections = n
		}
	}
}

// WithTimeProvider sets the clock used to measure steps.
func WithTimeProvider(tp gentloop.TimeProvider) Option {
	return func(l *Loop) {
		if tp != nil {
			l.clock = tp
		}
	}
}

// WithIDGenerator sets the generator for tool call ids.
func WithIDGenerator(fn func() string) Option {
	return func(l *Loop) {
		if fn != nil {
			l.newID = fn
		}
	}
}
