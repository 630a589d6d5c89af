package tt

import (
	"testing"

	"github.com/rickchristie/gentloop"
	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"
)

// -----------------------------------------------------------------------------
// Message Helpers
// -----------------------------------------------------------------------------

// ToolResponses returns the content of every tool response in msgs.
func ToolResponses(msgs []llms.MessageContent) []string {
	var out []string
	for _, msg := range msgs {
		for _, part := range msg.Parts {
			if resp, ok := part.(llms.ToolCallResponse); ok {
				out = append(out, resp.Content)
			}
		}
	}
	return out
}

// ToolCalls returns every tool call requested in msgs.
func ToolCalls(msgs []llms.MessageContent) []llms.ToolCall {
	var out []llms.ToolCall
	for _, msg := range msgs {
		for _, part := range msg.Parts {
			if call, ok := part.(llms.ToolCall); ok {
				out = append(out, call)
			}
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// State Assertions
// -----------------------------------------------------------------------------

// AssertStatus asserts the state's status and, on mismatch, reports its error.
func AssertStatus(t *testing.T, expected gentloop.Status, state *gentloop.AgentState) {
	t.Helper()
	assert.Equal(t, expected, state.Status(), "state error: %v", state.Err())
}

// AssertStepKinds asserts the decision kind of each step in order.
func AssertStepKinds(t *testing.T, state *gentloop.AgentState, expected ...gentloop.DecisionKind) {
	t.Helper()
	var kinds []gentloop.DecisionKind
	for _, step := range state.Steps() {
		kinds = append(kinds, step.Decision.Kind)
	}
	assert.Equal(t, expected, kinds)
}
