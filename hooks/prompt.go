package hooks

import (
	"context"
	"strings"

	"github.com/rickchristie/gentloop"
)

// AppendSystemPrompt returns a hook that appends text to the system prompt,
// separated by a blank line. The hook is a no-op when the prompt already
// contains text, so resumed loops do not accumulate copies.
func AppendSystemPrompt(text string) gentloop.Hook {
	text = strings.TrimSpace(text)
	return gentloop.HookFunc(func(
		_ context.Context,
		state *gentloop.AgentState,
		_ gentloop.HookTrigger,
	) *gentloop.AgentState {
		if text == "" {
			return state
		}
		prompt := state.SystemPrompt()
		if strings.Contains(prompt, text) {
			return state
		}
		if strings.TrimSpace(prompt) == "" {
			return state.WithSystemPrompt(text)
		}
		return state.WithSystemPrompt(strings.TrimRight(prompt, "\n") + "\n\n" + text)
	})
}
