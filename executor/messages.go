package executor

import (
	"encoding/json"
	"fmt"

	"github.com/rickchristie/gentloop"
	"github.com/tmc/langchaingo/llms"
)

// FormatResult renders a tool's return value for the conversation. Strings
// pass through, other values are encoded as JSON.
func FormatResult(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}

// callMessages records an executed call: the assistant turn carrying the call
// and the tool turn carrying its outcome.
func callMessages(decision gentloop.Decision, exec gentloop.ToolExecution) []llms.MessageContent {
	arguments, err := json.Marshal(exec.Call.Args)
	if err != nil {
		arguments = []byte("{}")
	}

	var parts []llms.ContentPart
	if decision.Text != "" {
		parts = append(parts, llms.TextContent{Text: decision.Text})
	}
	parts = append(parts, llms.ToolCall{
		ID:   exec.Call.ID,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      exec.Call.Name,
			Arguments: string(arguments),
		},
	})

	content := FormatResult(exec.Value)
	if exec.Err != nil {
		content = "Error: " + exec.Err.Error()
	}

	return []llms.MessageContent{
		{Role: llms.ChatMessageTypeAI, Parts: parts},
		{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: exec.Call.ID,
				Name:       exec.Call.Name,
				Content:    content,
			}},
		},
	}
}

// rejectionMessages tells the driver its proposed call was not executed.
func rejectionMessages(decision gentloop.Decision, reason error) []llms.MessageContent {
	var out []llms.MessageContent
	if decision.Text != "" {
		out = append(out, gentloop.AssistantMessage(decision.Text))
	}
	return append(out, gentloop.UserMessage(fmt.Sprintf(
		"Invalid call to %q, it was not executed: %v. Fix the arguments and try again, or give a final answer.",
		decision.Tool, reason,
	)))
}

// finalMessages records a final answer.
func finalMessages(text string) []llms.MessageContent {
	if text == "" {
		return nil
	}
	return []llms.MessageContent{gentloop.AssistantMessage(text)}
}
