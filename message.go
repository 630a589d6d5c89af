package gentloop

import (
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// TextMessage builds a single-part text message.
func TextMessage(role llms.ChatMessageType, text string) llms.MessageContent {
	return llms.TextParts(role, text)
}

// SystemMessage builds a system message.
func SystemMessage(text string) llms.MessageContent {
	return TextMessage(llms.ChatMessageTypeSystem, text)
}

// UserMessage builds a human message.
func UserMessage(text string) llms.MessageContent {
	return TextMessage(llms.ChatMessageTypeHuman, text)
}

// AssistantMessage builds an AI message.
func AssistantMessage(text string) llms.MessageContent {
	return TextMessage(llms.ChatMessageTypeAI, text)
}

// MessageText concatenates the textual parts of a message. Tool call
// responses contribute their content; other parts are skipped.
func MessageText(msg llms.MessageContent) string {
	var parts []string
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			parts = append(parts, p.Text)
		case llms.ToolCallResponse:
			parts = append(parts, p.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// MessagesText joins the text of every message with newlines, skipping
// messages without text.
func MessagesText(msgs []llms.MessageContent) string {
	var out []string
	for _, msg := range msgs {
		if text := MessageText(msg); text != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n")
}
