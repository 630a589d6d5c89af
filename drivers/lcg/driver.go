// Package lcg drives agent loops with a langchaingo [llms.Model].
//
// The driver sends the state's system prompt and conversation to the model
// together with the definitions of the tools the loop runs with, and turns
// the first tool call of the reply into a call decision. A reply without tool
// calls is the final answer.
//
//	llm, _ := openai.New(openai.WithModel("gpt-4o-mini"))
//	loop := executor.New(lcg.New(llm), tools)
package lcg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/toolchain"
	"github.com/spf13/cast"
	"github.com/tmc/langchaingo/llms"
)

// ErrNoChoices is returned when the model reply holds no choice.
var ErrNoChoices = errors.New("lcg: model returned no choices")

// Driver is a [gentloop.Driver] backed by an llms.Model. It is immutable;
// With* methods return copies.
type Driver struct {
	model   llms.Model
	tools   []llms.Tool
	config  gentloop.ModelConfig
	options []llms.CallOption
}

// New creates a driver for model.
func New(model llms.Model) *Driver {
	return &Driver{model: model}
}

// WithTools implements gentloop.ToolAware.
func (d *Driver) WithTools(tools []gentloop.Tool) gentloop.Driver {
	c := *d
	c.tools = toolchain.NewRegistry(tools...).Definitions()
	return &c
}

// WithModelConfig implements gentloop.ModelConfigurable.
func (d *Driver) WithModelConfig(cfg gentloop.ModelConfig) gentloop.Driver {
	c := *d
	c.config = cfg
	return &c
}

// WithCallOptions returns a copy of the driver passing opts on every call,
// after the options derived from the model configuration.
func (d *Driver) WithCallOptions(opts ...llms.CallOption) *Driver {
	c := *d
	c.options = append(append([]llms.CallOption(nil), d.options...), opts...)
	return &c
}

// Unwrap returns the underlying llms.Model.
func (d *Driver) Unwrap() llms.Model { return d.model }

// ModelConfig returns the configuration applied to calls.
func (d *Driver) ModelConfig() gentloop.ModelConfig { return d.config }

// Decide implements gentloop.Driver.
func (d *Driver) Decide(ctx context.Context, state *gentloop.AgentState) (gentloop.Decision, error) {
	resp, err := d.model.GenerateContent(ctx, d.messages(state), d.callOptions()...)
	if err != nil {
		return gentloop.Decision{}, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return gentloop.Decision{}, ErrNoChoices
	}

	choice := resp.Choices[0]
	usage := usageOf(choice.GenerationInfo)

	if len(choice.ToolCalls) > 0 {
		call := choice.ToolCalls[0]
		if call.FunctionCall == nil {
			return gentloop.Decision{}, fmt.Errorf("tool call %q has no function", call.ID)
		}
		args, err := decodeArguments(call.FunctionCall.Arguments)
		if err != nil {
			return gentloop.Decision{}, fmt.Errorf("tool call %q: %w", call.FunctionCall.Name, err)
		}
		decision := gentloop.Call(call.FunctionCall.Name, args)
		decision.Text = choice.Content
		return decision.WithUsage(usage), nil
	}

	return gentloop.Final(choice.Content).WithUsage(usage), nil
}

func (d *Driver) messages(state *gentloop.AgentState) []llms.MessageContent {
	msgs := state.Messages()
	prompt := strings.TrimSpace(state.SystemPrompt())
	if prompt == "" {
		return msgs
	}
	return append([]llms.MessageContent{gentloop.SystemMessage(prompt)}, msgs...)
}

func (d *Driver) callOptions() []llms.CallOption {
	var opts []llms.CallOption
	if d.config.Model != "" {
		opts = append(opts, llms.WithModel(d.config.Model))
	}
	if d.config.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(d.config.Temperature))
	}
	if d.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(d.config.MaxTokens))
	}
	if len(d.tools) > 0 {
		opts = append(opts, llms.WithTools(d.tools))
	}
	return append(opts, d.options...)
}

// decodeArguments parses the JSON arguments of a tool call. Models
// occasionally send an empty string for tools without parameters.
func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("failed to decode arguments: %w", err)
	}
	return args, nil
}

// usageOf reads token counts from a choice's generation info. Providers use
// different keys for the same numbers.
func usageOf(info map[string]any) gentloop.Usage {
	if info == nil {
		return gentloop.Usage{}
	}
	return gentloop.Usage{
		// OpenAI, Ollama / Anthropic / Google, Bedrock
		InputTokens: firstInt(info, "PromptTokens", "InputTokens", "input_tokens"),
		// OpenAI, Ollama / Anthropic / Google, Bedrock
		OutputTokens: firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens"),
	}
}

func firstInt(info map[string]any, keys ...string) int {
	for _, key := range keys {
		if v, ok := info[key]; ok {
			if n := cast.ToInt(v); n > 0 {
				return n
			}
		}
	}
	return 0
}

var (
	_ gentloop.ModelConfigurable = (*Driver)(nil)
	_ gentloop.ToolAware         = (*Driver)(nil)
)
