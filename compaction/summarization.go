package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/rickchristie/gentloop"
	"github.com/spf13/cast"
	"github.com/tmc/langchaingo/llms"
)

// Metadata keys written by [Summarization].
const (
	// MetadataSummary holds the text of the current summary.
	MetadataSummary = "compaction:summary"

	// MetadataSummarized holds the number of leading steps the summary
	// covers. Pinned steps among them are kept verbatim, not summarized.
	MetadataSummarized = "compaction:summarized"
)

// ContextStrategy is a [Strategy] that needs a context, usually because it
// calls a model. [Hook] prefers CompactContext when a strategy has it.
type ContextStrategy interface {
	Strategy
	CompactContext(ctx context.Context, state *gentloop.AgentState) *gentloop.AgentState
}

// Summarization replaces older steps with a summary written by a driver.
// The last KeepRecent unpinned steps stay verbatim; with KeepRecent 0 every
// unpinned step is summarized. Later compactions extend the existing summary
// instead of starting over.
//
// The compacted conversation is ordered as
//
//	[caller messages] [summary] [pinned steps...] [recent steps...]
//
// Pinned steps lose their position relative to the summarized ones: a single
// summary cannot sit both before and after them. The summary comes first so
// the driver reads the narrative before the details it refers to, and recent
// steps come last.
//
// The driver is asked once per compaction with a fresh state holding only
// the prompt. A final decision's text becomes the summary. If the driver
// fails or proposes a tool call the state is left as it was, so the next
// trigger retries.
//
//	strategy := compaction.NewSummarization(driver).WithKeepRecent(4)
type Summarization struct {
	driver     gentloop.Driver
	keepRecent int
	prompt     string
	pinned     func(gentloop.Step) bool
}

// NewSummarization creates a strategy summarizing with driver. A cheaper
// model than the agent's works well here.
func NewSummarization(driver gentloop.Driver) *Summarization {
	return &Summarization{driver: driver, prompt: DefaultSummarizationPrompt}
}

// WithKeepRecent returns a strategy keeping the last n unpinned steps.
// Negative values are treated as 0.
func (s *Summarization) WithKeepRecent(n int) *Summarization {
	c := *s
	c.keepRecent = max(n, 0)
	return &c
}

// WithPrompt returns a strategy using prompt. The prompt is formatted with
// fmt.Sprintf and two %s verbs: the existing summary, then the steps to add.
func (s *Summarization) WithPrompt(prompt string) *Summarization {
	c := *s
	c.prompt = prompt
	return &c
}

// WithPinned returns a strategy that never summarizes the steps pinned
// reports.
func (s *Summarization) WithPinned(pinned func(gentloop.Step) bool) *Summarization {
	c := *s
	c.pinned = pinned
	return &c
}

// KeepRecent returns the number of unpinned steps kept verbatim.
func (s *Summarization) KeepRecent() int { return s.keepRecent }

// DefaultSummarizationPrompt frames the summary as a handoff to another
// instance of the agent, which tends to keep more operational detail than
// asking for a plain summary.
const DefaultSummarizationPrompt = `You are writing a checkpoint for an AI ` +
	`agent. Another instance will continue the work from your summary and ` +
	`the few steps kept after it, so nothing it needs may be lost.

## Existing Summary

%s

## New Activity

%s

## Output

Write these sections, with more detail for recent activity than for ` +
	`finished work:

### Task
The user's request and any later refinements. Quote recent requests ` +
	`verbatim.

### Progress
What is done. Keep exact file paths, names, values and error messages.

### Findings
Decisions made and constraints discovered that affect the next steps.

### Current State
What the agent was doing right before this checkpoint, in full detail.

### Remaining Work
Pending work that was asked for. Do not plan beyond the request.

Extend the existing summary instead of repeating it. Do not write a ` +
	`conclusion: the work continues after this checkpoint. Write only the ` +
	`sections.`

// Compact implements [Strategy] with a background context.
func (s *Summarization) Compact(state *gentloop.AgentState) *gentloop.AgentState {
	return s.CompactContext(context.Background(), state)
}

// CompactContext implements [ContextStrategy].
func (s *Summarization) CompactContext(ctx context.Context, state *gentloop.AgentState) *gentloop.AgentState {
	steps := state.Steps()
	msgs := state.Messages()
	prefix := callerMessages(state, msgs, steps)
	covered := 0
	if v, ok := state.MetadataValue(MetadataSummarized); ok {
		covered = min(max(cast.ToInt(v), 0), len(steps))
	}

	var pinned, fresh []int
	for i, step := range steps {
		switch {
		case s.isPinned(step):
			pinned = append(pinned, i)
		case i >= covered:
			fresh = append(fresh, i)
		}
	}
	if len(fresh) <= s.keepRecent {
		return state
	}
	split := len(fresh) - s.keepRecent
	toSummarize, toKeep := fresh[:split], fresh[split:]

	existing := cast.ToString(metadataOr(state, MetadataSummary))
	summary, ok := s.summarize(ctx, existing, steps, toSummarize)
	if !ok {
		return state
	}

	out := append([]llms.MessageContent(nil), msgs[:prefix]...)
	out = append(out, gentloop.UserMessage(summaryMessage(summary)))
	for _, i := range pinned {
		out = append(out, steps[i].Output...)
	}
	for _, i := range toKeep {
		out = append(out, steps[i].Output...)
	}

	return state.
		WithMessages(out...).
		WithMetadata(MetadataPrefix, prefix).
		WithMetadata(MetadataStep, len(steps)).
		WithMetadata(MetadataSummary, summary).
		WithMetadata(MetadataSummarized, toSummarize[len(toSummarize)-1]+1)
}

func (s *Summarization) summarize(
	ctx context.Context,
	existing string,
	steps []gentloop.Step,
	indexes []int,
) (string, bool) {
	if strings.TrimSpace(existing) == "" {
		existing = "None (first compaction)."
	}
	var b strings.Builder
	for n, i := range indexes {
		fmt.Fprintf(&b, "### Step %d\n\n", i+1)
		b.WriteString(stepText(steps[i]))
		if n < len(indexes)-1 {
			b.WriteString("\n\n")
		}
	}

	request := gentloop.NewAgentState().
		WithMessages(gentloop.UserMessage(fmt.Sprintf(s.prompt, existing, b.String())))
	decision, err := s.driver.Decide(ctx, request)
	if err != nil || !decision.IsFinal() {
		return "", false
	}
	text := strings.TrimSpace(decision.Text)
	return text, text != ""
}

func (s *Summarization) isPinned(step gentloop.Step) bool {
	return s.pinned != nil && s.pinned(step)
}

// stepText renders the text of a step's output. Non-text parts are dropped.
func stepText(step gentloop.Step) string {
	var lines []string
	if step.Decision.IsCall() {
		lines = append(lines, fmt.Sprintf("Called %s.", step.Decision.Tool))
	}
	if text := strings.TrimSpace(gentloop.MessagesText(step.Output)); text != "" {
		lines = append(lines, text)
	}
	if step.Err != nil {
		lines = append(lines, "Error: "+step.Err.Error())
	}
	return strings.Join(lines, "\n")
}

func summaryMessage(summary string) string {
	return "Summary of the earlier steps:\n\n" + summary
}

func metadataOr(state *gentloop.AgentState, key string) any {
	v, _ := state.MetadataValue(key)
	return v
}

var _ ContextStrategy = (*Summarization)(nil)
