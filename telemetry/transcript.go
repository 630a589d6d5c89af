package telemetry

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rickchristie/gentloop"
	"gopkg.in/yaml.v3"
)

// TranscriptSubscriber writes a readable account of every event as YAML
// documents. Nothing is truncated; it is meant for debugging runs.
type TranscriptSubscriber struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewTranscriptSubscriber creates a subscriber writing to w.
func NewTranscriptSubscriber(w io.Writer) *TranscriptSubscriber {
	return &TranscriptSubscriber{out: w, now: time.Now}
}

// transcriptEntry is the YAML shape of one event.
type transcriptEntry struct {
	Event  string         `yaml:"event"`
	At     string         `yaml:"at"`
	Agent  string         `yaml:"agent"`
	Parent string         `yaml:"parent,omitempty"`
	Fields map[string]any `yaml:"fields,omitempty"`
}

func (s *TranscriptSubscriber) write(name, agent, parent string, fields map[string]any) {
	entry := transcriptEntry{
		Event:  name,
		At:     s.now().Format("2006-01-02 15:04:05.000"),
		Agent:  agent,
		Parent: parent,
		Fields: fields,
	}

	data, err := yaml.Marshal(entry)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		fmt.Fprintf(s.out, "---\n# failed to marshal %s: %v\n", name, err)
		return
	}
	fmt.Fprintf(s.out, "---\n%s", data)
}

func (s *TranscriptSubscriber) OnLoopStart(e *gentloop.LoopStartEvent) {
	s.write(e.EventName(), e.AgentID, e.ParentAgentID, map[string]any{
		"budget":  e.Budget.String(),
		"resumed": e.Resumed,
	})
}

func (s *TranscriptSubscriber) OnStep(e *gentloop.StepEvent) {
	fields := map[string]any{
		"step":     e.Step.Index,
		"decision": string(e.Step.Decision.Kind),
		"status":   string(e.Status),
		"usage":    e.Step.Usage,
	}
	if e.Step.Decision.IsCall() {
		fields["tool"] = e.Step.Decision.Tool
		fields["args"] = e.Step.Decision.Args
	}
	if e.Step.Decision.Text != "" {
		fields["text"] = e.Step.Decision.Text
	}
	if out := strings.TrimSpace(e.Step.OutputText()); out != "" {
		fields["output"] = out
	}
	if e.Step.HasErrors() {
		fields["errors"] = e.Step.ErrorsAsString()
	}
	s.write(e.EventName(), e.AgentID, "", fields)
}

func (s *TranscriptSubscriber) OnCallRejected(e *gentloop.CallRejectedEvent) {
	s.write(e.EventName(), e.AgentID, "", map[string]any{
		"tool":   e.Decision.Tool,
		"args":   e.Decision.Args,
		"reason": e.Reason.Error(),
	})
}

func (s *TranscriptSubscriber) OnBudgetExhausted(e *gentloop.BudgetExhaustedEvent) {
	s.write(e.EventName(), e.AgentID, "", map[string]any{
		"budget": e.Budget.String(),
		"reason": e.Reason,
	})
}

func (s *TranscriptSubscriber) OnLoopEnd(e *gentloop.LoopEndEvent) {
	fields := map[string]any{
		"status":   string(e.Status),
		"steps":    e.Steps,
		"usage":    e.Usage,
		"duration": e.Duration.String(),
	}
	if e.Err != nil {
		fields["error"] = e.Err.Error()
	}
	s.write(e.EventName(), e.AgentID, e.ParentAgentID, fields)
}
