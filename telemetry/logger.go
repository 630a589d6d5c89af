// Package telemetry observes agent loops through their events: structured
// logs, Prometheus metrics and human-readable transcripts.
package telemetry

import (
	"io"
	"log/slog"
	"os"

	"github.com/rickchristie/gentloop"
)

// NewLogger creates a structured logger writing JSON, or text when format
// is "text".
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// LogSubscriber logs loop events. Steps and tool executions are logged at
// debug level, loop boundaries at info, failures at warn and error.
type LogSubscriber struct {
	logger *slog.Logger
}

// NewLogSubscriber creates a subscriber logging to logger, or to the default
// logger when nil.
func NewLogSubscriber(logger *slog.Logger) *LogSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSubscriber{logger: logger}
}

func (s *LogSubscriber) agent(id, parent string) *slog.Logger {
	if parent == "" {
		return s.logger.With(slog.String("agent_id", id))
	}
	return s.logger.With(slog.String("agent_id", id), slog.String("parent_agent_id", parent))
}

func (s *LogSubscriber) OnLoopStart(e *gentloop.LoopStartEvent) {
	s.agent(e.AgentID, e.ParentAgentID).Info("loop started",
		slog.String("budget", e.Budget.String()),
		slog.Bool("resumed", e.Resumed),
	)
}

func (s *LogSubscriber) OnStep(e *gentloop.StepEvent) {
	attrs := []any{
		slog.Int("step", e.Step.Index),
		slog.String("decision", string(e.Step.Decision.Kind)),
		slog.String("status", string(e.Status)),
		slog.Duration("duration", e.Step.Duration),
		slog.Int("input_tokens", e.Step.Usage.InputTokens),
		slog.Int("output_tokens", e.Step.Usage.OutputTokens),
	}
	if e.Step.Decision.IsCall() {
		attrs = append(attrs, slog.String("tool", e.Step.Decision.Tool))
	}
	if e.Step.HasErrors() {
		attrs = append(attrs, slog.String("error", e.Step.ErrorsAsString()))
	}
	s.logger.With(slog.String("agent_id", e.AgentID)).Debug("step", attrs...)
}

func (s *LogSubscriber) OnToolExecution(e *gentloop.ToolExecutionEvent) {
	logger := s.logger.With(slog.String("agent_id", e.AgentID))
	attrs := []any{
		slog.Int("step", e.StepIndex),
		slog.String("tool", e.Execution.Call.Name),
		slog.String("call_id", e.Execution.Call.ID),
		slog.Duration("duration", e.Duration),
	}
	if e.Execution.HasError() {
		attrs = append(attrs, slog.Any("error", e.Execution.Err))
		logger.Warn("tool failed", attrs...)
		return
	}
	logger.Debug("tool executed", attrs...)
}

func (s *LogSubscriber) OnCallRejected(e *gentloop.CallRejectedEvent) {
	s.logger.Warn("tool call rejected",
		slog.String("agent_id", e.AgentID),
		slog.String("tool", e.Decision.Tool),
		slog.Any("reason", e.Reason),
	)
}

func (s *LogSubscriber) OnBudgetExhausted(e *gentloop.BudgetExhaustedEvent) {
	s.logger.Info("budget exhausted",
		slog.String("agent_id", e.AgentID),
		slog.String("budget", e.Budget.String()),
		slog.String("reason", e.Reason),
	)
}

func (s *LogSubscriber) OnLoopEnd(e *gentloop.LoopEndEvent) {
	logger := s.agent(e.AgentID, e.ParentAgentID)
	attrs := []any{
		slog.String("status", string(e.Status)),
		slog.Int("steps", e.Steps),
		slog.Int("tokens", e.Usage.Total()),
		slog.Duration("duration", e.Duration),
	}
	if e.Status == gentloop.StatusFailed {
		attrs = append(attrs, slog.Any("error", e.Err))
		logger.Error("loop failed", attrs...)
		return
	}
	logger.Info("loop ended", attrs...)
}
