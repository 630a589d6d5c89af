package config_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/agent"
	"github.com/rickchristie/gentloop/compaction"
	"github.com/rickchristie/gentloop/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, 20, cfg.Budget.MaxSteps)
	assert.Equal(t, "observe", cfg.Loop.RejectionPolicy)
	assert.True(t, cfg.Planner.Enabled)
	assert.Len(t, cfg.LoopOptions(), 2)
	assert.Empty(t, cfg.PlanningOptions())
}

func TestParse(t *testing.T) {
	type expected struct {
		cfg func(t *testing.T, cfg *config.Config)
		err string
	}

	tests := []struct {
		name     string
		input    string
		expected expected
	}{
		{
			name:  "empty document keeps defaults",
			input: "",
			expected: expected{cfg: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, config.Default(), cfg)
			}},
		},
		{
			name: "full document",
			input: `
model:
  provider: openai
  model: gpt-4o
  temperature: 0.2
  max_tokens: 2048
budget:
  max_steps: 8
  max_tokens: 50000
  max_duration: 2m
loop:
  rejection_policy: fail
  timeout: 30s
planner:
  enabled: true
  instructions: ""
  tools: [read_file]
  forbidden_tools: [bash]
  budget:
    max_steps: 4
  fatal_failures: true
log:
  level: debug
  format: text
metrics:
  addr: ":9090"
`,
			expected: expected{cfg: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, gentloop.ModelConfig{
					Provider: "openai", Model: "gpt-4o", Temperature: 0.2, MaxTokens: 2048,
				}, cfg.Model)
				assert.Equal(t, gentloop.ExecutionBudget{
					MaxSteps: 8, MaxTokens: 50000, MaxDuration: 2 * time.Minute,
				}, cfg.Budget)
				assert.Equal(t, 30*time.Second, cfg.Loop.Timeout)
				require.NotNil(t, cfg.Planner.Instructions)
				assert.Empty(t, *cfg.Planner.Instructions)
				assert.Equal(t, []string{"read_file"}, cfg.Planner.Tools)
				assert.Len(t, cfg.PlanningOptions(), 5)
				level, err := cfg.LogLevel()
				require.NoError(t, err)
				assert.Equal(t, slog.LevelDebug, level)
				assert.Equal(t, ":9090", cfg.Metrics.Addr)
			}},
		},
		{
			name:     "unknown field",
			input:    "modle: {}\n",
			expected: expected{err: "field modle not found"},
		},
		{
			name: "every invalid field is reported",
			input: `
budget: {max_steps: -1}
loop: {rejection_policy: retry}
log: {level: loud, format: xml}
`,
			expected: expected{err: strings.Join([]string{
				`loop.rejection_policy: unknown rejection policy "retry"`,
				"budget.max_steps must not be negative",
				`log.level: slog: level string "loud": unknown name`,
				`log.format "xml" is not json or text`,
			}, "\n")},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.Parse(strings.NewReader(tc.input))

			if tc.expected.err != "" {
				assert.ErrorContains(t, err, tc.expected.err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tc.expected.cfg(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gentloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  model: gpt-4o\n"), 0o600))
	t.Setenv("GENTLOOP_MODEL", "")
	t.Setenv("GENTLOOP_LOG_LEVEL", "warn")
	t.Setenv("GENTLOOP_METRICS_ADDR", "")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model.Model)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gentloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  model: gpt-4o\n"), 0o600))
	t.Setenv("GENTLOOP_MODEL", "gpt-4.1")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.Model.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "read config: "))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCompactionCapability(t *testing.T) {
	summarizer := gentloop.DriverFunc(func(context.Context, *gentloop.AgentState) (gentloop.Decision, error) {
		return gentloop.Final("summary"), nil
	})

	tests := []struct {
		name       string
		doc        string
		summarizer gentloop.Driver
		expected   bool
	}{
		{name: "disabled by default", doc: "", expected: false},
		{name: "window only", doc: "compaction:\n  window: 4\n", expected: true},
		{
			name:     "window with triggers",
			doc:      "compaction:\n  window: 4\n  pin_errors: true\n  every_steps: 2\n  min_input_tokens: 8000\n",
			expected: true,
		},
		{
			name:       "summary",
			doc:        "compaction:\n  strategy: summary\n  keep_recent: 2\n  every_steps: 5\n",
			summarizer: summarizer,
			expected:   true,
		},
		{
			name:     "summary without summarizer",
			doc:      "compaction:\n  strategy: summary\n",
			expected: false,
		},
		{
			name:       "summarizer alone does not enable the window",
			doc:        "compaction:\n  strategy: window\n",
			summarizer: summarizer,
			expected:   false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.Parse(strings.NewReader(tc.doc))
			require.NoError(t, err)

			c := cfg.CompactionCapability(tc.summarizer)

			if !tc.expected {
				assert.Nil(t, c)
				return
			}
			require.NotNil(t, c)
			assert.Equal(t, compaction.CapabilityName, c.Name())
		})
	}
}

func TestCompactionCapability_SummaryCompactsWithSummarizer(t *testing.T) {
	var prompts []string
	summarizer := gentloop.DriverFunc(func(_ context.Context, state *gentloop.AgentState) (gentloop.Decision, error) {
		prompts = append(prompts, gentloop.MessagesText(state.Messages()))
		return gentloop.Final("short"), nil
	})
	cfg, err := config.Parse(strings.NewReader(
		"compaction:\n  strategy: summary\n  keep_recent: 1\n  prompt: \"old=%s new=%s\"\n",
	))
	require.NoError(t, err)

	b := agent.New().WithCapability(cfg.CompactionCapability(summarizer))
	entries := b.Hooks().For(gentloop.TriggerBeforeStep)
	require.Len(t, entries, 1)

	state := gentloop.NewAgentState().WithMessages(gentloop.UserMessage("task"))
	for _, out := range []string{"one", "two"} {
		state = state.WithStep(gentloop.Step{
			Output: []llms.MessageContent{gentloop.AssistantMessage(out)},
		})
	}

	next := entries[0].Hook.HandleHook(context.Background(), state, gentloop.TriggerBeforeStep)

	require.Len(t, prompts, 1)
	assert.Equal(t, "old=None (first compaction). new=### Step 1\n\none", prompts[0])
	require.Len(t, next.Messages(), 3)
	assert.Equal(t, "two", gentloop.MessageText(next.Messages()[2]))
}

func TestParse_InvalidCompaction(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected string
	}{
		{name: "negative window", doc: "compaction:\n  window: -1\n", expected: "compaction values must not be negative"},
		{name: "negative keep recent", doc: "compaction:\n  keep_recent: -1\n", expected: "compaction values must not be negative"},
		{name: "unknown strategy", doc: "compaction:\n  strategy: trim\n", expected: `compaction.strategy "trim" is not window or summary`},
		{name: "prompt without verbs", doc: "compaction:\n  prompt: summarize\n", expected: "compaction.prompt must contain exactly two %s verbs"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Parse(strings.NewReader(tc.doc))

			assert.ErrorContains(t, err, tc.expected)
		})
	}
}
