// Package config loads the YAML configuration of the gentloop command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/agent"
	"github.com/rickchristie/gentloop/compaction"
	"github.com/rickchristie/gentloop/executor"
	"github.com/rickchristie/gentloop/subagent"
	"gopkg.in/yaml.v3"
)

const (
	DefaultProvider = "openai"
	DefaultModel    = "gpt-4o-mini"
	DefaultMaxSteps = 20
	DefaultTimeout  = 5 * time.Minute
	DefaultLogLevel = "info"
)

type Config struct {
	Model      gentloop.ModelConfig     `yaml:"model"`
	Budget     gentloop.ExecutionBudget `yaml:"budget"`
	Loop       LoopConfig               `yaml:"loop"`
	Planner    PlannerConfig            `yaml:"planner"`
	Compaction CompactionConfig         `yaml:"compaction"`
	Log        LogConfig                `yaml:"log"`
	Metrics    MetricsConfig            `yaml:"metrics"`
}

type LoopConfig struct {
	// RejectionPolicy is one of "observe", "finish" or "fail".
	RejectionPolicy          string        `yaml:"rejection_policy"`
	MaxConsecutiveRejections int           `yaml:"max_consecutive_rejections"`
	Timeout                  time.Duration `yaml:"timeout"`
}

// PlannerConfig configures the planning subagent capability.
type PlannerConfig struct {
	Enabled bool `yaml:"enabled"`

	// Instructions replaces the instructions added to the parent's system
	// prompt. Nil keeps the default; an empty string adds none.
	Instructions *string `yaml:"instructions"`

	SystemPrompt   string                   `yaml:"system_prompt"`
	Tools          []string                 `yaml:"tools"`
	ForbiddenTools []string                 `yaml:"forbidden_tools"`
	Budget         gentloop.ExecutionBudget `yaml:"budget"`
	Model          gentloop.ModelConfig     `yaml:"model"`
	FatalFailures  bool                     `yaml:"fatal_failures"`
}

// Compaction strategies.
const (
	CompactionWindow  = "window"
	CompactionSummary = "summary"
)

// CompactionConfig configures how the conversation is shortened between
// steps. The window strategy is disabled by a zero Window; the summary
// strategy is enabled by naming it.
type CompactionConfig struct {
	// Strategy is "window" (the default) or "summary".
	Strategy string `yaml:"strategy"`

	Window int `yaml:"window"`

	// KeepRecent is the number of steps the summary strategy keeps verbatim.
	KeepRecent int `yaml:"keep_recent"`

	// Prompt replaces the summarization prompt. It takes two %s verbs: the
	// existing summary and the steps to add.
	Prompt string `yaml:"prompt"`

	// PinErrors keeps steps that recorded an error out of compaction.
	PinErrors bool `yaml:"pin_errors"`

	// EverySteps and MinInputTokens select when to compact; either one
	// firing is enough. With neither set compaction runs before every step.
	EverySteps     int `yaml:"every_steps"`
	MinInputTokens int `yaml:"min_input_tokens"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model: gentloop.ModelConfig{
			Provider: DefaultProvider,
			Model:    DefaultModel,
		},
		Budget: gentloop.ExecutionBudget{MaxSteps: DefaultMaxSteps},
		Loop: LoopConfig{
			RejectionPolicy:          executor.RejectObserve.String(),
			MaxConsecutiveRejections: executor.DefaultMaxConsecutiveRejections,
			Timeout:                  DefaultTimeout,
		},
		Planner: PlannerConfig{Enabled: true},
		Log:     LogConfig{Level: DefaultLogLevel, Format: "json"},
	}
}

// Load reads the file at path over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads YAML from r over the defaults without environment overrides.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if model := os.Getenv("GENTLOOP_MODEL"); model != "" {
		c.Model.Model = model
	}
	if level := os.Getenv("GENTLOOP_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if addr := os.Getenv("GENTLOOP_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := executor.ParseRejectionPolicy(c.Loop.RejectionPolicy); err != nil {
		errs = append(errs, fmt.Errorf("loop.rejection_policy: %w", err))
	}
	if c.Loop.MaxConsecutiveRejections < 0 {
		errs = append(errs, errors.New("loop.max_consecutive_rejections must not be negative"))
	}
	if c.Loop.Timeout < 0 {
		errs = append(errs, errors.New("loop.timeout must not be negative"))
	}
	errs = append(errs, c.Compaction.validate()...)
	errs = append(errs, validateBudget("budget", c.Budget)...)
	errs = append(errs, validateBudget("planner.budget", c.Planner.Budget)...)
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature %v is outside [0, 2]", c.Model.Temperature))
	}
	if c.Model.MaxTokens < 0 {
		errs = append(errs, errors.New("model.max_tokens must not be negative"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

func validateBudget(field string, b gentloop.ExecutionBudget) []error {
	var errs []error
	if b.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("%s.max_steps must not be negative", field))
	}
	if b.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("%s.max_tokens must not be negative", field))
	}
	if b.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("%s.max_duration must not be negative", field))
	}
	return errs
}

// LogLevel parses Log.Level. An empty level is info.
func (c *Config) LogLevel() (slog.Level, error) {
	text := strings.TrimSpace(c.Log.Level)
	if text == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// LoopOptions returns the executor options the configuration selects.
func (c *Config) LoopOptions() []executor.Option {
	policy, _ := executor.ParseRejectionPolicy(c.Loop.RejectionPolicy)
	opts := []executor.Option{executor.WithRejectionPolicy(policy)}
	if c.Loop.MaxConsecutiveRejections > 0 {
		opts = append(opts, executor.WithMaxConsecutiveRejections(c.Loop.MaxConsecutiveRejections))
	}
	return opts
}

// PlanningOptions returns the planning capability options the configuration
// selects.
func (c *Config) PlanningOptions() []subagent.PlanningOption {
	p := c.Planner
	var opts []subagent.PlanningOption
	if p.Instructions != nil {
		opts = append(opts, subagent.WithParentInstructions(*p.Instructions))
	}
	if strings.TrimSpace(p.SystemPrompt) != "" {
		opts = append(opts, subagent.WithPlannerSystemPrompt(p.SystemPrompt))
	}
	if len(p.Tools) > 0 {
		opts = append(opts, subagent.WithPlannerTools(p.Tools...))
	}
	if len(p.ForbiddenTools) > 0 {
		opts = append(opts, subagent.WithPlannerForbiddenTools(p.ForbiddenTools...))
	}
	if !p.Budget.IsEmpty() {
		opts = append(opts, subagent.WithPlannerBudget(p.Budget))
	}
	if !p.Model.IsZero() {
		opts = append(opts, subagent.WithPlannerModelConfig(gentloop.StaticModelConfig(p.Model)))
	}
	if p.FatalFailures {
		opts = append(opts, subagent.WithFatalPlannerFailures())
	}
	return opts
}

func (cc CompactionConfig) validate() []error {
	var errs []error
	switch cc.Strategy {
	case "", CompactionWindow, CompactionSummary:
	default:
		errs = append(errs, fmt.Errorf("compaction.strategy %q is not window or summary", cc.Strategy))
	}
	if cc.Window < 0 || cc.KeepRecent < 0 || cc.EverySteps < 0 || cc.MinInputTokens < 0 {
		errs = append(errs, errors.New("compaction values must not be negative"))
	}
	if cc.Prompt != "" && strings.Count(cc.Prompt, "%s") != 2 {
		errs = append(errs, errors.New("compaction.prompt must contain exactly two %s verbs"))
	}
	return errs
}

// CompactionCapability returns the compaction capability the configuration
// selects, or nil when compaction is disabled. The summary strategy writes
// its summaries with summarizer and is disabled without one.
func (c *Config) CompactionCapability(summarizer gentloop.Driver) agent.Capability {
	cc := c.Compaction
	var pinned func(gentloop.Step) bool
	if cc.PinErrors {
		pinned = compaction.PinErrors
	}

	var strategy compaction.Strategy
	switch cc.Strategy {
	case CompactionSummary:
		if summarizer == nil {
			return nil
		}
		s := compaction.NewSummarization(summarizer).WithKeepRecent(cc.KeepRecent).WithPinned(pinned)
		if cc.Prompt != "" {
			s = s.WithPrompt(cc.Prompt)
		}
		strategy = s
	default:
		if cc.Window <= 0 {
			return nil
		}
		strategy = compaction.NewSlidingWindow(cc.Window).WithPinned(pinned)
	}

	var triggers []compaction.Trigger
	if cc.EverySteps > 0 {
		triggers = append(triggers, compaction.StepsSinceCompaction(cc.EverySteps))
	}
	if cc.MinInputTokens > 0 {
		triggers = append(triggers, compaction.LastInputTokens(cc.MinInputTokens))
	}
	var trigger compaction.Trigger
	if len(triggers) > 0 {
		trigger = compaction.Any(triggers...)
	}
	return compaction.UseCompaction(strategy, trigger)
}
