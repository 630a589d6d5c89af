package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/agent"
	"github.com/rickchristie/gentloop/config"
	"github.com/rickchristie/gentloop/drivers/lcg"
	"github.com/rickchristie/gentloop/drivers/scripted"
	"github.com/rickchristie/gentloop/events"
	"github.com/rickchristie/gentloop/executor"
	"github.com/rickchristie/gentloop/session"
	"github.com/rickchristie/gentloop/subagent"
	"github.com/rickchristie/gentloop/telemetry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type runOptions struct {
	scenario     string
	input        string
	systemPrompt string
	workdir      string
	metricsAddr  string
	transcript   string
	output       string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an agent on a task",
		Long: `Runs an agent with file tools and a planning subagent until it answers.

With --scenario the decisions are replayed from a YAML file. Otherwise the
configured model provider is used: "openai" reads OPENAI_API_KEY and
OPENAI_BASE_URL, "github" (GitHub Models) reads GITHUB_TOKEN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if opts.metricsAddr != "" {
				cfg.Metrics.Addr = opts.metricsAddr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runAgent(ctx, cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "YAML file of scripted decisions")
	cmd.Flags().StringVar(&opts.input, "input", "", "Task given to the agent")
	cmd.Flags().StringVar(&opts.systemPrompt, "system-prompt", "", "System prompt of the agent")
	cmd.Flags().StringVar(&opts.workdir, "workdir", ".", "Directory the file tools may read")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.transcript, "transcript", "", "Write a YAML transcript of all events to this file")
	cmd.Flags().StringVar(&opts.output, "output", "text", "Result format: text or yaml")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// agentEnv is an assembled agent loop with the resources it holds open.
type agentEnv struct {
	loop    *executor.Loop
	logger  *slog.Logger
	closers []func()
}

func (e *agentEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// newAgentEnv wires logging, events, metrics and the driver into a loop.
func newAgentEnv(cfg *config.Config, opts runOptions, stderr io.Writer) (*agentEnv, error) {
	level, _ := cfg.LogLevel()
	env := &agentEnv{logger: telemetry.NewLogger(stderr, level, cfg.Log.Format)}

	registry := events.NewRegistry().Subscribe(telemetry.NewLogSubscriber(env.logger))

	if opts.transcript != "" {
		f, err := os.Create(opts.transcript)
		if err != nil {
			return nil, fmt.Errorf("failed to create transcript: %w", err)
		}
		env.closers = append(env.closers, func() { _ = f.Close() })
		registry.Subscribe(telemetry.NewTranscriptSubscriber(f))
	}

	if cfg.Metrics.Addr != "" {
		metrics := telemetry.NewMetricsSubscriber()
		registry.Subscribe(metrics)
		stop, err := serveMetrics(cfg.Metrics.Addr, metrics, env.logger)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.closers = append(env.closers, stop)
	}

	driver, err := newDriver(cfg, opts.scenario)
	if err != nil {
		env.Close()
		return nil, err
	}

	caps := []agent.Capability{
		agent.UseDriver(driver),
		agent.UseTools(workspaceTools(opts.workdir)...),
		agent.UseBudget(cfg.Budget),
		agent.UseEvents(registry),
		agent.UseLoopOptions(cfg.LoopOptions()...),
	}
	if cfg.Planner.Enabled {
		caps = append(caps, subagent.UsePlanningSubagent(cfg.PlanningOptions()...))
	}
	if c := cfg.CompactionCapability(driver); c != nil {
		caps = append(caps, c)
	}
	env.loop = agent.New().WithCapability(caps...).Build()
	return env, nil
}

// initialState returns the state a new session starts from.
func initialState(cfg *config.Config, opts runOptions) *gentloop.AgentState {
	state := gentloop.NewAgentState().WithModelConfig(cfg.Model)
	if opts.systemPrompt != "" {
		state = state.WithSystemPrompt(opts.systemPrompt)
	}
	return state
}

// withTimeout bounds ctx by the configured loop timeout, if any.
func withTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Loop.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Loop.Timeout)
	}
	return context.WithCancel(ctx)
}

func runAgent(ctx context.Context, cfg *config.Config, opts runOptions, stdout, stderr io.Writer) error {
	env, err := newAgentEnv(cfg, opts, stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	state := initialState(cfg, opts).WithMessages(gentloop.UserMessage(opts.input))

	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()

	manager := session.NewManager(session.NewMemoryStore())
	s, err := manager.Create(ctx, "cli", state)
	if err != nil {
		return err
	}
	s, err = manager.Run(ctx, s.ID(), env.loop)
	if err != nil {
		return err
	}

	if err := writeResult(stdout, opts.output, s); err != nil {
		return err
	}
	if s.State().Status() == gentloop.StatusFailed {
		return fmt.Errorf("agent failed: %w", s.State().Err())
	}
	return nil
}

// newDriver returns the scripted driver of scenarioPath, or a model driver
// for the configured provider when no scenario is given.
func newDriver(cfg *config.Config, scenarioPath string) (gentloop.Driver, error) {
	if scenarioPath != "" {
		scenario, err := scripted.LoadScenarioFile(scenarioPath)
		if err != nil {
			return nil, err
		}
		return scenario.Driver().WithModelConfig(cfg.Model), nil
	}

	var (
		driver *lcg.Driver
		err    error
	)
	switch cfg.Model.Provider {
	case "", lcg.ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return nil, errors.New("OPENAI_API_KEY is not set; pass --scenario to run without a model")
		}
		driver, err = lcg.NewOpenAI(cfg.Model, os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL"))
	case lcg.ProviderGitHub:
		driver, err = lcg.NewGitHubModels(cfg.Model, os.Getenv("GITHUB_TOKEN"))
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Model.Provider)
	}
	if err != nil {
		return nil, err
	}
	return driver, nil
}

func serveMetrics(addr string, metrics *telemetry.MetricsSubscriber, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

type result struct {
	Session session.Info `yaml:"session"`
	Answer  string       `yaml:"answer,omitempty"`
	Error   string       `yaml:"error,omitempty"`
}

func writeResult(w io.Writer, format string, s *session.AgentSession) error {
	state := s.State()
	res := result{Session: s.Info(), Answer: state.FinalResponse()}
	if state.Status() == gentloop.StatusFailed {
		res.Error = state.Err().Error()
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(res)
	case "", "text":
		var b strings.Builder
		fmt.Fprintf(&b, "status: %s (%d steps)\n", state.Status(), state.StepCount())
		switch state.Status() {
		case gentloop.StatusSuspended:
			b.WriteString("The budget ran out before the agent answered.\n")
		case gentloop.StatusFailed:
			fmt.Fprintf(&b, "error: %s\n", res.Error)
		default:
			fmt.Fprintf(&b, "\n%s\n", res.Answer)
		}
		_, err := io.WriteString(w, b.String())
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
