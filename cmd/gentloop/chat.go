package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/config"
	"github.com/rickchristie/gentloop/session"
	"github.com/spf13/cobra"
)

// lineReader reads one line of user input at a time.
type lineReader interface {
	Readline() (string, error)
}

func newChatCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to an agent interactively",
		Long: `Starts a session and runs the agent once per line you type. The
conversation is kept between turns and every turn gets the configured
budget anew. Type "exit" or press Ctrl-D to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if opts.metricsAddr != "" {
				cfg.Metrics.Addr = opts.metricsAddr
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "you> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          cmd.OutOrStdout(),
				Stderr:          cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer cancel()

			return chat(ctx, cfg, opts, rl, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "YAML file of scripted decisions")
	cmd.Flags().StringVar(&opts.systemPrompt, "system-prompt", "", "System prompt of the agent")
	cmd.Flags().StringVar(&opts.workdir, "workdir", ".", "Directory the file tools may read")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&opts.transcript, "transcript", "", "Write a YAML transcript of all events to this file")

	return cmd
}

func chat(
	ctx context.Context,
	cfg *config.Config,
	opts runOptions,
	in lineReader,
	stdout, stderr io.Writer,
) error {
	env, err := newAgentEnv(cfg, opts, stderr)
	if err != nil {
		return err
	}
	defer env.Close()

	manager := session.NewManager(session.NewMemoryStore())
	s, err := manager.Create(ctx, "chat", initialState(cfg, opts))
	if err != nil {
		return err
	}

	for {
		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		s, err = turn(ctx, cfg, manager, s.ID(), line, env)
		if err != nil {
			return err
		}

		state := s.State()
		switch state.Status() {
		case gentloop.StatusSucceeded:
			fmt.Fprintf(stdout, "agent> %s\n", state.FinalResponse())
		case gentloop.StatusSuspended:
			fmt.Fprintln(stdout, "agent> (stopped before answering; send another message to continue)")
		case gentloop.StatusFailed:
			return fmt.Errorf("agent failed: %w", state.Err())
		}
	}
}

// turn sends one user message and runs the agent until it stops.
func turn(
	ctx context.Context,
	cfg *config.Config,
	manager *session.Manager,
	id, message string,
	env *agentEnv,
) (*session.AgentSession, error) {
	if _, err := manager.Execute(ctx, id, session.SendMessage(message)); err != nil {
		return nil, err
	}
	if _, err := manager.Execute(ctx, id, session.ExtendBudget(cfg.Budget)); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, cfg)
	defer cancel()
	return manager.Run(ctx, id, env.loop)
}
