package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rickchristie/gentloop/config"
	"github.com/rickchristie/gentloop/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const planningScenario = `
steps:
  - tool: plan_with_subagent
    args:
      specification: "Goal: summarize notes.txt\nContext: plain text file"
  - tool: read_file
    args: {path: notes.txt}
  - final: "The notes say hi."
child_steps:
  - tool: list_files
    args: {}
  - final: "## Plan\n1. Read notes.txt"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("GENTLOOP_MODEL", "")
	t.Setenv("GENTLOOP_LOG_LEVEL", "")
	t.Setenv("GENTLOOP_METRICS_ADDR", "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRun_Scenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "hi")
	scenario := writeFile(t, dir, "scenario.yaml", planningScenario)
	transcript := filepath.Join(dir, "transcript.yaml")

	stdout, stderr, err := execute(t, "run",
		"--scenario", scenario,
		"--input", "Summarize notes.txt",
		"--workdir", dir,
		"--transcript", transcript,
	)

	require.NoError(t, err)
	assert.Equal(t, "status: succeeded (3 steps)\n\nThe notes say hi.\n", stdout)
	assert.Contains(t, stderr, `"msg":"loop ended"`)

	data, err := os.ReadFile(transcript)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Plan")
	assert.Contains(t, string(data), "parent: ")
}

func TestRun_YAMLOutput(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "scenario.yaml", "steps:\n  - final: done\n")

	stdout, _, err := execute(t, "run", "--scenario", scenario, "--input", "x", "--output", "yaml")

	require.NoError(t, err)
	var res struct {
		Session struct {
			Status      string `yaml:"status"`
			AgentStatus string `yaml:"agent_status"`
			Steps       int    `yaml:"steps"`
			Version     int    `yaml:"version"`
		} `yaml:"session"`
		Answer string `yaml:"answer"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "active", res.Session.Status)
	assert.Equal(t, "succeeded", res.Session.AgentStatus)
	assert.Equal(t, 1, res.Session.Steps)
	assert.Equal(t, 2, res.Session.Version)
	assert.Equal(t, "done", res.Answer)
}

func TestRun_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		scenario string
		expected string
		err      string
	}{
		{
			name:     "budget suspends",
			config:   "budget: {max_steps: 1}\nplanner: {enabled: false}\n",
			scenario: "steps:\n  - tool: list_files\n  - final: late\n",
			expected: "status: suspended (1 steps)\nThe budget ran out before the agent answered.\n",
		},
		{
			name:     "driver failure",
			scenario: "steps:\n  - error: model unavailable\n",
			expected: "status: failed (1 steps)\nerror: driver: model unavailable\n",
			err:      "agent failed: driver: model unavailable",
		},
		{
			name:     "fatal planner failure",
			config:   "planner: {fatal_failures: true}\n",
			scenario: "steps:\n  - tool: plan_with_subagent\n    args: {specification: x}\nchild_steps:\n  - error: boom\n",
			err:      "agent failed: Planning subagent execution failed: driver: boom",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			args := []string{"run", "--input", "task", "--workdir", dir,
				"--scenario", writeFile(t, dir, "scenario.yaml", tc.scenario)}
			if tc.config != "" {
				args = append(args, "--config", writeFile(t, dir, "gentloop.yaml", tc.config))
			}

			stdout, _, err := execute(t, args...)

			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
			if tc.expected != "" {
				assert.Equal(t, tc.expected, stdout)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, "run", "--scenario", filepath.Join(dir, "missing.yaml"), "--input", "x")
	assert.ErrorContains(t, err, "failed to open scenario")

	_, _, err = execute(t, "run", "--scenario", writeFile(t, dir, "s.yaml", "steps: []\n"))
	assert.ErrorContains(t, err, `required flag(s) "input" not set`)

	t.Setenv("OPENAI_API_KEY", "")
	_, _, err = execute(t, "run", "--input", "x")
	assert.EqualError(t, err, "OPENAI_API_KEY is not set; pass --scenario to run without a model")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "scenario.yaml", planningScenario)

	stdout, _, err := execute(t, "validate", "--scenario", scenario)
	require.NoError(t, err)
	assert.Equal(t, "configuration ok\nscenario ok: 3 steps, 2 child steps\n", stdout)

	_, _, err = execute(t, "validate", "--config", writeFile(t, dir, "bad.yaml", "loop: {rejection_policy: nope}\n"))
	assert.ErrorContains(t, err, `unknown rejection policy "nope"`)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "gentloop "+version+"\n", stdout)
}

func TestWorkspaceTools(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))
	writeFile(t, filepath.Join(dir, "sub"), "b.txt", "beta")
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o700))
	writeFile(t, filepath.Join(dir, ".git"), "HEAD", "ref")

	tools := toolchain.NewRegistry(workspaceTools(dir)...)
	call := func(name string, args map[string]any) (any, error) {
		tool, err := tools.Get(name)
		require.NoError(t, err)
		return tool.Call(context.Background(), args)
	}

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		expected string
		err      string
	}{
		{name: "read", tool: "read_file", args: map[string]any{"path": "sub/b.txt"}, expected: "beta"},
		{name: "read outside", tool: "read_file", args: map[string]any{"path": "../etc/passwd"}, err: "path escapes the working directory: ../etc/passwd"},
		{name: "read missing", tool: "read_file", args: map[string]any{"path": "nope.txt"}, err: "read nope.txt: "},
		{name: "list skips hidden", tool: "list_files", args: map[string]any{}, expected: "a.txt\nsub/b.txt"},
		{name: "list limit", tool: "list_files", args: map[string]any{"limit": 1}, expected: "a.txt"},
		{name: "list sub", tool: "list_files", args: map[string]any{"dir": "sub"}, expected: "sub/b.txt"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := call(tc.tool, tc.args)

			if tc.err != "" {
				require.Error(t, err)
				assert.True(t, strings.HasPrefix(err.Error(), tc.err), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestWorkspaceToolsHaveSchemas(t *testing.T) {
	for _, tool := range workspaceTools(t.TempDir()) {
		s := tool.ToolSchema()
		assert.Equal(t, "function", s.Type)
		assert.Equal(t, tool.Name(), s.Function.Name)
		assert.Equal(t, "object", s.Function.Parameters["type"])
	}
}

// scriptedInput replays lines, then returns err.
type scriptedInput struct {
	lines []string
	err   error
}

func (s *scriptedInput) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", s.err
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func TestChat(t *testing.T) {
	scenarioDoc := "steps:\n  - final: hello\n  - tool: read_file\n    args: {path: notes.txt}\n  - final: the notes say hi\n"

	tests := []struct {
		name     string
		input    *scriptedInput
		budget   int
		expected string
		err      string
	}{
		{
			name:     "turns until exit",
			input:    &scriptedInput{lines: []string{"hi", "  ", "read the notes", "exit", "ignored"}},
			expected: "agent> hello\nagent> the notes say hi\n",
		},
		{
			name:     "end of input",
			input:    &scriptedInput{lines: []string{"hi"}, err: io.EOF},
			expected: "agent> hello\n",
		},
		{
			name:     "every turn gets a fresh budget",
			input:    &scriptedInput{lines: []string{"hi", "read the notes", "go on"}, err: io.EOF},
			budget:   1,
			expected: "agent> hello\nagent> (stopped before answering; send another message to continue)\nagent> the notes say hi\n",
		},
		{
			name:  "read error",
			input: &scriptedInput{err: errors.New("tty gone")},
			err:   "failed to read input: tty gone",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "notes.txt", "hi")
			cfg := config.Default()
			cfg.Planner.Enabled = false
			cfg.Budget.MaxSteps = tc.budget
			opts := runOptions{scenario: writeFile(t, dir, "scenario.yaml", scenarioDoc), workdir: dir}

			var stdout, stderr bytes.Buffer
			err := chat(context.Background(), cfg, opts, tc.input, &stdout, &stderr)

			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stdout.String())
		})
	}
}
