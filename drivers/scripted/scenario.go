package scripted

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is the YAML form of a script:
//
//	steps:
//	  - tool: plan_with_subagent
//	    args:
//	      specification: "Goal: add a planner"
//	  - final: "Implemented."
//	child_steps:
//	  - tool: read_file
//	    args: {path: README.md}
//	  - final: "## Plan\n1. Read\n2. Write"
type Scenario struct {
	Steps      []ScenarioStep `yaml:"steps"`
	ChildSteps []ScenarioStep `yaml:"child_steps,omitempty"`
}

// Driver builds a driver replaying the scenario.
func (s Scenario) Driver() *Driver {
	d := New(s.Steps...)
	if len(s.ChildSteps) > 0 {
		d = d.WithChildSteps(s.ChildSteps...)
	}
	return d
}

// LoadScenario decodes a scenario from r.
func LoadScenario(r io.Reader) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return Scenario{}, fmt.Errorf("scenario is empty")
		}
		return Scenario{}, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if len(s.Steps) == 0 {
		return Scenario{}, fmt.Errorf("scenario has no steps")
	}
	return s, nil
}

// LoadScenarioFile reads a scenario from path.
func LoadScenarioFile(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()
	return LoadScenario(f)
}
