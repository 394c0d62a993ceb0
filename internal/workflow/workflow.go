// Package workflow runs scripted end-to-end scenarios against a SIS API:
// ordered steps with assertions, result capture and automatic cleanup of
// everything the run created.
package workflow

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Workflow is an ordered script of API steps.
type Workflow struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
}

// Step is one action plus its assertions. A step that sets Register makes
// its decoded result available to later steps as ${<register>.<field>}.
type Step struct {
	Name     string         `yaml:"name"`
	Action   string         `yaml:"action"`
	With     map[string]any `yaml:"with,omitempty"`
	Expect   []Check        `yaml:"expect,omitempty"`
	Register string         `yaml:"register,omitempty"`

	// ContinueOnError lets the run proceed past a failing step. Cleanup
	// still runs either way.
	ContinueOnError bool `yaml:"continueOnError,omitempty"`
}

// Check asserts on one field of the step result, addressed by dot path.
// Exactly one of Equals or Exists applies; Exists alone asserts presence.
type Check struct {
	Field  string `yaml:"field"`
	Equals any    `yaml:"equals,omitempty"`
	Exists bool   `yaml:"exists,omitempty"`
}

// Load reads and validates a workflow file.
func Load(path string) (*Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates workflow YAML.
func Parse(raw []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

func (w *Workflow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workflow: name is required")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow %q: at least one step is required", w.Name)
	}

	seen := make(map[string]bool, len(w.Steps))
	registered := make(map[string]bool, len(w.Steps))
	for i, step := range w.Steps {
		if step.Name == "" {
			return fmt.Errorf("workflow %q: step %d has no name", w.Name, i+1)
		}
		if seen[step.Name] {
			return fmt.Errorf("workflow %q: duplicate step name %q", w.Name, step.Name)
		}
		seen[step.Name] = true

		if _, ok := actions[step.Action]; !ok {
			return fmt.Errorf("workflow %q: step %q uses unknown action %q (known: %v)",
				w.Name, step.Name, step.Action, actionNames())
		}

		for _, check := range step.Expect {
			if check.Field == "" {
				return fmt.Errorf("workflow %q: step %q has a check without a field", w.Name, step.Name)
			}
		}

		if step.Register != "" {
			if registered[step.Register] {
				return fmt.Errorf("workflow %q: register name %q used twice", w.Name, step.Register)
			}
			registered[step.Register] = true
		}
	}
	return nil
}

func actionNames() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
