package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/reconciler/internal/engine"
	"github.com/roach88/reconciler/internal/host"
)

// Scenario defines a reconciliation scenario: an initial tree, a sequence
// of steps driving the scheduler, and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tree is the initial element tree as a decoded document.
	// It is rendered and flushed before the first step.
	Tree any `yaml:"tree,omitempty"`

	// TreeFile is a CUE document holding the initial tree, used instead of
	// Tree. Relative paths resolve against the scenario file.
	TreeFile string `yaml:"tree_file,omitempty"`

	// Steps drive the scheduler after the initial render.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the journal and the final host document.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scheduler interaction. Exactly one action field is set.
type Step struct {
	// Render schedules a new tree for the container. It does not flush.
	Render any `yaml:"render,omitempty"`

	// Flush grants unlimited time until the scheduler is idle.
	Flush bool `yaml:"flush,omitempty"`

	// Grant performs one grant admitting this many units.
	Grant int `yaml:"grant,omitempty"`

	// Dispatch delivers an event to a host node.
	Dispatch *DispatchStep `yaml:"dispatch,omitempty"`

	// Update requests a state change on a mounted component instance.
	Update *UpdateStep `yaml:"update,omitempty"`

	// ExpectError is the runtime error code the step must produce
	// (flush and grant steps only).
	ExpectError string `yaml:"expect_error,omitempty"`
}

// DispatchStep delivers an event to the host node at Path.
type DispatchStep struct {
	// Path is the child-index path below the container, e.g. "0/1/0".
	Path    string         `yaml:"path"`
	Event   string         `yaml:"event"`
	Payload map[string]any `yaml:"payload,omitempty"`
}

// UpdateStep requests a state change on the Index-th (pre-order) mounted
// instance of Component.
type UpdateStep struct {
	Component string         `yaml:"component"`
	Index     int            `yaml:"index,omitempty"`
	Delta     map[string]any `yaml:"delta"`
}

// Assertion validates the outcome.
type Assertion struct {
	// Type specifies the assertion type (see the Assert* constants).
	Type string `yaml:"type"`

	// Pass selects a committed pass by 1-based position; 0 means the last
	// (effect_count, effect_order).
	Pass int `yaml:"pass,omitempty"`

	// Tag is the effect tag (effect_count).
	Tag string `yaml:"tag,omitempty"`

	// Count is the expected number (pass_count, failure_count, effect_count).
	Count int `yaml:"count,omitempty"`

	// Effects is the expected "tag path" list (effect_order).
	Effects []string `yaml:"effects,omitempty"`

	// Path is a child-index path below the container (text_at).
	Path string `yaml:"path,omitempty"`

	// Text is the expected text (text_at, dump_contains).
	Text string `yaml:"text,omitempty"`

	// Code is the expected runtime error code (failure).
	Code string `yaml:"code,omitempty"`

	// Passes are two 1-based pass positions (same_tree).
	Passes []int `yaml:"passes,omitempty"`
}

// Assertion type constants.
const (
	AssertPassCount    = "pass_count"
	AssertFailureCount = "failure_count"
	AssertEffectCount  = "effect_count"
	AssertEffectOrder  = "effect_order"
	AssertTextAt       = "text_at"
	AssertDumpContains = "dump_contains"
	AssertFailure      = "failure"
	AssertSameTree     = "same_tree"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative tree_file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.TreeFile != "" && !filepath.IsAbs(scenario.TreeFile) {
		scenario.TreeFile = filepath.Join(filepath.Dir(path), scenario.TreeFile)
	}
	if scenario.TreeFile != "" {
		if _, err := os.Stat(scenario.TreeFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: tree file not found: %s", scenario.TreeFile)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Tree != nil && s.TreeFile != "" {
		return fmt.Errorf("tree and tree_file are mutually exclusive")
	}

	if s.Tree == nil && s.TreeFile == "" && len(s.Steps) == 0 {
		return fmt.Errorf("a tree, tree_file or at least one step is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that exactly one action is set.
func validateStep(index int, st *Step) error {
	actions := 0
	if st.Render != nil {
		actions++
	}
	if st.Flush {
		actions++
	}
	if st.Grant != 0 {
		actions++
	}
	if st.Dispatch != nil {
		actions++
	}
	if st.Update != nil {
		actions++
	}
	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one of render, flush, grant, dispatch, update is required", index)
	}

	if st.Grant < 0 {
		return fmt.Errorf("steps[%d]: grant must be positive", index)
	}
	if st.ExpectError != "" && !st.Flush && st.Grant == 0 {
		return fmt.Errorf("steps[%d]: expect_error is only valid on flush and grant steps", index)
	}
	if d := st.Dispatch; d != nil {
		if d.Event == "" {
			return fmt.Errorf("steps[%d].dispatch: event is required", index)
		}
		if _, err := host.ParsePath(d.Path); err != nil {
			return fmt.Errorf("steps[%d].dispatch: %w", index, err)
		}
	}
	if u := st.Update; u != nil {
		if u.Component == "" {
			return fmt.Errorf("steps[%d].update: component is required", index)
		}
		if u.Index < 0 {
			return fmt.Errorf("steps[%d].update: index must be non-negative", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Pass < 0 {
		return fmt.Errorf("assertions[%d]: pass must be non-negative", index)
	}

	switch a.Type {
	case AssertPassCount, AssertFailureCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertEffectCount:
		if a.Tag == "" {
			return fmt.Errorf("assertions[%d]: tag is required for effect_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for effect_count", index)
		}
	case AssertEffectOrder:
		// An empty list asserts an empty effect list.
	case AssertTextAt:
		if _, err := host.ParsePath(a.Path); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertDumpContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for dump_contains", index)
		}
	case AssertFailure:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for failure", index)
		}
		if !engine.KnownErrorCode(a.Code) {
			return fmt.Errorf("assertions[%d]: unknown error code %q", index, a.Code)
		}
	case AssertSameTree:
		if len(a.Passes) != 2 || a.Passes[0] < 1 || a.Passes[1] < 1 {
			return fmt.Errorf("assertions[%d]: same_tree needs two 1-based pass positions", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
