package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a declarative undo/redo test scenario.
// Scenarios establish a live schema, run a sequence of captured mutations
// and undo/redo steps against one entity, and assert on the resulting
// stacks and final row state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema lists DDL statements applied to a fresh live database before
	// anything runs.
	Schema []string `yaml:"schema"`

	// Entity is the key whose history the scenario drives.
	Entity EntityRef `yaml:"entity"`

	// Tokens holds fixed capture tokens, one per capture step, for
	// deterministic golden file comparison. If empty, tokens are random.
	Tokens []string `yaml:"tokens,omitempty"`

	// Setup contains rows inserted outside any capture. These establish
	// initial state that undo can never remove.
	Setup []SetupRow `yaml:"setup,omitempty"`

	// Steps contains the main sequence: captured mutation groups and
	// undo/redo calls, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final stacks and live state.
	// Supported types: stack_counts, row_exists, row_absent, row_values
	Assertions []Assertion `yaml:"assertions"`
}

// EntityRef names the entity whose history a scenario exercises.
type EntityRef struct {
	Type string `yaml:"type"`
	ID   int64  `yaml:"id"`
}

// SetupRow is one uncaptured insert establishing initial state.
type SetupRow struct {
	Table  string         `yaml:"table"`
	Values map[string]any `yaml:"values"`
}

// Step is one scenario step. Exactly one of Capture, Undo or Redo must be
// set.
type Step struct {
	// Capture runs the listed mutations inside one capture session,
	// committing them as a single group.
	Capture []Mutation `yaml:"capture,omitempty"`

	// Undo pops and unwinds this many groups.
	Undo int `yaml:"undo,omitempty"`

	// Redo pops and reapplies this many groups.
	Redo int `yaml:"redo,omitempty"`
}

// Mutation is one captured row mutation within a capture step.
type Mutation struct {
	// Op is "insert", "update" or "delete".
	Op string `yaml:"op"`

	// Table is the live table the row lives in.
	Table string `yaml:"table"`

	// Identity holds the primary key columns (update and delete).
	Identity map[string]any `yaml:"identity,omitempty"`

	// Values holds the inserted row (insert) or the columns being changed
	// (update).
	Values map[string]any `yaml:"values,omitempty"`
}

// Assertion validates final stacks or live state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "stack_counts": Check final undo/redo group counts
	// - "row_exists":   Check a matching row exists
	// - "row_absent":   Check no matching row exists
	// - "row_values":   Query a row and verify expected column values
	Type string `yaml:"type"`

	// Undo and Redo are the expected group counts (stack_counts).
	Undo int `yaml:"undo,omitempty"`
	Redo int `yaml:"redo,omitempty"`

	// Table is the live table to query (row_exists, row_absent, row_values).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters. All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (row_values). Subset match -
	// only listed columns are checked.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertStackCounts = "stack_counts"
	AssertRowExists   = "row_exists"
	AssertRowAbsent   = "row_absent"
	AssertRowValues   = "row_values"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
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

	if len(s.Schema) == 0 {
		return fmt.Errorf("schema list is required and must be non-empty")
	}

	if s.Entity.Type == "" {
		return fmt.Errorf("entity.type is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, row := range s.Setup {
		if row.Table == "" {
			return fmt.Errorf("setup[%d]: table is required", i)
		}
		if len(row.Values) == 0 {
			return fmt.Errorf("setup[%d]: values is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that a step names exactly one action.
func validateStep(index int, step *Step) error {
	set := 0
	if len(step.Capture) > 0 {
		set++
	}
	if step.Undo > 0 {
		set++
	}
	if step.Redo > 0 {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of capture, undo or redo is required", index)
	}

	for j, mut := range step.Capture {
		switch mut.Op {
		case "insert":
			if len(mut.Values) == 0 {
				return fmt.Errorf("steps[%d].capture[%d]: values is required for insert", index, j)
			}
		case "update":
			if len(mut.Identity) == 0 {
				return fmt.Errorf("steps[%d].capture[%d]: identity is required for update", index, j)
			}
			if len(mut.Values) == 0 {
				return fmt.Errorf("steps[%d].capture[%d]: values is required for update", index, j)
			}
		case "delete":
			if len(mut.Identity) == 0 {
				return fmt.Errorf("steps[%d].capture[%d]: identity is required for delete", index, j)
			}
		default:
			return fmt.Errorf("steps[%d].capture[%d]: unknown op %q", index, j, mut.Op)
		}
		if mut.Table == "" {
			return fmt.Errorf("steps[%d].capture[%d]: table is required", index, j)
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStackCounts:
		if a.Undo < 0 || a.Redo < 0 {
			return fmt.Errorf("assertions[%d]: counts must be non-negative for stack_counts", index)
		}
	case AssertRowExists, AssertRowAbsent:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for %s", index, a.Type)
		}
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for %s", index, a.Type)
		}
	case AssertRowValues:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_values", index)
		}
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for row_values", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row_values", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
