package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dealbook/internal/mutation"
	"github.com/roach88/dealbook/internal/testutil"
)

// FixtureAcme seeds testutil.AcmeFixture.
const FixtureAcme = "acme"

// Scenario defines a conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the data loaded before any step runs.
	Seed Seed `yaml:"seed"`

	// ActorLabel, when set, is stored before the first step.
	ActorLabel string `yaml:"actor_label,omitempty"`

	// Steps run in order against the engine.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Seed names a built-in fixture and/or lists extra rows and edges.
// Fixture rows are inserted first.
type Seed struct {
	Base             string `yaml:"fixture,omitempty"`
	testutil.Fixture `yaml:",inline"`
}

// Step is exactly one of Apply, SetLabel or Snapshot.
type Step struct {
	Apply    *ApplyStep    `yaml:"apply,omitempty"`
	SetLabel *string       `yaml:"set_label,omitempty"`
	Snapshot *SnapshotStep `yaml:"snapshot,omitempty"`

	// Expect checks the step outcome. Nil means the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ApplyStep submits one edit batch.
type ApplyStep struct {
	Edits        []mutation.Edit `yaml:"edits"`
	SnapshotRoot string          `yaml:"snapshot_root,omitempty"`
}

// SnapshotStep captures a manual snapshot.
type SnapshotStep struct {
	Root string `yaml:"root"`
	Tag  string `yaml:"tag,omitempty"`
}

// ExpectClause specifies a step's expected outcome.
type ExpectClause struct {
	// Error is the expected error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Updated and EventsCreated check an apply result.
	Updated       *int `yaml:"updated,omitempty"`
	EventsCreated *int `yaml:"events_created,omitempty"`

	// Snapshot checks whether an apply step produced a snapshot id.
	Snapshot *bool `yaml:"snapshot,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Table and ID select a record (record) or filter the ledger
	// (ledger_count). IDColumn defaults to the table's primary key.
	Table    string `yaml:"table,omitempty"`
	ID       string `yaml:"id,omitempty"`
	IDColumn string `yaml:"id_column,omitempty"`

	// Root is the company id for view, view_rows, snapshot_count and
	// related_ids.
	Root string `yaml:"root,omitempty"`

	// Expect holds expected values (record, ledger_contains, view).
	// Subset match; null expects NULL.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of ledger rows, view rows or snapshots.
	Count *int `yaml:"count,omitempty"`

	// Rows are subset matches for view rows, by position.
	Rows []map[string]string `yaml:"rows,omitempty"`

	// Tables and IDs drive related_ids.
	Tables []string `yaml:"tables,omitempty"`
	IDs    []string `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord         = "record"
	AssertLedgerCount    = "ledger_count"
	AssertLedgerContains = "ledger_contains"
	AssertView           = "view"
	AssertViewRows       = "view_rows"
	AssertSnapshotCount  = "snapshot_count"
	AssertRelatedIDs     = "related_ids"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Seed.Base != "" && s.Seed.Base != FixtureAcme {
		return fmt.Errorf("seed: unknown fixture %q", s.Seed.Base)
	}
	if len(s.Steps) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("at least one step or assertion is required")
	}

	for i, step := range s.Steps {
		if err := validateStep(step, i); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step, index int) error {
	kinds := 0
	if step.Apply != nil {
		kinds++
	}
	if step.SetLabel != nil {
		kinds++
	}
	if step.Snapshot != nil {
		kinds++
		if step.Snapshot.Root == "" {
			return fmt.Errorf("steps[%d]: snapshot root is required", index)
		}
	}
	if kinds != 1 {
		return fmt.Errorf("steps[%d]: exactly one of apply, set_label or snapshot is required", index)
	}
	if e := step.Expect; e != nil && e.Error != "" && (e.Updated != nil || e.EventsCreated != nil || e.Snapshot != nil) {
		return fmt.Errorf("steps[%d]: expect.error cannot be combined with result fields", index)
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	switch a.Type {
	case AssertRecord:
		if a.Table == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: table and id are required for record", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	case AssertLedgerCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for ledger_count", index)
		}
	case AssertLedgerContains:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for ledger_contains", index)
		}
	case AssertView:
		if a.Root == "" || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: root and expect are required for view", index)
		}
	case AssertViewRows:
		if a.Root == "" {
			return fmt.Errorf("assertions[%d]: root is required for view_rows", index)
		}
		if a.Count == nil && len(a.Rows) == 0 {
			return fmt.Errorf("assertions[%d]: count or rows is required for view_rows", index)
		}
	case AssertSnapshotCount:
		if a.Root == "" || a.Count == nil {
			return fmt.Errorf("assertions[%d]: root and count are required for snapshot_count", index)
		}
	case AssertRelatedIDs:
		if a.Root == "" || len(a.Tables) == 0 {
			return fmt.Errorf("assertions[%d]: root and tables are required for related_ids", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
