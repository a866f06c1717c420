package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dealbook/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run: every step with its
// outcome, then the final ledger.
type TraceSnapshot struct {
	ScenarioName string           `json:"scenario_name"`
	Trace        []TraceEvent     `json:"trace"`
	Ledger       []map[string]any `json:"ledger"`
}

// NewTraceSnapshot builds the golden form of result.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{ScenarioName: name, Trace: result.Trace, Ledger: result.Ledger}
}

// toCanonicalMap converts the snapshot into plain maps and slices, the
// shapes ir.MarshalCanonical accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = map[string]any{
			"type":    ev.Type,
			"step":    ev.Step,
			"input":   ev.Input,
			"outcome": ev.Outcome,
		}
	}
	changes := make([]any, len(s.Ledger))
	for i, c := range s.Ledger {
		changes[i] = c
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"ledger":        changes,
	}
}

// Canonical returns the canonical JSON bytes compared against golden files.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace and final
// ledger against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snap := NewTraceSnapshot(scenarioName, result)
	data, err := snap.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
