package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/engine"
	"github.com/roach88/dealbook/internal/ident"
	"github.com/roach88/dealbook/internal/ledger"
	"github.com/roach88/dealbook/internal/mutation"
	"github.com/roach88/dealbook/internal/store"
	"github.com/roach88/dealbook/internal/testutil"
)

// Harness executes one scenario against one store.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequence ids and a
// step clock, so identical scenarios produce identical traces.
//
// Execution flow:
//  1. Open an in-memory store and seed it
//  2. Store the actor label, if given
//  3. Run steps, checking each expect clause
//  4. Evaluate assertions and capture the final ledger
//
// The returned error covers harness failures (seeding, storage); scenario
// failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := seed(ctx, st, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	eng, err := engine.New(st,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithClock(testutil.NewStepClock(testutil.DefaultEpoch, time.Second)),
		engine.WithIDGenerator(ident.NewSequenceGenerator("id")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h := &Harness{store: st, engine: eng}

	if scenario.ActorLabel != "" {
		if _, err := eng.SetActorLabel(ctx, scenario.ActorLabel); err != nil {
			return nil, fmt.Errorf("failed to set actor label: %w", err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	for _, msg := range EvaluateAssertions(ctx, h, scenario.Assertions) {
		result.AddError(msg)
	}

	changes, err := eng.ListEvents(ctx, ledger.Filter{Limit: ledger.MaxLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	for _, c := range changes {
		result.Ledger = append(result.Ledger, changeMap(c))
	}
	return result, nil
}

func seed(ctx context.Context, st *store.Store, s Seed) error {
	if s.Base == FixtureAcme {
		if err := testutil.Seed(ctx, st.DB(), testutil.AcmeFixture()); err != nil {
			return err
		}
	}
	return testutil.Seed(ctx, st.DB(), s.Fixture)
}

// executeStep runs one step, records it in the trace and checks its
// expect clause.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	ev := TraceEvent{Step: index, Outcome: map[string]any{}}
	var (
		err error
		res mutation.Result
	)

	switch {
	case step.Apply != nil:
		ev.Type = StepApply
		ev.Input = applyInput(step.Apply)
		res, err = h.engine.ApplyChanges(ctx, step.Apply.Edits, step.Apply.SnapshotRoot)
		if err == nil {
			var snapshotID any
			if res.SnapshotID != nil {
				snapshotID = *res.SnapshotID
			}
			ev.Outcome["updated"] = res.Updated
			ev.Outcome["events_created"] = res.EventsCreated
			ev.Outcome["snapshot_id"] = snapshotID
		}
	case step.SetLabel != nil:
		ev.Type = StepSetLabel
		ev.Input = map[string]any{"label": *step.SetLabel}
		who, e := h.engine.SetActorLabel(ctx, *step.SetLabel)
		if err = e; err == nil {
			ev.Outcome["actor_id"] = who.ID
		}
	case step.Snapshot != nil:
		ev.Type = StepSnapshot
		ev.Input = map[string]any{"root": step.Snapshot.Root, "tag": step.Snapshot.Tag}
		var id string
		id, err = h.engine.CreateSnapshot(ctx, step.Snapshot.Root, step.Snapshot.Tag)
		if err == nil {
			ev.Outcome["snapshot_id"] = id
		}
	}
	if err != nil {
		ev.Outcome = map[string]any{"error": string(apperr.CodeOf(err))}
	}
	result.Trace = append(result.Trace, ev)

	for _, msg := range checkExpect(index, step.Expect, res, err) {
		result.AddError(msg)
	}
}

func checkExpect(index int, exp *ExpectClause, res mutation.Result, err error) []string {
	var errs []string
	if exp == nil || exp.Error == "" {
		if err != nil {
			return []string{fmt.Sprintf("step %d: unexpected error: %v", index, err)}
		}
	} else {
		if err == nil {
			return []string{fmt.Sprintf("step %d: expected error %s, got success", index, exp.Error)}
		}
		if got := string(apperr.CodeOf(err)); got != exp.Error {
			errs = append(errs, fmt.Sprintf("step %d: expected error %s, got %s (%v)", index, exp.Error, got, err))
		}
		return errs
	}
	if exp == nil {
		return nil
	}

	if exp.Updated != nil && *exp.Updated != res.Updated {
		errs = append(errs, fmt.Sprintf("step %d: expected updated=%d, got %d", index, *exp.Updated, res.Updated))
	}
	if exp.EventsCreated != nil && *exp.EventsCreated != res.EventsCreated {
		errs = append(errs, fmt.Sprintf("step %d: expected events_created=%d, got %d", index, *exp.EventsCreated, res.EventsCreated))
	}
	if exp.Snapshot != nil && *exp.Snapshot != (res.SnapshotID != nil) {
		errs = append(errs, fmt.Sprintf("step %d: expected snapshot=%v", index, *exp.Snapshot))
	}
	return errs
}

func applyInput(a *ApplyStep) map[string]any {
	edits := make([]any, len(a.Edits))
	for i, e := range a.Edits {
		m := map[string]any{
			"table":     e.Table,
			"record_id": e.RecordID,
			"field":     e.Field,
			"new_value": e.NewValue,
		}
		if e.IDColumn != "" {
			m["id_column"] = e.IDColumn
		}
		edits[i] = m
	}
	in := map[string]any{"edits": edits}
	if a.SnapshotRoot != "" {
		in["snapshot_root"] = a.SnapshotRoot
	}
	return in
}

func changeMap(c ledger.FieldChange) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"table_name":  c.TableName,
		"record_id":   c.RecordID,
		"field_name":  c.FieldName,
		"old_value":   c.OldValue,
		"new_value":   c.NewValue,
		"actor_id":    c.ActorID,
		"actor_label": c.ActorLabel,
		"changed_at":  c.ChangedAt,
	}
}
