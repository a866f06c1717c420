package harness

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/coerce"
	"github.com/roach88/dealbook/internal/graph"
	"github.com/roach88/dealbook/internal/ledger"
	"github.com/roach88/dealbook/internal/queryir"
	"github.com/roach88/dealbook/internal/querysql"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure, prefixed with the assertion index.
func EvaluateAssertions(ctx context.Context, h *Harness, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRecord:
			err = h.assertRecord(ctx, a)
		case AssertLedgerCount:
			err = h.assertLedgerCount(ctx, a)
		case AssertLedgerContains:
			err = h.assertLedgerContains(ctx, a)
		case AssertView:
			err = h.assertView(ctx, a)
		case AssertViewRows:
			err = h.assertViewRows(ctx, a)
		case AssertSnapshotCount:
			err = h.assertSnapshotCount(ctx, a)
		case AssertRelatedIDs:
			err = h.assertRelatedIDs(ctx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) assertRecord(ctx context.Context, a Assertion) error {
	q := h.store.DB()
	d, err := catalog.Describe(ctx, q, a.Table)
	if err != nil {
		return err
	}
	idCol := a.IDColumn
	if idCol == "" {
		idCol = d.PrimaryKey
	}
	rows, err := querysql.RowsWith(ctx, q, d, queryir.Select{
		From:   a.Table,
		Filter: queryir.Equals{Field: idCol, Value: a.ID},
		Limit:  1,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("%s row %s=%s", a.Table, idCol, a.ID),
			Actual:   "no row",
		}
	}

	for _, col := range sortedKeys(a.Expect) {
		if !d.HasColumn(col) {
			return fmt.Errorf("%s has no column %q", a.Table, col)
		}
		want, got := expectedText(a.Expect[col]), coerce.Stringify(rows[0][col])
		if !textEqual(want, got) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("%s.%s = %s", a.Table, col, show(want)),
				Actual:   show(got),
			}
		}
	}
	return nil
}

func (h *Harness) assertLedgerCount(ctx context.Context, a Assertion) error {
	changes, err := h.engine.ListEvents(ctx, ledger.Filter{Table: a.Table, RecordID: a.ID, Limit: ledger.MaxLimit})
	if err != nil {
		return err
	}
	if len(changes) != *a.Count {
		return &AssertionError{
			Type:     AssertLedgerCount,
			Expected: fmt.Sprintf("%d ledger row(s)", *a.Count),
			Actual:   fmt.Sprintf("%d", len(changes)),
		}
	}
	return nil
}

func (h *Harness) assertLedgerContains(ctx context.Context, a Assertion) error {
	changes, err := h.engine.ListEvents(ctx, ledger.Filter{Limit: ledger.MaxLimit})
	if err != nil {
		return err
	}
	for _, c := range changes {
		if matchChange(changeMap(c), a.Expect) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLedgerContains,
		Expected: fmt.Sprintf("a ledger row matching %v", a.Expect),
		Actual:   fmt.Sprintf("%d row(s), none matching", len(changes)),
	}
}

func matchChange(m map[string]any, expect map[string]any) bool {
	for k, v := range expect {
		actual, ok := m[k]
		if !ok {
			return false
		}
		var got *string
		switch x := actual.(type) {
		case string:
			got = &x
		case *string:
			got = x
		}
		if !textEqual(expectedText(v), got) {
			return false
		}
	}
	return true
}

func (h *Harness) assertView(ctx context.Context, a Assertion) error {
	v, err := h.engine.GetView(ctx, a.Root)
	if err != nil {
		return err
	}
	for _, key := range sortedKeys(a.Expect) {
		f, ok := v.Field(key)
		if !ok {
			return &AssertionError{Type: AssertView, Expected: "field " + key, Actual: "absent"}
		}
		want := ""
		if t := expectedText(a.Expect[key]); t != nil {
			want = *t
		}
		if f.Value != want {
			return &AssertionError{
				Type:     AssertView,
				Expected: fmt.Sprintf("%s = %q", key, want),
				Actual:   fmt.Sprintf("%q", f.Value),
			}
		}
	}
	return nil
}

func (h *Harness) assertViewRows(ctx context.Context, a Assertion) error {
	v, err := h.engine.GetView(ctx, a.Root)
	if err != nil {
		return err
	}
	if a.Count != nil && len(v.Rows) != *a.Count {
		return &AssertionError{
			Type:     AssertViewRows,
			Expected: fmt.Sprintf("%d row(s)", *a.Count),
			Actual:   fmt.Sprintf("%d", len(v.Rows)),
		}
	}
	for i, want := range a.Rows {
		if i >= len(v.Rows) {
			return &AssertionError{
				Type:     AssertViewRows,
				Expected: fmt.Sprintf("row %d", i),
				Actual:   fmt.Sprintf("%d row(s)", len(v.Rows)),
			}
		}
		for _, key := range sortedKeys(want) {
			if got := v.Rows[i][key]; got != want[key] {
				return &AssertionError{
					Type:     AssertViewRows,
					Expected: fmt.Sprintf("row %d %s = %q", i, key, want[key]),
					Actual:   fmt.Sprintf("%q", got),
				}
			}
		}
	}
	return nil
}

func (h *Harness) assertSnapshotCount(ctx context.Context, a Assertion) error {
	list, err := h.engine.ListSnapshots(ctx, a.Root)
	if err != nil {
		return err
	}
	if len(list) != *a.Count {
		return &AssertionError{
			Type:     AssertSnapshotCount,
			Expected: fmt.Sprintf("%d snapshot(s) for %s", *a.Count, a.Root),
			Actual:   fmt.Sprintf("%d", len(list)),
		}
	}
	return nil
}

func (h *Harness) assertRelatedIDs(ctx context.Context, a Assertion) error {
	ids, err := graph.RelatedIDsByTable(ctx, h.store.DB(), h.engine.Registry(), a.Root, a.Tables)
	if err != nil {
		return err
	}
	want := a.IDs
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(ids, want) {
		return &AssertionError{
			Type:     AssertRelatedIDs,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", ids),
		}
	}
	return nil
}

// expectedText renders a YAML scalar the way coerce.Stringify renders the
// stored value, so `Pax: 20` matches a stored 20.
func expectedText(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		s = fmt.Sprint(x)
	}
	return &s
}

func textEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func show(s *string) string {
	if s == nil {
		return "NULL"
	}
	return strconv.Quote(*s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
