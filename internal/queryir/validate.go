package queryir

import (
	"fmt"
	"math"
)

// ValidationResult lists structural problems in a query. It does not check
// names against the schema; querysql does that at compile time.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks a query for structural problems:
//  1. table name present
//  2. updates and inserts assign at least one column
//  3. updates carry a filter
//  4. comparison operators are known
//  5. values are driver-compatible (no NaN/Inf, no composite values)
//
// Validate is a pure function.
func Validate(q Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.validateQuery(q)
	return ValidationResult{Valid: len(v.errors) == 0, Errors: v.errors}
}

type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		if query.From == "" {
			v.addError("select: table name is required")
		}
		if query.Limit < 0 {
			v.addError("select: negative limit %d", query.Limit)
		}
		for _, o := range query.OrderBy {
			if o.Column == "" {
				v.addError("select: empty order column")
			}
		}
		v.validatePredicate(query.Filter)
	case Update:
		if query.Table == "" {
			v.addError("update: table name is required")
		}
		if len(query.Set) == 0 {
			v.addError("update: at least one assignment is required")
		}
		if query.Filter == nil {
			v.addError("update: filter is required")
		}
		v.validateAssignments("update", query.Set)
		v.validatePredicate(query.Filter)
	case Insert:
		if query.Table == "" {
			v.addError("insert: table name is required")
		}
		if len(query.Values) == 0 {
			v.addError("insert: at least one value is required")
		}
		v.validateAssignments("insert", query.Values)
	case nil:
		v.addError("nil query")
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateAssignments(kind string, as []Assignment) {
	seen := make(map[string]bool, len(as))
	for _, a := range as {
		if a.Column == "" {
			v.addError("%s: empty column name", kind)
		}
		if seen[a.Column] {
			v.addError("%s: column %q assigned twice", kind, a.Column)
		}
		seen[a.Column] = true
		v.validateValue(a.Column, a.Value)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateValue(pred.Field, pred.Value)
	case In:
		for _, val := range pred.Values {
			v.validateValue(pred.Field, val)
		}
	case Compare:
		switch pred.Op {
		case OpGTE, OpLTE, OpGT, OpLT:
		default:
			v.addError("unknown comparison operator %q on %q", pred.Op, pred.Field)
		}
		v.validateValue(pred.Field, pred.Value)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateValue(field string, val any) {
	switch x := val.(type) {
	case nil, string, int64, int, bool, []byte:
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v.addError("field %q: non-finite number", field)
		}
	default:
		v.addError("field %q: unsupported value type %T", field, val)
	}
}
