package queryir

// Query is a sealed interface over Select, Update and Insert.
type Query interface {
	queryNode()
}

// Predicate is a sealed interface over filter conditions.
type Predicate interface {
	predicateNode()
}

// Select reads rows from one table.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order_by> LIMIT <limit>
//
// Columns nil selects every declared column (expanded by the compiler, never
// "*"). OrderBy may be empty; the compiler always appends the primary key so
// the result order is total.
type Select struct {
	From    string
	Columns []string
	Filter  Predicate
	OrderBy []Order
	Limit   int // 0 = no limit
}

func (Select) queryNode() {}

// Update sets columns on the rows matching Filter. A nil Filter is rejected
// by the compiler; there are no unfiltered updates.
type Update struct {
	Table  string
	Set    []Assignment
	Filter Predicate
}

func (Update) queryNode() {}

// Insert adds one row.
type Insert struct {
	Table  string
	Values []Assignment
}

func (Insert) queryNode() {}

// Assignment is column = value.
type Assignment struct {
	Column string
	Value  any
}

// Order is one ORDER BY term.
//
// EmptyLast sorts NULL and '' after every other value, then orders the rest
// by Column.
type Order struct {
	Column    string
	Desc      bool
	EmptyLast bool
}

// Asc orders by column ascending.
func Asc(column string) Order { return Order{Column: column} }

// Desc orders by column descending.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// AscEmptyLast orders by column ascending with NULL and '' last.
func AscEmptyLast(column string) Order { return Order{Column: column, EmptyLast: true} }

// Equals is field = value.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// In is field IN (values...). An empty Values list matches nothing.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// CompareOp is a range comparison operator.
type CompareOp string

const (
	OpGTE CompareOp = ">="
	OpLTE CompareOp = "<="
	OpGT  CompareOp = ">"
	OpLT  CompareOp = "<"
)

// Compare is field <op> value.
type Compare struct {
	Field string
	Op    CompareOp
	Value any
}

func (Compare) predicateNode() {}

// And is the conjunction of Predicates. An empty And is true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// AllOf builds an And, dropping nil predicates. It returns nil when nothing
// remains, so callers can pass optional filters straight through.
func AllOf(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}

// Fields returns every column a predicate references, in traversal order.
func Fields(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Equals:
			out = append(out, pred.Field)
		case In:
			out = append(out, pred.Field)
		case Compare:
			out = append(out, pred.Field)
		case And:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		}
	}
	walk(p)
	return out
}
