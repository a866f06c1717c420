package querysql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/dealbook/internal/apperr"
	"github.com/roach88/dealbook/internal/catalog"
	"github.com/roach88/dealbook/internal/queryir"
)

// Compile converts a queryir query to parameterized SQL for SQLite.
//
// The descriptor is the allow-list: every table and column name in q must
// appear in d or Compile fails with a schema error. Names are quoted only
// after that check. Values are always bound as parameters.
//
// Every SELECT gets an ORDER BY ending in the table's key columns, compared
// with COLLATE BINARY, so result order never depends on the query plan.
func Compile(q queryir.Query, d *catalog.Descriptor) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if d == nil {
		return "", nil, fmt.Errorf("cannot compile without a table descriptor")
	}
	if res := queryir.Validate(q); !res.Valid {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(res.Errors, "; "))
	}

	c := &compiler{d: d}
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case queryir.Update:
		return c.compileUpdate(query)
	case queryir.Insert:
		return c.compileInsert(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

type compiler struct {
	d *catalog.Descriptor
}

func (c *compiler) table(name string) (string, error) {
	if name != c.d.Table {
		return "", apperr.UnknownTable(name)
	}
	return catalog.QuoteIdent(name), nil
}

func (c *compiler) column(name string) (string, error) {
	if !c.d.HasColumn(name) {
		return "", apperr.UnknownColumn(c.d.Table, name)
	}
	return catalog.QuoteIdent(name), nil
}

func (c *compiler) compileSelect(q queryir.Select) (string, []any, error) {
	from, err := c.table(q.From)
	if err != nil {
		return "", nil, err
	}

	names := q.Columns
	if names == nil {
		names = c.d.ColumnNames()
	}
	cols := make([]string, len(names))
	for i, name := range names {
		if cols[i], err = c.column(name); err != nil {
			return "", nil, err
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(cols, ", "), from)

	var params []any
	if q.Filter != nil {
		where, args, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = args
	}

	order, err := c.orderBy(q.OrderBy)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(order)

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), params, nil
}

func (c *compiler) compileUpdate(q queryir.Update) (string, []any, error) {
	table, err := c.table(q.Table)
	if err != nil {
		return "", nil, err
	}

	sets := make([]string, len(q.Set))
	params := make([]any, 0, len(q.Set))
	for i, a := range q.Set {
		col, err := c.column(a.Column)
		if err != nil {
			return "", nil, err
		}
		sets[i] = col + " = ?"
		params = append(params, a.Value)
	}

	where, args, err := c.compilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	params = append(params, args...)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)
	return sql, params, nil
}

func (c *compiler) compileInsert(q queryir.Insert) (string, []any, error) {
	table, err := c.table(q.Table)
	if err != nil {
		return "", nil, err
	}

	values := append([]queryir.Assignment(nil), q.Values...)
	sort.Slice(values, func(i, j int) bool { return values[i].Column < values[j].Column })

	cols := make([]string, len(values))
	marks := make([]string, len(values))
	params := make([]any, len(values))
	for i, a := range values {
		col, err := c.column(a.Column)
		if err != nil {
			return "", nil, err
		}
		cols[i] = col
		marks[i] = "?"
		params[i] = a.Value
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return sql, params, nil
}

func (c *compiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		col, err := c.column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		return col + " = ?", []any{pred.Value}, nil

	case queryir.Compare:
		col, err := c.column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s ?", col, pred.Op), []any{pred.Value}, nil

	case queryir.In:
		col, err := c.column(pred.Field)
		if err != nil {
			return "", nil, err
		}
		if len(pred.Values) == 0 {
			return "0", nil, nil
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(pred.Values)), ", ")
		return fmt.Sprintf("%s IN (%s)", col, marks), append([]any(nil), pred.Values...), nil

	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, args, err := c.compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			params = append(params, args...)
		}
		return strings.Join(parts, " AND "), params, nil

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// orderBy renders the caller's terms followed by the key columns not
// already ordered on.
func (c *compiler) orderBy(terms []queryir.Order) (string, error) {
	parts := make([]string, 0, len(terms)+2)
	seen := make(map[string]bool, len(terms))
	for _, o := range terms {
		col, err := c.column(o.Column)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		if o.EmptyLast {
			parts = append(parts, fmt.Sprintf("(%s IS NULL OR %s = '') ASC", col, col))
		}
		parts = append(parts, fmt.Sprintf("%s %s", collate(col, c.d.CategoryOf(o.Column)), dir))
		seen[o.Column] = true
	}

	for _, key := range keyColumns(c.d) {
		if seen[key] {
			continue
		}
		if key == "rowid" {
			// rowid is an integer; collation does not apply.
			parts = append(parts, "rowid ASC")
			continue
		}
		parts = append(parts, collate(catalog.QuoteIdent(key), c.d.CategoryOf(key))+" ASC")
	}
	return strings.Join(parts, ", "), nil
}

func collate(col string, cat catalog.Category) string {
	if cat == catalog.Numeric {
		return col
	}
	return col + " COLLATE BINARY"
}

// keyColumns returns the columns that make row order total: the primary
// key columns in declaration order, or rowid for keyless tables.
func keyColumns(d *catalog.Descriptor) []string {
	if d.PrimaryKey != "" {
		return []string{d.PrimaryKey}
	}
	var keys []string
	for _, col := range d.Columns {
		if col.PrimaryKey {
			keys = append(keys, col.Name)
		}
	}
	if len(keys) == 0 {
		return []string{"rowid"}
	}
	return keys
}
