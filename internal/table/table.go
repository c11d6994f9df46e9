package table

import (
	"fmt"
	"strings"
	"time"
)

// Table is an ordered set of named columns over row-major cells.
// Cells hold nil, string, float64, bool or time.Time.
type Table struct {
	name  string
	cols  []string
	index map[string]int
	rows  [][]any
}

// New creates an empty table with the given column order.
// Column names must be unique after trimming.
func New(name string, cols []string) (*Table, error) {
	index := make(map[string]int, len(cols))
	clean := make([]string, len(cols))
	for i, c := range cols {
		c = strings.TrimSpace(c)
		if c == "" {
			c = fmt.Sprintf("column_%d", i+1)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
		clean[i] = c
	}
	return &Table{
		name:  name,
		cols:  clean,
		index: index,
	}, nil
}

// Name returns the table's dataset name.
func (t *Table) Name() string { return t.name }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRow adds a row. The cell count must match the column count.
func (t *Table) AppendRow(cells []any) error {
	if len(cells) != len(t.cols) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.cols))
	}
	row := make([]any, len(cells))
	copy(row, cells)
	t.rows = append(t.rows, row)
	return nil
}

// Row returns an accessor for row i. Panics if i is out of range,
// matching slice semantics.
func (t *Table) Row(i int) Row {
	return Row{t: t, i: i}
}

// Value returns the cell at (row, column), or nil if the column is absent.
func (t *Table) Value(row int, col string) any {
	idx, ok := t.index[col]
	if !ok {
		return nil
	}
	return t.rows[row][idx]
}

// ColumnValues returns a copy of every cell in the named column, in row
// order. An absent column yields nil.
func (t *Table) ColumnValues(col string) []any {
	idx, ok := t.index[col]
	if !ok {
		return nil
	}
	out := make([]any, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out
}

// FloatColumn returns the non-null numeric values of a column, in row
// order. Cells that do not coerce to a number are skipped.
func (t *Table) FloatColumn(col string) []float64 {
	idx, ok := t.index[col]
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		if f, ok := AsFloat(row[idx]); ok {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := t.emptyLike()
	out.rows = make([][]any, len(t.rows))
	for i, row := range t.rows {
		cp := make([]any, len(row))
		copy(cp, row)
		out.rows[i] = cp
	}
	return out
}

// Filter returns a new table containing only the rows for which keep
// returns true. Row order is preserved.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := t.emptyLike()
	for i := range t.rows {
		if keep(Row{t: t, i: i}) {
			cp := make([]any, len(t.rows[i]))
			copy(cp, t.rows[i])
			out.rows = append(out.rows, cp)
		}
	}
	return out
}

// MapColumn returns a new table with every cell of the named column
// replaced by f(cell). If the column is absent the table is cloned
// unchanged.
func (t *Table) MapColumn(col string, f func(any) any) *Table {
	out := t.Clone()
	idx, ok := out.index[col]
	if !ok {
		return out
	}
	for i := range out.rows {
		out.rows[i][idx] = f(out.rows[i][idx])
	}
	return out
}

// MapRows is MapColumn with row context: f sees the full row alongside
// the current cell, which lets a transform condition one column on
// another. If the column is absent the table is cloned unchanged.
func (t *Table) MapRows(col string, f func(r Row, cell any) any) *Table {
	out := t.Clone()
	idx, ok := out.index[col]
	if !ok {
		return out
	}
	for i := range out.rows {
		out.rows[i][idx] = f(Row{t: t, i: i}, out.rows[i][idx])
	}
	return out
}

// WithColumn returns a new table extended by a column. values must have
// one entry per row. Replacing an existing column is an error.
func (t *Table) WithColumn(col string, values []any) (*Table, error) {
	if t.HasColumn(col) {
		return nil, fmt.Errorf("column %q already exists", col)
	}
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values, table has %d rows", col, len(values), len(t.rows))
	}
	out := t.emptyLike()
	out.cols = append(out.cols, col)
	out.index[col] = len(out.cols) - 1
	out.rows = make([][]any, len(t.rows))
	for i, row := range t.rows {
		cp := make([]any, len(row), len(row)+1)
		copy(cp, row)
		out.rows[i] = append(cp, values[i])
	}
	return out, nil
}

func (t *Table) emptyLike() *Table {
	cols := make([]string, len(t.cols))
	copy(cols, t.cols)
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return &Table{name: t.name, cols: cols, index: index}
}

// Row is a lightweight accessor over one table row.
type Row struct {
	t *Table
	i int
}

// Index returns the row's position in its table.
func (r Row) Index() int { return r.i }

// Any returns the raw cell value, nil when the column is absent.
func (r Row) Any(col string) any { return r.t.Value(r.i, col) }

// IsNull reports whether the cell is nil (or the column absent).
func (r Row) IsNull(col string) bool { return r.t.Value(r.i, col) == nil }

// Float returns the cell coerced to float64.
func (r Row) Float(col string) (float64, bool) {
	return AsFloat(r.t.Value(r.i, col))
}

// String returns the cell coerced to its string form. Nil cells
// report false.
func (r Row) String(col string) (string, bool) {
	return AsString(r.t.Value(r.i, col))
}

// Time returns the cell as a time.Time if it holds one.
func (r Row) Time(col string) (time.Time, bool) {
	v, ok := r.t.Value(r.i, col).(time.Time)
	return v, ok
}

// Bool returns the cell as a bool if it holds one.
func (r Row) Bool(col string) (bool, bool) {
	v, ok := r.t.Value(r.i, col).(bool)
	return v, ok
}

// Values returns a copy of the row's cells in column order.
func (r Row) Values() []any {
	out := make([]any, len(r.t.cols))
	copy(out, r.t.rows[r.i])
	return out
}
