package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownColumn is returned when a named column is not in the table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNoRows indicates that no observation survived loading or cleaning.
	ErrNoRows = errors.New("no rows")
	// ErrCoercion indicates a declared column produced no numeric values.
	ErrCoercion = errors.New("numeric coercion failed")
)

// Table is a column-major numeric observation table. Missing values are NaN.
type Table struct {
	names []string
	index map[string]int
	cols  [][]float64
}

// NewTable builds a table from column names and equally sized columns.
// The slices are used as-is; callers must not modify them afterwards.
func NewTable(names []string, cols [][]float64) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("new table: %d names for %d columns", len(names), len(cols))
	}
	t := &Table{names: names, cols: cols, index: make(map[string]int, len(names))}
	for i, n := range names {
		if _, dup := t.index[n]; dup {
			return nil, fmt.Errorf("new table: duplicate column %q", n)
		}
		t.index[n] = i
		if len(cols[i]) != len(cols[0]) {
			return nil, fmt.Errorf("new table: column %q has %d rows, want %d", n, len(cols[i]), len(cols[0]))
		}
	}
	return t, nil
}

// NumRows returns the observation count.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0])
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns a copy of the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Has reports whether the table holds a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Col returns the backing slice of a column. Do not modify it.
func (t *Table) Col(name string) ([]float64, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return t.cols[i], nil
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([][]float64, len(names))
	for i, n := range names {
		c, err := t.Col(n)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	out := make([]string, len(names))
	copy(out, names)
	return NewTable(out, cols)
}

// Drop returns a table without the named columns. Every name must exist.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if !t.Has(n) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, n)
		}
		drop[n] = true
	}
	var keep []string
	for _, n := range t.names {
		if !drop[n] {
			keep = append(keep, n)
		}
	}
	return t.Select(keep...)
}

// Rows returns a new table holding the given row indices in order.
func (t *Table) Rows(idx []int) *Table {
	cols := make([][]float64, len(t.cols))
	for j, c := range t.cols {
		nc := make([]float64, len(idx))
		for k, i := range idx {
			nc[k] = c[i]
		}
		cols[j] = nc
	}
	names := make([]string, len(t.names))
	copy(names, t.names)
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return &Table{names: names, index: index, cols: cols}
}

// Row copies row i into a slice ordered like Names.
func (t *Table) Row(i int) []float64 {
	out := make([]float64, len(t.cols))
	for j, c := range t.cols {
		out[j] = c[i]
	}
	return out
}

// MissingCount returns the number of NaN cells in the named column.
func (t *Table) MissingCount(name string) int {
	c, err := t.Col(name)
	if err != nil {
		return 0
	}
	n := 0
	for _, v := range c {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Complete reports whether the table has no missing cells.
func (t *Table) Complete() bool {
	for _, c := range t.cols {
		for _, v := range c {
			if math.IsNaN(v) {
				return false
			}
		}
	}
	return true
}

// Predictors returns every column name except target, in table order.
func (t *Table) Predictors(target string) []string {
	var out []string
	for _, n := range t.names {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

func (t *Table) String() string {
	return fmt.Sprintf("table(%d rows x %d cols: %s)", t.NumRows(), t.NumCols(), strings.Join(t.names, ", "))
}
