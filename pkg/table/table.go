package table

import (
	"fmt"
	"math"
	"time"
)

// Kind is the declared semantic type of a column. All column-level
// dispatch in the engine switches on this tag; no runtime type
// inspection of cell values happens anywhere downstream.
type Kind int

const (
	Numeric Kind = iota
	Categorical
	Boolean
	Datetime
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Boolean:
		return "boolean"
	case Datetime:
		return "datetime"
	}
	return "unknown"
}

// Column is a single named, typed column. Numeric columns store values as
// float64 with NaN as the missing-value sentinel; all other kinds pair
// their value slice with the Missing mask.
type Column struct {
	Name string
	Kind Kind

	Floats  []float64
	Strings []string
	Bools   []bool
	Times   []time.Time

	Missing []bool
}

// NewNumeric creates a numeric column. Missing cells are NaN.
func NewNumeric(name string, values []float64) Column {
	return Column{Name: name, Kind: Numeric, Floats: values}
}

// NewCategorical creates a categorical column. A nil missing mask means
// no cell is missing.
func NewCategorical(name string, values []string, missing []bool) Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return Column{Name: name, Kind: Categorical, Strings: values, Missing: missing}
}

// NewBoolean creates a boolean column.
func NewBoolean(name string, values []bool, missing []bool) Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return Column{Name: name, Kind: Boolean, Bools: values, Missing: missing}
}

// NewDatetime creates a datetime column.
func NewDatetime(name string, values []time.Time, missing []bool) Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return Column{Name: name, Kind: Datetime, Times: values, Missing: missing}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case Numeric:
		return len(c.Floats)
	case Categorical:
		return len(c.Strings)
	case Boolean:
		return len(c.Bools)
	case Datetime:
		return len(c.Times)
	}
	return 0
}

// IsMissing reports whether the cell at row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Missing[i]
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsMissing(i) {
			n++
		}
	}
	return n
}

// CellString renders the cell at row i as a string; missing cells render
// as the empty string.
func (c *Column) CellString(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	switch c.Kind {
	case Numeric:
		f := c.Floats[i]
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	case Categorical:
		return c.Strings[i]
	case Boolean:
		if c.Bools[i] {
			return "true"
		}
		return "false"
	case Datetime:
		return c.Times[i].Format(time.RFC3339)
	}
	return ""
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Bools != nil {
		out.Bools = append([]bool(nil), c.Bools...)
	}
	if c.Times != nil {
		out.Times = append([]time.Time(nil), c.Times...)
	}
	if c.Missing != nil {
		out.Missing = append([]bool(nil), c.Missing...)
	}
	return out
}

// filter returns a copy of the column keeping only the rows where keep
// is true.
func (c *Column) filter(keep []bool) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	for i := 0; i < c.Len(); i++ {
		if !keep[i] {
			continue
		}
		switch c.Kind {
		case Numeric:
			out.Floats = append(out.Floats, c.Floats[i])
		case Categorical:
			out.Strings = append(out.Strings, c.Strings[i])
			out.Missing = append(out.Missing, c.Missing[i])
		case Boolean:
			out.Bools = append(out.Bools, c.Bools[i])
			out.Missing = append(out.Missing, c.Missing[i])
		case Datetime:
			out.Times = append(out.Times, c.Times[i])
			out.Missing = append(out.Missing, c.Missing[i])
		}
	}
	return out
}

// Table is an ordered collection of equal-length typed columns.
type Table struct {
	cols  []Column
	index map[string]int
}

// New creates a table from the given columns. All columns must have the
// same length and unique names.
func New(cols ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is New for test fixtures and literals; it panics on invalid input.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return len(t.cols)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns a pointer to the named column, or false if it does not
// exist. The pointer aliases the table's storage.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.cols[i], true
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn appends a column to the table.
func (t *Table) AddColumn(c Column) error {
	if _, exists := t.index[c.Name]; exists {
		return fmt.Errorf("duplicate column name %q", c.Name)
	}
	if len(t.cols) > 0 && c.Len() != t.Rows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.Rows())
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// ReplaceColumn swaps the named column for a new one of the same length.
func (t *Table) ReplaceColumn(name string, c Column) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	if c.Len() != t.Rows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.Rows())
	}
	delete(t.index, name)
	t.index[c.Name] = i
	t.cols[i] = c
	return nil
}

// DropColumns removes the named columns; unknown names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	kept := t.cols[:0:0]
	for _, c := range t.cols {
		if _, gone := drop[c.Name]; !gone {
			kept = append(kept, c)
		}
	}
	t.cols = kept
	t.index = make(map[string]int, len(kept))
	for i, c := range t.cols {
		t.index[c.Name] = i
	}
}

// FilterRows returns a new table containing only rows where keep is true.
func (t *Table) FilterRows(keep []bool) *Table {
	out := &Table{index: make(map[string]int, len(t.cols))}
	for _, c := range t.cols {
		fc := c.filter(keep)
		out.index[fc.Name] = len(out.cols)
		out.cols = append(out.cols, fc)
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{index: make(map[string]int, len(t.cols))}
	for _, c := range t.cols {
		cc := c.Clone()
		out.index[cc.Name] = len(out.cols)
		out.cols = append(out.cols, cc)
	}
	return out
}

// Columns returns the underlying column slice in order. Mutating the
// returned columns mutates the table.
func (t *Table) Columns() []Column {
	return t.cols
}
